package models

// TokenPair — пара токенов, выдаваемая при входе и при ротации refresh-токена.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API, на сервере не хранится;
//   - RefreshToken — долгоживущий JWT для выпуска новой пары; действителен,
//     только пока совпадает с активной сессией аккаунта в Redis.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
