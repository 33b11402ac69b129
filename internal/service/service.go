// service содержит бизнес-логику auth-сервиса: регистрацию с подтверждением
// по одноразовому коду, вход, ротацию refresh-токенов и проверку access-токенов.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для конкурентного
//     использования при условии потокобезопасности переданных зависимостей.
//   - Актуальность refresh-токена определяется только SessionStore: на аккаунт
//     живёт не больше одной сессии, каждый вход/refresh перезаписывает её.
//   - Ошибки возвращаются sentinel-значениями ниже и маппятся транспортом
//     на HTTP-статусы (см. комментарии к переменным).
package service

//go:generate mockgen -source=service.go -destination=../../mocks/mock_service.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/go-auth-service/internal/models"
	"github.com/pribylovaa/go-auth-service/internal/storage"
	"github.com/pribylovaa/go-auth-service/internal/token"
)

var (
	// ErrDuplicateEmail — аккаунт с таким email уже существует. HTTP 409.
	ErrDuplicateEmail = errors.New("duplicate email")

	// ErrExpiredOrInvalidCode — код не выдавался, уже погашен или истёк. HTTP 400.
	ErrExpiredOrInvalidCode = errors.New("expired or invalid code")

	// ErrSomethingWentWrong — код погашен, но активировать аккаунт не удалось
	// (строка не найдена). При корректной работе не возникает. HTTP 400.
	ErrSomethingWentWrong = errors.New("something went wrong")

	// ErrInvalidCredentials — неизвестный email или неверный пароль
	// (намеренно не различаются). HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotActiveAccount — учётные данные верны, но аккаунт не подтверждён. HTTP 401.
	ErrNotActiveAccount = errors.New("account is not active")

	// ErrInvalidRefreshToken — refresh-токен битый/просрочен или активной сессии нет. HTTP 400.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrWrongRefreshToken — токен корректен, но не совпадает с сохранённой сессией. HTTP 400.
	// Частный случай ErrInvalidRefreshToken: errors.Is выполняется для обоих.
	ErrWrongRefreshToken = fmt.Errorf("wrong refresh token: %w", ErrInvalidRefreshToken)

	// ErrForbidden — access-токен не прошёл проверку. HTTP 403.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidEmail — некорректный формат email. HTTP 422.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль короче минимальной длины. HTTP 422.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. HTTP 422.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrPasswordTooLong — пароль длиннее MaxPasswordBytes (предел bcrypt). HTTP 422.
	ErrPasswordTooLong = errors.New("password is too long")
)

// CodeStore выдаёт и гасит одноразовые коды подтверждения.
type CodeStore interface {
	Issue(ctx context.Context, email string) (string, error)
	Redeem(ctx context.Context, code string) (string, error)
}

// SessionStore хранит единственную активную refresh-сессию аккаунта.
type SessionStore interface {
	Put(ctx context.Context, userID int64, refreshToken string, ttl time.Duration) error
	TakeIfPresent(ctx context.Context, userID int64) (string, error)
}

// TokenCodec выпускает и проверяет access/refresh-токены.
type TokenCodec interface {
	MintAccessToken(userID int64, email string, role models.Role) (string, error)
	MintRefreshToken(userID int64) (string, error)
	VerifyAccessToken(tokenStr string) (*token.AccessClaims, error)
	VerifyRefreshToken(tokenStr string) (*token.RefreshClaims, error)
	RefreshTTL() time.Duration
}

// PasswordHasher хэширует и сверяет пароли.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

// CodeSender доставляет код подтверждения владельцу email.
type CodeSender interface {
	SendCode(ctx context.Context, email, code string) error
}

// Service описывает бизнес-логику auth-сервиса.
type Service struct {
	accounts storage.AccountStorage
	codes    CodeStore
	sessions SessionStore
	tokens   TokenCodec
	hasher   PasswordHasher
	sender   CodeSender // может быть nil: код только выдаётся, доставки нет
}

// New создаёт новый экземпляр Service. По умолчанию пароли хэшируются bcrypt.
func New(accounts storage.AccountStorage, codes CodeStore, sessions SessionStore, tokens TokenCodec) *Service {
	return &Service{
		accounts: accounts,
		codes:    codes,
		sessions: sessions,
		tokens:   tokens,
		hasher:   BcryptHasher{},
	}
}

// SetCodeSender устанавливает канал доставки кодов подтверждения (опционально).
func (s *Service) SetCodeSender(sender CodeSender) {
	s.sender = sender
}

// SetPasswordHasher подменяет алгоритм хэширования паролей.
func (s *Service) SetPasswordHasher(h PasswordHasher) {
	if h != nil {
		s.hasher = h
	}
}
