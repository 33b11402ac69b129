// token выпускает и проверяет подписанные JWT двух независимых доменов:
// access (короткоживущий, без серверного состояния) и refresh
// (долгоживущий, актуальность подтверждается сессией в Redis).
//
// Домены подписываются разными секретами, поэтому компрометация одного
// ключа не позволяет подделать токены другого домена.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-auth-service/internal/config"
	"github.com/pribylovaa/go-auth-service/internal/models"
)

var (
	// ErrInvalidAccessToken — access-токен не прошёл проверку
	// (подпись, алгоритм, срок действия, формат claims).
	ErrInvalidAccessToken = errors.New("invalid access token")

	// ErrInvalidRefreshToken — refresh-токен не прошёл проверку.
	// Причина (просрочен/битый/чужая подпись) намеренно не различается.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// AccessClaims — полезная нагрузка access-токена.
type AccessClaims struct {
	UserID    int64       `json:"user_id"`
	UserEmail string      `json:"user_email"`
	UserRole  models.Role `json:"user_role"`
	jwt.RegisteredClaims
}

// RefreshClaims — полезная нагрузка refresh-токена.
type RefreshClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Codec выпускает и проверяет токены. Безопасен для конкурентного использования.
type Codec struct {
	method     jwt.SigningMethod
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option настраивает Codec.
type Option func(*Codec)

// WithClock подменяет источник времени (для детерминированных тестов истечения).
// Используется и при выпуске, и при проверке токенов.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// New создаёт Codec из конфигурации. Допускаются только HMAC-алгоритмы
// и различающиеся секреты доменов.
func New(cfg config.AuthConfig, opts ...Option) (*Codec, error) {
	const op = "token.New"

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c := &Codec{
		method:     jwt.GetSigningMethod(cfg.JWTAlgorithm),
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// RefreshTTL возвращает время жизни refresh-токена (TTL сессии в Redis).
func (c *Codec) RefreshTTL() time.Duration {
	return c.refreshTTL
}

// MintAccessToken выпускает access-токен с данными аккаунта.
func (c *Codec) MintAccessToken(userID int64, email string, role models.Role) (string, error) {
	const op = "token.MintAccessToken"

	now := c.now()
	claims := AccessClaims{
		UserID:           userID,
		UserEmail:        email,
		UserRole:         role,
		RegisteredClaims: registered(now, c.accessTTL),
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.accessKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// MintRefreshToken выпускает refresh-токен для аккаунта.
func (c *Codec) MintRefreshToken(userID int64) (string, error) {
	const op = "token.MintRefreshToken"

	now := c.now()
	claims := RefreshClaims{
		UserID:           userID,
		RegisteredClaims: registered(now, c.refreshTTL),
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.refreshKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// VerifyAccessToken проверяет подпись, алгоритм и срок действия access-токена.
func (c *Codec) VerifyAccessToken(tokenStr string) (*AccessClaims, error) {
	const op = "token.VerifyAccessToken"

	claims := &AccessClaims{}
	if err := c.parse(tokenStr, claims, c.accessKey); err != nil || claims.UserID <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAccessToken)
	}

	return claims, nil
}

// VerifyRefreshToken проверяет подпись, алгоритм и срок действия refresh-токена.
// Любая ошибка разбора сводится к ErrInvalidRefreshToken.
func (c *Codec) VerifyRefreshToken(tokenStr string) (*RefreshClaims, error) {
	const op = "token.VerifyRefreshToken"

	claims := &RefreshClaims{}
	if err := c.parse(tokenStr, claims, c.refreshKey); err != nil || claims.UserID <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	return claims, nil
}

func (c *Codec) parse(tokenStr string, claims jwt.Claims, key []byte) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != c.method.Alg() {
				return nil, jwt.ErrTokenSignatureInvalid
			}

			return key, nil
		},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return err
	}

	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}

	return nil
}

// registered заполняет стандартные claims. Случайный jti гарантирует,
// что два токена, выпущенные в одну секунду, не совпадут побайтно.
func registered(now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}
