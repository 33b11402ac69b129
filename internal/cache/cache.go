// cache содержит эфемерное состояние auth-сервиса в Redis:
// одноразовые коды подтверждения и активные refresh-сессии.
//
// Redis — источник истины для «действителен ли ещё refresh-токен/код».
// Однократность погашения обеспечивается одной командой GETDEL:
// чтение и удаление выполняются атомарно, без разделения на GET + DEL.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCodeNotFound — код не выдавался, уже погашен или истёк (неразличимо).
	ErrCodeNotFound = errors.New("code not found")
	// ErrCodeCollision — исчерпаны попытки выдать уникальный код.
	ErrCodeCollision = errors.New("code collision")
	// ErrSessionNotFound — у аккаунта нет активной refresh-сессии.
	ErrSessionNotFound = errors.New("session not found")
)

// DefaultPrefix — префикс ключей, если не задан в конфигурации.
const DefaultPrefix = "auth:"

// NewClient создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение (fail-fast на старте).
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	const op = "cache.NewClient"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rdb, nil
}

func prefixOrDefault(prefix string) string {
	if prefix == "" {
		return DefaultPrefix
	}

	return prefix
}
