package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore хранит единственный действующий refresh-токен на аккаунт.
// Ключ — id аккаунта, значение — строка токена, TTL — время жизни токена.
type SessionStore struct {
	rdb    redis.Cmdable
	prefix string
}

// NewSessionStore создаёт хранилище refresh-сессий.
func NewSessionStore(rdb redis.Cmdable, prefix string) *SessionStore {
	return &SessionStore{rdb: rdb, prefix: prefixOrDefault(prefix)}
}

func (s *SessionStore) key(userID int64) string {
	return s.prefix + "refresh-token:user-id:" + strconv.FormatInt(userID, 10)
}

// Put безусловно перезаписывает сессию аккаунта (last-writer-wins).
// Предыдущий refresh-токен после этого недействителен.
func (s *SessionStore) Put(ctx context.Context, userID int64, refreshToken string, ttl time.Duration) error {
	const op = "cache.sessions.Put"

	if err := s.rdb.Set(ctx, s.key(userID), refreshToken, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// TakeIfPresent атомарно забирает и удаляет сессию аккаунта (GETDEL).
// Из конкурентных вызовов значение получит только первый,
// остальные получат ErrSessionNotFound.
func (s *SessionStore) TakeIfPresent(ctx context.Context, userID int64) (string, error) {
	const op = "cache.sessions.TakeIfPresent"

	tok, err := s.rdb.GetDel(ctx, s.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return tok, nil
}
