package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeLength — длина одноразового кода подтверждения.
const CodeLength = 6

const maxIssueAttempts = 5

// CodeStore выдаёт и гасит одноразовые коды: code -> email с TTL.
type CodeStore struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
	gen    func() (string, error)
}

// NewCodeStore создаёт хранилище кодов с временем жизни ttl.
func NewCodeStore(rdb redis.Cmdable, prefix string, ttl time.Duration) *CodeStore {
	return &CodeStore{
		rdb:    rdb,
		prefix: prefixOrDefault(prefix),
		ttl:    ttl,
		gen:    generateCode,
	}
}

func (s *CodeStore) key(code string) string { return s.prefix + "code:" + code }

// Issue генерирует код и сохраняет его за email.
// Запись выполняется через SET NX: при коллизии с живым кодом
// генерируется новый, не более maxIssueAttempts раз.
func (s *CodeStore) Issue(ctx context.Context, email string) (string, error) {
	const op = "cache.codes.Issue"

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code, err := s.gen()
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		ok, err := s.rdb.SetNX(ctx, s.key(code), email, s.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		if ok {
			return code, nil
		}
	}

	return "", fmt.Errorf("%s: %w", op, ErrCodeCollision)
}

// Redeem атомарно читает и удаляет код (GETDEL), возвращая привязанный email.
// Повторное погашение, истёкший или неизвестный код — ErrCodeNotFound.
func (s *CodeStore) Redeem(ctx context.Context, code string) (string, error) {
	const op = "cache.codes.Redeem"

	email, err := s.rdb.GetDel(ctx, s.key(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%s: %w", op, ErrCodeNotFound)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return email, nil
}

// generateCode возвращает 6 случайных hex-символов.
func generateCode() (string, error) {
	b := make([]byte, CodeLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
