// ratelimit ограничивает частоту попыток входа: фиксированное окно
// на ключ (IP клиента), счётчик живёт в Redis, поэтому лимит общий
// для всех реплик сервиса.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidWindow — окно лимитера меньше миллисекунды.
var ErrInvalidWindow = errors.New("invalid rate limit window")

// INCR + PEXPIRE выполняются одним скриптом, иначе ключ может остаться без TTL.
var fixedWindowScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])

local current = redis.call("INCR", key)
if current == 1 then
  redis.call("PEXPIRE", key, window_ms)
end

local ttl = redis.call("PTTL", key)
if ttl < 0 then
  ttl = window_ms
end

if current > limit then
  return {0, ttl}
end
return {1, ttl}
`)

// Limiter — лимитер с фиксированным окном поверх Redis.
type Limiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
}

// New создаёт лимитер: не больше limit попыток на ключ за window.
// Ключи хранятся как <prefix>rl:<key>.
func New(rdb redis.Scripter, limit int, window time.Duration, prefix string) *Limiter {
	return &Limiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: prefix + "rl:",
	}
}

// Allow засчитывает попытку. Если лимит исчерпан, возвращает false и время
// до открытия окна.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	const op = "ratelimit.Allow"

	windowMS := l.window.Milliseconds()
	if windowMS <= 0 {
		return false, 0, fmt.Errorf("%s: %w", op, ErrInvalidWindow)
	}

	res, err := fixedWindowScript.Run(ctx, l.rdb, []string{l.prefix + key}, l.limit, windowMS).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("%s: %w", op, err)
	}

	if len(res) != 2 {
		return false, 0, fmt.Errorf("%s: unexpected redis response %v", op, res)
	}

	retryAfter := time.Duration(res[1]) * time.Millisecond
	if retryAfter < 0 {
		retryAfter = 0
	}

	return res[0] == 1, retryAfter, nil
}
