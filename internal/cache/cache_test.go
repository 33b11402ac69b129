package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// startRedis поднимает in-memory Redis (miniredis) и клиент к нему.
func startRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

func TestNewClient_PingAndBadURL(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	rdb, err := NewClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, rdb.Close())

	_, err = NewClient(context.Background(), "://bad-url")
	require.Error(t, err)
}

func TestCodeStore_IssueAndRedeem_Once(t *testing.T) {
	t.Parallel()

	mr, rdb := startRedis(t)
	st := NewCodeStore(rdb, "t:", time.Minute)
	ctx := context.Background()

	code, err := st.Issue(ctx, "user@example.com")
	require.NoError(t, err)
	require.Len(t, code, CodeLength)

	require.True(t, mr.Exists("t:code:"+code))
	require.Equal(t, time.Minute, mr.TTL("t:code:"+code))

	email, err := st.Redeem(ctx, code)
	require.NoError(t, err)
	require.Equal(t, "user@example.com", email)

	// второе погашение того же кода.
	_, err = st.Redeem(ctx, code)
	require.ErrorIs(t, err, ErrCodeNotFound)
}

func TestCodeStore_Redeem_UnknownAndExpired(t *testing.T) {
	t.Parallel()

	mr, rdb := startRedis(t)
	st := NewCodeStore(rdb, "", 30*time.Second)
	ctx := context.Background()

	_, err := st.Redeem(ctx, "abcdef")
	require.ErrorIs(t, err, ErrCodeNotFound)

	code, err := st.Issue(ctx, "user@example.com")
	require.NoError(t, err)
	require.True(t, mr.Exists(DefaultPrefix+"code:"+code))

	mr.FastForward(31 * time.Second)

	_, err = st.Redeem(ctx, code)
	require.ErrorIs(t, err, ErrCodeNotFound)
}

func TestCodeStore_Issue_RetriesOnCollision(t *testing.T) {
	t.Parallel()

	mr, rdb := startRedis(t)
	st := NewCodeStore(rdb, "t:", time.Minute)
	ctx := context.Background()

	require.NoError(t, mr.Set("t:code:aaaaaa", "taken@example.com"))

	seq := []string{"aaaaaa", "aaaaaa", "bbbbbb"}
	var i int
	st.gen = func() (string, error) {
		c := seq[i]
		i++
		return c, nil
	}

	code, err := st.Issue(ctx, "user@example.com")
	require.NoError(t, err)
	require.Equal(t, "bbbbbb", code)

	// чужой код не перезаписан.
	got, err := mr.Get("t:code:aaaaaa")
	require.NoError(t, err)
	require.Equal(t, "taken@example.com", got)
}

func TestCodeStore_Issue_CollisionExhausted(t *testing.T) {
	t.Parallel()

	mr, rdb := startRedis(t)
	st := NewCodeStore(rdb, "t:", time.Minute)

	require.NoError(t, mr.Set("t:code:aaaaaa", "taken@example.com"))
	st.gen = func() (string, error) { return "aaaaaa", nil }

	_, err := st.Issue(context.Background(), "user@example.com")
	require.ErrorIs(t, err, ErrCodeCollision)
}

func TestCodeStore_Issue_GeneratorError(t *testing.T) {
	t.Parallel()

	_, rdb := startRedis(t)
	st := NewCodeStore(rdb, "t:", time.Minute)
	st.gen = func() (string, error) { return "", errors.New("entropy") }

	_, err := st.Issue(context.Background(), "user@example.com")
	require.Error(t, err)
}

func TestCodeStore_ConcurrentRedeem_ExactlyOnce(t *testing.T) {
	t.Parallel()

	_, rdb := startRedis(t)
	st := NewCodeStore(rdb, "t:", time.Minute)
	ctx := context.Background()

	code, err := st.Issue(ctx, "user@example.com")
	require.NoError(t, err)

	const workers = 16
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.Redeem(ctx, code); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, wins)
}

func TestSessionStore_PutAndTake(t *testing.T) {
	t.Parallel()

	mr, rdb := startRedis(t)
	st := NewSessionStore(rdb, "t:")
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, 10, "token-1", time.Hour))
	require.Equal(t, time.Hour, mr.TTL("t:refresh-token:user-id:10"))

	tok, err := st.TakeIfPresent(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, "token-1", tok)

	_, err = st.TakeIfPresent(ctx, 10)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_Put_OverwritesPrevious(t *testing.T) {
	t.Parallel()

	_, rdb := startRedis(t)
	st := NewSessionStore(rdb, "t:")
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, 10, "first", time.Hour))
	require.NoError(t, st.Put(ctx, 10, "second", time.Hour))

	tok, err := st.TakeIfPresent(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, "second", tok)
}

func TestSessionStore_ExpiresWithTTL(t *testing.T) {
	t.Parallel()

	mr, rdb := startRedis(t)
	st := NewSessionStore(rdb, "t:")
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, 5, "tok", time.Minute))
	mr.FastForward(time.Minute + time.Second)

	_, err := st.TakeIfPresent(ctx, 5)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_ConcurrentTake_FirstCallerWins(t *testing.T) {
	t.Parallel()

	_, rdb := startRedis(t)
	st := NewSessionStore(rdb, "t:")
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, 1, "tok", time.Hour))

	const workers = 16
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.TakeIfPresent(ctx, 1); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, wins)
}

func TestStores_RedisDown_ReturnsError(t *testing.T) {
	t.Parallel()

	mr, rdb := startRedis(t)
	mr.Close()

	codes := NewCodeStore(rdb, "t:", time.Minute)
	sessions := NewSessionStore(rdb, "t:")
	ctx := context.Background()

	_, err := codes.Issue(ctx, "user@example.com")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrCodeCollision)

	_, err = codes.Redeem(ctx, "abcdef")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrCodeNotFound)

	require.Error(t, sessions.Put(ctx, 1, "tok", time.Hour))

	_, err = sessions.TakeIfPresent(ctx, 1)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSessionNotFound)
}
