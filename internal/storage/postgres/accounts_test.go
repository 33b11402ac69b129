package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/go-auth-service/internal/models"
	"github.com/pribylovaa/go-auth-service/internal/storage"
)

// Интеграционные тесты репозитория аккаунтов:
// - поднимают PostgreSQL через testcontainers-go (postgres:16-alpine);
// - применяют встроенные миграции goose (Storage.Migrate);
// - проверяют создание/поиск, уникальность email (CITEXT), активацию
//   и очистку неподтверждённых аккаунтов.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// startPostgres поднимает временный PostgreSQL и возвращает хранилище с применёнными миграциями.
// Если переменная окружения GO_TEST_INTEGRATION не установлена — тест пропускается.
func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	st, err := New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))

	cleanup := func() {
		st.Close()
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

func newAccount(email string) *models.Account {
	return &models.Account{
		Email:        email,
		PasswordHash: "hash",
		Role:         models.RoleUser,
	}
}

func TestIntegration_SaveAccount_And_Lookup_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	ctx := context.Background()

	a := newAccount("User@Example.Com")
	require.NoError(t, st.SaveAccount(ctx, a))
	require.NotZero(t, a.ID)
	require.False(t, a.CreatedAt.IsZero())

	byEmail, err := st.AccountByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	require.Equal(t, a.ID, byEmail.ID)
	require.Equal(t, models.RoleUser, byEmail.Role)
	require.False(t, byEmail.IsActive)

	byID, err := st.AccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "User@Example.Com", byID.Email)
}

func TestIntegration_SaveAccount_DuplicateEmail_CaseInsensitive(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, st.SaveAccount(ctx, newAccount("user@example.com")))

	err := st.SaveAccount(ctx, newAccount("USER@EXAMPLE.COM"))
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_Lookup_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	ctx := context.Background()

	_, err := st.AccountByEmail(ctx, "absent@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.AccountByID(ctx, 424242)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_ActivateAccount(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	ctx := context.Background()

	a := newAccount("pending@example.com")
	require.NoError(t, st.SaveAccount(ctx, a))

	id, err := st.ActivateAccount(ctx, "pending@example.com")
	require.NoError(t, err)
	require.Equal(t, a.ID, id)

	got, err := st.AccountByID(ctx, id)
	require.NoError(t, err)
	require.True(t, got.IsActive)

	_, err = st.ActivateAccount(ctx, "absent@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_DeletePendingAccounts(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	ctx := context.Background()

	pending := newAccount("pending@example.com")
	require.NoError(t, st.SaveAccount(ctx, pending))

	active := newAccount("active@example.com")
	require.NoError(t, st.SaveAccount(ctx, active))
	_, err := st.ActivateAccount(ctx, active.Email)
	require.NoError(t, err)

	// граница в прошлом: ничего не удаляется.
	n, err := st.DeletePendingAccounts(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = st.DeletePendingAccounts(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = st.AccountByEmail(ctx, pending.Email)
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.AccountByEmail(ctx, active.Email)
	require.NoError(t, err)
}

func TestIntegration_Migrate_Idempotent(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Ping(context.Background()))
}

func TestIntegration_Queries_ContextCanceled(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := st.AccountByEmail(ctx, "user@example.com")
	require.ErrorIs(t, err, context.Canceled)

	err = st.SaveAccount(ctx, newAccount("user@example.com"))
	require.ErrorIs(t, err, context.Canceled)

	_, err = st.ActivateAccount(ctx, "user@example.com")
	require.ErrorIs(t, err, context.Canceled)
}
