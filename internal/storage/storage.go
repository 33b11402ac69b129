package storage

//go:generate mockgen -source=storage.go -destination=../../mocks/mock_storage.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/go-auth-service/internal/models"
)

var (
	// ErrNotFound — запись не найдена (аккаунт по email/id, активация без строки).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email).
	ErrAlreadyExists = errors.New("already exists")
)

// AccountStorage выполняет операции над аккаунтами.
type AccountStorage interface {
	// SaveAccount создаёт аккаунт и заполняет account.ID, CreatedAt, UpdatedAt.
	SaveAccount(ctx context.Context, account *models.Account) error
	// AccountByEmail находит аккаунт по email.
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// AccountByID находит аккаунт по ID.
	AccountByID(ctx context.Context, id int64) (*models.Account, error)
	// ActivateAccount помечает аккаунт активным и возвращает его ID.
	// Если строка не найдена — ErrNotFound.
	ActivateAccount(ctx context.Context, email string) (int64, error)
	// DeletePendingAccounts удаляет неактивные аккаунты, созданные раньше before.
	DeletePendingAccounts(ctx context.Context, before time.Time) (int64, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	AccountStorage
	Ping(ctx context.Context) error
	Close()
}
