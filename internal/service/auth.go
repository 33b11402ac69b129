package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/pribylovaa/go-auth-service/internal/cache"
	"github.com/pribylovaa/go-auth-service/internal/models"
	"github.com/pribylovaa/go-auth-service/internal/pkg/log"
	"github.com/pribylovaa/go-auth-service/internal/pkg/redact"
	"github.com/pribylovaa/go-auth-service/internal/storage"
)

const (
	// MinPasswordLength — минимальная длина пароля в рунах.
	MinPasswordLength = 8
	// MaxPasswordBytes — предел bcrypt: длиннее пароль не хэшируется.
	MaxPasswordBytes = 72
)

// Register создаёт неактивный аккаунт и выдаёт код подтверждения.
// Ошибка выдачи/доставки кода только логируется: регистрация не откатывается.
// Возвращает нормализованный email.
func (s *Service) Register(ctx context.Context, email, password string) (string, error) {
	const op = "service.auth.Register"

	normEmail, err := validateEmail(email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(password); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.accounts.AccountByEmail(ctx, normEmail)
	if err == nil {
		return "", fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	account := &models.Account{
		Email:        normEmail,
		PasswordHash: hash,
		Role:         models.RoleUser,
		IsActive:     false,
	}

	if err := s.accounts.SaveAccount(ctx, account); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return "", fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.issueCode(ctx, normEmail)

	return normEmail, nil
}

// issueCode выдаёт код и передаёт его отправителю (best-effort).
func (s *Service) issueCode(ctx context.Context, email string) {
	lg := log.From(ctx).With(slog.String("email", redact.Email(email)))

	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		lg.Error("register_code_issue_failed", slog.String("err", err.Error()))
		return
	}

	if s.sender == nil {
		lg.Warn("register_code_sender_missing")
		return
	}

	if err := s.sender.SendCode(ctx, email, code); err != nil {
		lg.Error("register_code_delivery_failed", slog.String("err", err.Error()))
		return
	}

	lg.Info("register_code_sent")
}

// Verify гасит код и активирует аккаунт, за которым он закреплён.
func (s *Service) Verify(ctx context.Context, code string) error {
	const op = "service.auth.Verify"

	email, err := s.codes.Redeem(ctx, code)
	if err != nil {
		if errors.Is(err, cache.ErrCodeNotFound) {
			return fmt.Errorf("%s: %w", op, ErrExpiredOrInvalidCode)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.accounts.ActivateAccount(ctx, email); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.From(ctx).Error("verify_account_missing", slog.String("email", redact.Email(email)))
			return fmt.Errorf("%s: %w", op, ErrSomethingWentWrong)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Login проверяет учётные данные и открывает новую сессию.
// Предыдущая сессия аккаунта (если была) перестаёт действовать.
func (s *Service) Login(ctx context.Context, email, password string) (*models.TokenPair, *models.Account, error) {
	const op = "service.auth.Login"

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if len(password) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	account, err := s.accounts.AccountByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Compare(account.PasswordHash, password) {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !account.IsActive {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrNotActiveAccount)
	}

	pair, err := s.issueTokenPair(ctx, account)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, account, nil
}

// Refresh ротирует refresh-токен. Сессия забирается из хранилища атомарно,
// поэтому токен можно использовать ровно один раз. При несовпадении
// предъявленного и сохранённого токена сессия уже удалена и не восстанавливается.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "service.auth.Refresh"

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	stored, err := s.sessions.TakeIfPresent(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, cache.ErrSessionNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		log.From(ctx).Warn("refresh_token_mismatch", slog.Int64("user_id", claims.UserID))
		return nil, fmt.Errorf("%s: %w", op, ErrWrongRefreshToken)
	}

	account, err := s.accounts.AccountByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issueTokenPair(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// CurrentUser возвращает активный аккаунт владельца access-токена.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*models.Account, error) {
	const op = "service.auth.CurrentUser"

	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	account, err := s.accounts.AccountByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !account.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrNotActiveAccount)
	}

	return account, nil
}

// issueTokenPair выпускает пару токенов и безусловно перезаписывает сессию аккаунта.
func (s *Service) issueTokenPair(ctx context.Context, account *models.Account) (*models.TokenPair, error) {
	const op = "service.auth.issueTokenPair"

	access, err := s.tokens.MintAccessToken(account.ID, account.Email, account.Role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := s.tokens.MintRefreshToken(account.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.sessions.Put(ctx, account.ID, refresh, s.tokens.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// validateEmail проверяет базовый формат email, обрезает пробелы и приводит к нижнему регистру.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет минимальные требования к паролю.
func validatePassword(pw string) error {
	const op = "service.auth.validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if len([]rune(pw)) < MinPasswordLength {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	if len(pw) > MaxPasswordBytes {
		return fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
	}

	return nil
}
