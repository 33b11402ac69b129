// errors стандартизирует ответы об ошибках HTTP-слоя auth-сервиса.
// На вход принимает ошибку сервисного слоя (sentinel из internal/service)
// или локальную ошибку транспорта (валидация, лимит запросов), на выход даёт:
//   - HTTP-статус;
//   - короткий стабильный code и безопасный detail без утечки деталей.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/pribylovaa/go-auth-service/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// ErrNotAuthenticated — в запросе нет Bearer-токена.
var ErrNotAuthenticated = errors.New("not authenticated")

// ValidationError — тело запроса не прошло валидацию. Detail уходит клиенту как есть.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return "validation: " + e.Detail }

// Invalid создаёт ValidationError.
func Invalid(detail string) error {
	return &ValidationError{Detail: detail}
}

// RateLimitedError — исчерпан лимит попыток; RetryAfter уходит в заголовок Retry-After.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string { return "rate limited" }

// ErrorResponse — единый формат ответа об ошибке.
// Code — короткий стабильный код для машиночитаемой обработки.
// Detail — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id (для трассировки).
type ErrorResponse struct {
	Detail    string `json:"detail"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

type mapping struct {
	target error
	status int
	code   string
	detail string
}

var table = []mapping{
	{service.ErrDuplicateEmail, http.StatusConflict, "duplicate_email", "Duplicate email."},
	{service.ErrExpiredOrInvalidCode, http.StatusBadRequest, "expired_or_invalid_code", "Code might expired or invalid."},
	{service.ErrSomethingWentWrong, http.StatusBadRequest, "something_went_wrong", "Something went wrong."},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials."},
	{service.ErrNotActiveAccount, http.StatusUnauthorized, "not_active_account", "Activate account first."},
	{service.ErrInvalidRefreshToken, http.StatusBadRequest, "invalid_refresh_token", "Refresh token is invalid."},
	{service.ErrWrongRefreshToken, http.StatusBadRequest, "invalid_refresh_token", "Refresh token is invalid."},
	{service.ErrForbidden, http.StatusForbidden, "forbidden", "Forbidden token."},
	{ErrNotAuthenticated, http.StatusUnauthorized, "not_authenticated", "Not authenticated."},
	{service.ErrInvalidEmail, http.StatusUnprocessableEntity, "validation_error", "Invalid email."},
	{service.ErrWeakPassword, http.StatusUnprocessableEntity, "validation_error", "Password must be at least 8 characters."},
	{service.ErrEmptyPassword, http.StatusUnprocessableEntity, "validation_error", "Password is required."},
	{service.ErrPasswordTooLong, http.StatusUnprocessableEntity, "validation_error", "Password must be at most 72 bytes."},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", "Request timeout."},
	{context.Canceled, StatusClientClosedRequest, "canceled", "Request canceled."},
}

// ToHTTP конвертирует ошибку в HTTP-статус и тело ответа.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal, чтобы не отдать
//     "200 OK" с телом ошибки;
//   - ValidationError — 422 с detail из ошибки;
//   - RateLimitedError — 429;
//   - sentinel из таблицы выше — соответствующий статус;
//   - прочее — 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, ErrorResponse{Code: "internal", Detail: "Internal error."}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, ErrorResponse{Code: "validation_error", Detail: ve.Detail}
	}

	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return http.StatusTooManyRequests, ErrorResponse{Code: "rate_limited", Detail: "Too many requests."}
	}

	for _, m := range table {
		if errors.Is(err, m.target) {
			return m.status, ErrorResponse{Code: m.code, Detail: m.detail}
		}
	}

	return http.StatusInternalServerError, ErrorResponse{Code: "internal", Detail: "Internal error."}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет статус и тело, добавляет request_id из заголовка, выставляет
// WWW-Authenticate для 401 и Retry-After для 429.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.RequestID = rid
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	var rl *RateLimitedError
	if errors.As(err, &rl) {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rl.RetryAfter)))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// retryAfterSeconds округляет вверх до целых секунд, минимум 1.
func retryAfterSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}

	return s
}
