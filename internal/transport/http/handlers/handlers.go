package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/go-auth-service/internal/metrics"
	"github.com/pribylovaa/go-auth-service/internal/models"
	apierrors "github.com/pribylovaa/go-auth-service/internal/transport/http/errors"
)

//go:generate mockgen -source=handlers.go -destination=../../../../mocks/mock_handlers.go -package=mocks

// AuthService — операции сервисного слоя, которые обслуживает HTTP.
type AuthService interface {
	Register(ctx context.Context, email, password string) (string, error)
	Verify(ctx context.Context, code string) error
	Login(ctx context.Context, email, password string) (*models.TokenPair, *models.Account, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	CurrentUser(ctx context.Context, accessToken string) (*models.Account, error)
}

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	Auth    AuthService
	Metrics *metrics.Metrics
}

func New(auth AuthService, m *metrics.Metrics) *Handlers {
	return &Handlers{Auth: auth, Metrics: m}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// fail пишет ошибку и учитывает исход операции в метриках.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	_, resp := apierrors.ToHTTP(err)
	h.Metrics.AuthOutcome(op, resp.Code)
	apierrors.WriteError(w, r, err)
}

func (h *Handlers) ok(op string) {
	h.Metrics.AuthOutcome(op, "ok")
}

var errBadBody = apierrors.Invalid("Invalid request body.")
