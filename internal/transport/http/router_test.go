package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-auth-service/internal/models"
	"github.com/pribylovaa/go-auth-service/mocks"
)

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 2 * time.Second, nil
}

func silent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRouter_RoutesAndRequestID(t *testing.T) {
	ctrl := gomock.NewController(t)
	auth := mocks.NewMockAuthService(ctrl)
	auth.EXPECT().CurrentUser(gomock.Any(), "acc").Return(&models.Account{Email: "a@x.com"}, nil)

	srv := httptest.NewServer(NewRouter(auth, Options{Logger: silent(), Timeout: time.Second}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer acc")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp2, err := http.Get(srv.URL + "/auth/unknown")
	require.NoError(t, err)
	resp2.Body.Close()
	require.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestRouter_LoginIsRateLimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	auth := mocks.NewMockAuthService(ctrl)

	h := NewRouter(auth, Options{Logger: silent(), Limiter: denyAll{}})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@x.com","password":"p"}`))
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "2", rr.Header().Get("Retry-After"))
	require.Contains(t, rr.Body.String(), `"request_id"`)
}

func TestRouter_BasePath(t *testing.T) {
	ctrl := gomock.NewController(t)
	auth := mocks.NewMockAuthService(ctrl)
	auth.EXPECT().Verify(gomock.Any(), "a1b2c3").Return(nil)

	h := NewRouter(auth, Options{Logger: silent(), BasePath: "/api"})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/verification", strings.NewReader(`{"verificationCode":"a1b2c3"}`))
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
}
