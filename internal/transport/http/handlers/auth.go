package handlers

import (
	"log/slog"
	"mime"
	"net/http"
	"unicode/utf8"

	"github.com/pribylovaa/go-auth-service/internal/cache"
	"github.com/pribylovaa/go-auth-service/internal/pkg/log"
	apierrors "github.com/pribylovaa/go-auth-service/internal/transport/http/errors"
	"github.com/pribylovaa/go-auth-service/internal/transport/http/middleware"
)

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type emailResponse struct {
	Email string `json:"email"`
}

type verificationRequest struct {
	VerificationCode string `json:"verificationCode"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Email        string `json:"email"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokensResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Register — POST /auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	const op = "register"

	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		h.fail(w, r, op, errBadBody)
		return
	}

	if in.Password != in.ConfirmPassword {
		h.fail(w, r, op, apierrors.Invalid("Passwords do not match."))
		return
	}

	ctx := log.With(r.Context(), slog.String("op", op))
	email, err := h.Auth.Register(ctx, in.Email, in.Password)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}

	h.ok(op)
	writeJSON(w, http.StatusCreated, emailResponse{Email: email})
}

// Verification — POST /auth/verification.
func (h *Handlers) Verification(w http.ResponseWriter, r *http.Request) {
	const op = "verification"

	var in verificationRequest
	if err := decodeStrict(r, &in); err != nil {
		h.fail(w, r, op, errBadBody)
		return
	}

	if utf8.RuneCountInString(in.VerificationCode) != cache.CodeLength {
		h.fail(w, r, op, apierrors.Invalid("Verification code must be exactly 6 characters."))
		return
	}

	ctx := log.With(r.Context(), slog.String("op", op))
	if err := h.Auth.Verify(ctx, in.VerificationCode); err != nil {
		h.fail(w, r, op, err)
		return
	}

	h.ok(op)
	writeJSON(w, http.StatusOK, detailResponse{Detail: "Verified successfully."})
}

// Login — POST /auth/login. Принимает JSON {email, password}
// или форму OAuth2 password flow (username/password).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	const op = "login"

	in, err := readLogin(r)
	if err != nil {
		h.fail(w, r, op, errBadBody)
		return
	}

	ctx := log.With(r.Context(), slog.String("op", op))
	pair, account, err := h.Auth.Login(ctx, in.Email, in.Password)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}

	h.ok(op)
	writeJSON(w, http.StatusOK, loginResponse{
		Email:        account.Email,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

const maxFormMemory = 1 << 20

func readLogin(r *http.Request) (loginRequest, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		var err error
		if mt == "multipart/form-data" {
			err = r.ParseMultipartForm(maxFormMemory)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return loginRequest{}, err
		}
		return loginRequest{
			Email:    r.PostForm.Get("username"),
			Password: r.PostForm.Get("password"),
		}, nil
	default:
		var in loginRequest
		err := decodeStrict(r, &in)
		return in, err
	}
}

// Me — GET /auth/me. Токен кладёт мидлвар AuthBearer.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	const op = "me"

	token, ok := middleware.BearerToken(r.Context())
	if !ok {
		h.fail(w, r, op, apierrors.ErrNotAuthenticated)
		return
	}

	account, err := h.Auth.CurrentUser(r.Context(), token)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}

	h.ok(op)
	writeJSON(w, http.StatusOK, emailResponse{Email: account.Email})
}

// Refresh — POST /auth/refresh.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	const op = "refresh"

	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		h.fail(w, r, op, errBadBody)
		return
	}

	ctx := log.With(r.Context(), slog.String("op", op))
	pair, err := h.Auth.Refresh(ctx, in.RefreshToken)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}

	h.ok(op)
	writeJSON(w, http.StatusOK, tokensResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}
