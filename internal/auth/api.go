package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/loomworks/erpconsole/internal/platform/httpx"
	"github.com/loomworks/erpconsole/internal/shared"
	"github.com/loomworks/erpconsole/internal/view"
)

// APIHandler issues and revokes bearer tokens for API clients.
type APIHandler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *shared.SessionManager
	validator *validator.Validate
}

// NewAPIHandler constructs an APIHandler.
func NewAPIHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{logger: logger, service: service, sessions: sessions, validator: validator.New()}
}

// MountRoutes registers /login and /logout.
func (h *APIHandler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      Profile   `json:"user"`
}

func (h *APIHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			httpx.Fail(w, http.StatusBadRequest, "invalid request")
			return
		}
		fe := httpx.FieldErrors{}
		for _, v := range verrs {
			fe[strings.ToLower(v.Field())] = loginFieldMessage(v)
		}
		httpx.RespondEnvelopeError(w, fe)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Fail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := h.sessions.IssueToken(r.Context(), strconv.FormatInt(user.ID, 10), map[string]string{view.SessionEmailKey: user.Email})
	if err != nil {
		h.logger.Error("issue api token", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	expiresAt := time.Now().Add(h.sessions.TTL()).UTC()
	if err := h.service.RegisterSession(r.Context(), token, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register api session", slog.Any("error", err))
	}
	httpx.OK(w, http.StatusOK, "login successful", loginResponse{Token: token, ExpiresAt: expiresAt, User: user.Profile()})
}

func (h *APIHandler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Fail(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
		h.logger.Warn("remove api session", slog.Any("error", err))
	}
	h.sessions.Destroy(sess)
	httpx.OK(w, http.StatusOK, "logged out", nil)
}

func loginFieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
