package handler

import (
	"net/http"
	"time"

	"github.com/agentdesk/admin-platform/internal/apperr"
	"github.com/agentdesk/admin-platform/internal/middleware"
	"github.com/agentdesk/admin-platform/internal/model"
	"github.com/agentdesk/admin-platform/internal/service"
	"github.com/agentdesk/admin-platform/internal/validate"
	"github.com/agentdesk/admin-platform/pkg/logger"
)

// AuthHandler handles registration, login, and identity lookup.
type AuthHandler struct {
	users         *service.UserService
	jwtSecret     string
	jwtExpiration time.Duration
	logger        *logger.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(users *service.UserService, jwtSecret string, jwtExpiration time.Duration, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		users:         users,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		logger:        log,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if res := validate.Required(map[string]string{
		"name":     req.Name,
		"email":    req.Email,
		"password": req.Password,
	}); !res.Valid {
		writeValidation(w, res.Errors)
		return
	}

	user, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := middleware.IssueToken(h.jwtSecret, user, h.jwtExpiration)
	if err != nil {
		writeError(w, apperr.Internal("failed to issue token", err))
		return
	}
	writeData(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if res := validate.Required(map[string]string{
		"email":    req.Email,
		"password": req.Password,
	}); !res.Valid {
		writeValidation(w, res.Errors)
		return
	}

	user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := middleware.IssueToken(h.jwtSecret, user, h.jwtExpiration)
	if err != nil {
		writeError(w, apperr.Internal("failed to issue token", err))
		return
	}
	writeData(w, http.StatusOK, authResponse{Token: token, User: user})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, apperr.Unauthenticated("authentication required"))
		return
	}

	user, err := h.users.ByID(r.Context(), p.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, user)
}
