package handler

import (
	"net/http"

	"github.com/agentdesk/admin-platform/internal/model"
	"github.com/agentdesk/admin-platform/internal/service"
	"github.com/agentdesk/admin-platform/pkg/logger"
)

// UserHandler handles admin user management.
type UserHandler struct {
	users  *service.UserService
	logger *logger.Logger
}

// NewUserHandler creates a user handler.
func NewUserHandler(users *service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{users: users, logger: log}
}

// List handles GET /api/users. Admin only.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	users, page, err := h.users.List(r.Context(), p, pageParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, users, page)
}

// Get handles GET /api/users/{id}. The route is admin-gated by
// middleware.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	user, err := h.users.ByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active *bool  `json:"active"`
}

// Update handles PUT /api/users/{id}. Admin only; may rename, change
// role, or toggle the active flag.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	user, err := h.users.Update(r.Context(), p, id, req.Name, model.Role(req.Role), active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, user)
}
