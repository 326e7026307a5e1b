package handler

import (
	"net/http"

	"github.com/agentdesk/admin-platform/internal/model"
	"github.com/agentdesk/admin-platform/internal/service"
	"github.com/agentdesk/admin-platform/internal/validate"
	"github.com/agentdesk/admin-platform/pkg/logger"
)

// AgentHandler handles agent CRUD and access assignments.
type AgentHandler struct {
	agents *service.AgentService
	logger *logger.Logger
}

// NewAgentHandler creates an agent handler.
func NewAgentHandler(agents *service.AgentService, log *logger.Logger) *AgentHandler {
	return &AgentHandler{agents: agents, logger: log}
}

type agentRequest struct {
	Name     string `json:"name"`
	PageURL  string `json:"page_url"`
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	Status   string `json:"status"`
}

// Create handles POST /api/agents.
func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req agentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if res := validate.Required(map[string]string{
		"name":     req.Name,
		"page_url": req.PageURL,
		"api_key":  req.APIKey,
	}); !res.Valid {
		writeValidation(w, res.Errors)
		return
	}

	agent := &model.Agent{
		Name:     req.Name,
		PageURL:  req.PageURL,
		Provider: model.Provider(req.Provider),
		APIKey:   req.APIKey,
		Status:   model.AgentStatus(req.Status),
	}
	if err := h.agents.Create(r.Context(), p, agent); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, agent)
}

// Get handles GET /api/agents/{id}.
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	agent, err := h.agents.Get(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, agent)
}

// List handles GET /api/agents.
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	agents, page, err := h.agents.List(r.Context(), p, pageParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, agents, page)
}

// Update handles PUT /api/agents/{id}.
func (h *AgentHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req agentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	agent := &model.Agent{
		ID:       id,
		Name:     req.Name,
		PageURL:  req.PageURL,
		Provider: model.Provider(req.Provider),
		APIKey:   req.APIKey,
		Status:   model.AgentStatus(req.Status),
	}
	if err := h.agents.Update(r.Context(), p, agent); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "agent updated", nil)
}

// Delete handles DELETE /api/agents/{id}.
func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.agents.Delete(r.Context(), p, id); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "agent deleted", nil)
}

type assignmentRequest struct {
	UserID      uint   `json:"user_id"`
	AccessLevel string `json:"access_level"`
}

// Assign handles POST /api/agents/{id}/assignments.
func (h *AgentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	agentID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req assignmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UserID == 0 {
		writeValidation(w, []string{"user_id must be a positive integer"})
		return
	}
	level := model.AccessLevel(req.AccessLevel)
	if level == "" {
		level = model.AccessUser
	}

	if err := h.agents.Assign(r.Context(), p, agentID, req.UserID, level); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, "agent assigned", nil)
}

// Unassign handles DELETE /api/agents/{id}/assignments.
func (h *AgentHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	agentID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req assignmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UserID == 0 {
		writeValidation(w, []string{"user_id must be a positive integer"})
		return
	}

	if err := h.agents.Unassign(r.Context(), p, agentID, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "agent unassigned", nil)
}
