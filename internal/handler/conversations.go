package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agentdesk/admin-platform/internal/apperr"
	"github.com/agentdesk/admin-platform/internal/middleware"
	"github.com/agentdesk/admin-platform/internal/model"
	"github.com/agentdesk/admin-platform/internal/permission"
	"github.com/agentdesk/admin-platform/internal/service"
	"github.com/agentdesk/admin-platform/internal/validate"
	"github.com/agentdesk/admin-platform/pkg/logger"
)

// ConversationHandler handles conversation listing, search, and the
// trash lifecycle endpoints.
type ConversationHandler struct {
	conversations *service.ConversationService
	logger        *logger.Logger
}

// NewConversationHandler creates a conversation handler.
func NewConversationHandler(convs *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: convs, logger: log}
}

func principal(w http.ResponseWriter, r *http.Request) (permission.Principal, bool) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, apperr.Unauthenticated("authentication required"))
	}
	return p, ok
}

// pathID parses the {id} route parameter.
func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, res := validate.ID(chi.URLParam(r, "id"))
	if !res.Valid {
		writeValidation(w, res.Errors)
		return 0, false
	}
	return id, true
}

type bulkRequest struct {
	IDs json.RawMessage `json:"ids"`
}

func bulkIDs(w http.ResponseWriter, r *http.Request) ([]uint, bool) {
	var req bulkRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return nil, false
	}
	ids, res := validate.BulkIDs(req.IDs)
	if !res.Valid {
		writeValidation(w, res.Errors)
		return nil, false
	}
	return ids, true
}

// List handles GET /api/conversations.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	opts := service.ListOptions{
		Status: model.ConversationStatus(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("agentId"); raw != "" {
		agentID, res := validate.ID(raw)
		if !res.Valid {
			writeValidation(w, []string{"agentId must be a positive integer"})
			return
		}
		opts.AgentID = &agentID
	}

	convs, page, err := h.conversations.List(r.Context(), p, opts, pageParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, convs, page)
}

// Search handles GET /api/conversations/search.
func (h *ConversationHandler) Search(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	query, res := validate.SearchQuery(r.URL.Query().Get("q"))
	if !res.Valid {
		writeValidation(w, res.Errors)
		return
	}

	convs, page, err := h.conversations.Search(r.Context(), p, query, pageParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, convs, page)
}

// Get handles GET /api/conversations/{id}.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	conv, err := h.conversations.Get(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, conv)
}

// Delete handles DELETE /api/conversations/{id}: moves the row to trash.
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.conversations.SoftDelete(r.Context(), p, id); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "conversation moved to trash", nil)
}

// Restore handles POST /api/conversations/{id}/restore.
func (h *ConversationHandler) Restore(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.conversations.Restore(r.Context(), p, id); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "conversation restored", nil)
}

// BulkDelete handles POST /api/conversations/bulk-delete.
func (h *ConversationHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	ids, ok := bulkIDs(w, r)
	if !ok {
		return
	}

	count, err := h.conversations.BulkSoftDelete(r.Context(), p, ids)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "conversations moved to trash", map[string]int64{"deleted": count})
}

// BulkRestore handles POST /api/conversations/bulk-restore.
func (h *ConversationHandler) BulkRestore(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	ids, ok := bulkIDs(w, r)
	if !ok {
		return
	}

	count, err := h.conversations.BulkRestore(r.Context(), p, ids)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "conversations restored", map[string]int64{"restored": count})
}

// ListTrash handles GET /api/conversations/trash.
func (h *ConversationHandler) ListTrash(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	convs, page, err := h.conversations.ListTrash(r.Context(), p, pageParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, convs, page)
}

// EmptyTrash handles DELETE /api/conversations/trash/empty. Admin only.
func (h *ConversationHandler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	count, err := h.conversations.EmptyTrash(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "trash emptied", map[string]int64{"purged": count})
}

// PermanentDelete handles DELETE /api/conversations/{id}/permanent.
// Admin only; the row is gone for good.
func (h *ConversationHandler) PermanentDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.conversations.PermanentDelete(r.Context(), p, id); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "conversation permanently deleted", nil)
}
