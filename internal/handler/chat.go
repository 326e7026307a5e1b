package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agentdesk/admin-platform/internal/service"
	"github.com/agentdesk/admin-platform/internal/validate"
	"github.com/agentdesk/admin-platform/pkg/logger"
	"github.com/agentdesk/admin-platform/pkg/metrics"
)

// ChatHandler serves the public chat relay. Callers are anonymous; the
// agent is addressed by its page slug.
type ChatHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(chat *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: log}
}

type chatRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type tokenEvent struct {
	Token string `json:"token"`
	Index int    `json:"index"`
}

type errorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Relay handles POST /api/chat/{slug}. The provider response is streamed
// to the caller as SSE token events, followed by a done event carrying
// the persisted turn.
func (h *ChatHandler) Relay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if res := validate.Required(map[string]string{"query": req.Query}); !res.Valid {
		writeValidation(w, res.Errors)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("handler: streaming not supported"))
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	result, err := h.chat.Relay(ctx, slug, req.SessionID, req.Query, func(chunk string, index int) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		return sendSSEEvent(w, flusher, "token", &tokenEvent{Token: chunk, Index: index})
	})
	if err != nil {
		h.logger.Error("chat relay failed", "slug", slug, "error", err)
		sendSSEEvent(w, flusher, "error", &errorEvent{
			Code:    "relay_error",
			Message: "chat request failed",
		})
		return
	}

	sendSSEEvent(w, flusher, "done", result)
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
