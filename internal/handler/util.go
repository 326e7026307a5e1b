// Package handler exposes the HTTP surface: JSON envelopes over the
// service layer plus the public SSE chat relay.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/agentdesk/admin-platform/internal/apperr"
	"github.com/agentdesk/admin-platform/internal/pagination"
)

// envelope is the uniform response shape.
type envelope struct {
	Success    bool                 `json:"success"`
	Data       any                  `json:"data,omitempty"`
	Message    string               `json:"message,omitempty"`
	Pagination *pagination.Response `json:"pagination,omitempty"`
	Error      string               `json:"error,omitempty"`
	Details    []string             `json:"details,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeData writes a success envelope.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeMessage writes a success envelope with a message and no data.
func writeMessage(w http.ResponseWriter, status int, msg string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: msg, Data: data})
}

// writePage writes a success envelope with pagination metadata.
func writePage(w http.ResponseWriter, data any, page pagination.Response) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Pagination: &page})
}

// writeError maps an application error onto the envelope. Internal error
// details never reach the client.
func writeError(w http.ResponseWriter, err error) {
	e := apperr.From(err)
	writeJSON(w, e.HTTPStatus(), envelope{
		Success: false,
		Error:   e.Message,
		Details: e.Details,
	})
}

// writeValidation writes a 400 listing every violated rule.
func writeValidation(w http.ResponseWriter, details []string) {
	writeJSON(w, http.StatusBadRequest, envelope{
		Success: false,
		Error:   "validation failed",
		Details: details,
	})
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

// pageParams parses the page/limit query parameters.
func pageParams(r *http.Request) pagination.Params {
	q := r.URL.Query()
	return pagination.Parse(q.Get("page"), q.Get("limit"))
}
