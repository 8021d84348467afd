// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	"net/http"
)

// body is the JSON shape of every error response.
type body struct {
	Errors []string `json:"errors"`
}

// Handler serves the router-level error responses.
// No DB needed.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers requests that match no route.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	Render(w, http.StatusNotFound, "Not found")
}

// MethodNotAllowed answers requests whose path matched with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Render(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// Render writes {"errors":[...]} with the given status.
func Render(w http.ResponseWriter, status int, msgs ...string) {
	if msgs == nil {
		msgs = []string{}
	}
	WriteJSON(w, status, body{Errors: msgs})
}

// WriteJSON writes v as the JSON response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
