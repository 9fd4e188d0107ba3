// Package httpx provides the response envelope shared by every public catalog
// operation: {"success": true, "data": ...} or {"success": false, "error": ...}.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform operation result returned to the application.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// OK sends a successful envelope.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// OKWithWarning sends a successful envelope carrying a degradation warning.
func OKWithWarning(w http.ResponseWriter, data any, warning string) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Warning: warning})
}

// Fail sends a failure envelope with the given status.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Error: message})
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// DecodeJSON decodes the JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
