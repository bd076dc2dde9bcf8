// Package httpx provides HTTP response utilities following RFC7807 problem
// details. Unlike the upstream it fronts, the gateway always answers the
// console with a single, predictable envelope: {"data": ..., "pagination": ...}.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Envelope is the single response shape the gateway emits.
type Envelope struct {
	Data       any `json:"data"`
	Pagination any `json:"pagination,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Data wraps the payload in the gateway envelope.
func Data(w http.ResponseWriter, status int, payload any) {
	JSON(w, status, Envelope{Data: payload})
}

// Paginated wraps a list payload together with pagination metadata.
func Paginated(w http.ResponseWriter, status int, payload, pagination any) {
	JSON(w, status, Envelope{Data: payload, Pagination: pagination})
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	JSON(w, status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
