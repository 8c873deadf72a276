package httpapi

import (
	"encoding/json"
	"net/http"

	"damod/internal/engine"
	"damod/internal/registry"
	"damod/internal/residency"
	"damod/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps the typed controller/registry/engine outcomes onto
// HTTP status codes.
func statusForError(err error) int {
	switch {
	case engine.IsUnsupportedTask(err):
		return http.StatusBadRequest
	case registry.IsNotFound(err):
		return http.StatusNotFound
	case registry.IsUnauthorized(err):
		return http.StatusForbidden
	case residency.IsInsufficientCapacity(err):
		IncrementCapacityReject("eviction_impossible")
		return http.StatusInsufficientStorage
	case residency.IsTimeout(err):
		return http.StatusGatewayTimeout
	case registry.IsFetchFailed(err):
		return http.StatusBadGateway
	case residency.IsLoadFailed(err):
		return http.StatusBadGateway
	case residency.IsInvariantViolation(err):
		return http.StatusInternalServerError
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
