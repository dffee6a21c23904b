package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dukerupert/basket/internal/service"
)

const maxBodyBytes = 1 << 20

// envelope is the result shape every endpoint returns.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// writeError renders a service error with the status its Kind maps to.
func writeError(w http.ResponseWriter, err error) {
	writeFailure(w, statusFor(service.KindOf(err)), err.Error())
}

func statusFor(k service.Kind) int {
	switch k {
	case service.KindInvalidInput:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindLocked:
		return http.StatusLocked
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindAlreadyLocked, service.KindAlreadyOwner, service.KindNotActive, service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeFailure(w, http.StatusBadRequest, "invalid JSON")
	return false
}
