package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-irclimate/internal/bridges/ir"
)

// Error is the body of every non-2xx response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeInternal    = "internal_error"
	ErrCodeValidation  = "validation_error"
	ErrCodeUnavailable = "service_unavailable"
)

var statusCodes = map[int]string{
	http.StatusBadRequest:          ErrCodeBadRequest,
	http.StatusNotFound:            ErrCodeNotFound,
	http.StatusUnprocessableEntity: ErrCodeValidation,
	http.StatusServiceUnavailable:  ErrCodeUnavailable,
}

// commandErrors maps bridge sentinels to a status. An empty message means
// the error text is returned to the client.
var commandErrors = []struct {
	target  error
	status  int
	message string
}{
	{ir.ErrDeviceNotFound, http.StatusNotFound, "climate device not found"},
	{ir.ErrInvalidCommand, http.StatusBadRequest, ""},
	{ir.ErrInvalidParameters, http.StatusBadRequest, ""},
	{ir.ErrUnsupportedValue, http.StatusUnprocessableEntity, ""},
	{ir.ErrNotRunning, http.StatusServiceUnavailable, "bridge is not running"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(v)
}

// writeError writes an Error whose code follows from status.
func writeError(w http.ResponseWriter, status int, message string) {
	code, ok := statusCodes[status]
	if !ok {
		code = ErrCodeInternal
	}
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, message)
}

// commandStatus returns the response status and message for a bridge error.
// ok is false for unexpected errors.
func commandStatus(err error) (status int, message string, ok bool) {
	for _, ce := range commandErrors {
		if errors.Is(err, ce.target) {
			message = ce.message
			if message == "" {
				message = err.Error()
			}
			return ce.status, message, true
		}
	}
	return http.StatusInternalServerError, "climate request failed", false
}
