package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ignite/signup-capture/internal/domain"
	"github.com/ignite/signup-capture/internal/pkg/logger"
)

// ErrEmptyBody is returned by Decode when the request has no body.
var ErrEmptyBody = errors.New("empty request body")

// JSON writes a JSON response with the given status code. The data is
// serialized and Content-Type is set automatically.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("httputil: JSON encode error", "error", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Fail writes a user-facing rejection: {"success": false, "message": ...}.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, domain.FailureResponse{Success: false, Message: message})
}

// BadRequest writes a 400 rejection.
func BadRequest(w http.ResponseWriter, message string) {
	Fail(w, http.StatusBadRequest, message)
}

// InternalError writes a 500 carrying the error text verbatim and logs it.
func InternalError(w http.ResponseWriter, err error) {
	logger.Error("httputil: internal error", "error", err)
	JSON(w, http.StatusInternalServerError, domain.ErrorResponse{Success: false, Error: err.Error()})
}

// Decode reads one JSON value from the request body into dst. An absent
// or empty body yields ErrEmptyBody.
func Decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return ErrEmptyBody
	}
	return err
}
