package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/logger"
)

// RequestIDHeader is set by the request id middleware before any handler writes.
const RequestIDHeader = "X-Request-Id"

// Success wraps every 2xx body.
type Success struct {
	Data any `json:"data"`
}

// Problem is the machine-readable part of an error response.
type Problem struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Failure wraps every error body.
type Failure struct {
	Error Problem `json:"error"`
}

// Codes whose message was written for the caller and is returned as is.
var clientFacing = []pkgerrors.Code{
	pkgerrors.CodeValidation,
	pkgerrors.CodeForbidden,
	pkgerrors.CodeUnauthorized,
	pkgerrors.CodeNotFound,
	pkgerrors.CodeConflict,
	pkgerrors.CodeStateConflict,
	pkgerrors.CodeIdempotency,
	pkgerrors.CodeInsufficientStock,
	pkgerrors.CodeRateLimit,
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Success{Data: data})
}

// WriteCreated is WriteSuccessStatus with 201.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusCreated, data)
}

// WriteNoContent writes a bare 204.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError maps err onto its HTTP status and error body. Untyped errors become INTERNAL_ERROR
// and never leak their text.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	problem := Problem{
		Code:      string(typed.Code()),
		Message:   meta.PublicMessage,
		RequestID: w.Header().Get(RequestIDHeader),
	}
	if slices.Contains(clientFacing, typed.Code()) && typed.Message() != "" {
		problem.Message = typed.Message()
	}
	if meta.DetailsAllowed && typed.Details() != nil {
		problem.Details = typed.Details()
	}

	if logg != nil {
		logError(ctx, logg, err, meta.HTTPStatus)
	}
	writeJSON(w, meta.HTTPStatus, Failure{Error: problem})
}

func logError(ctx context.Context, logg *logger.Logger, err error, status int) {
	fields := pkgerrors.LogFields(err)
	fields["http_status"] = status
	ctx = logg.WithFields(ctx, fields)
	if status >= http.StatusInternalServerError {
		logg.Error(ctx, "request failed", err)
		return
	}
	logg.Warn(ctx, "request rejected")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
