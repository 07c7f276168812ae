// Package httputil holds the JSON envelope helpers shared by every handler.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "nlportal/pkg/domain-errors"
)

// maxBodyBytes bounds every decoded request body.
const maxBodyBytes = 1 << 20

// Validatable is implemented by request DTOs that normalise and validate
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// DownstreamStatus is implemented by errors that carry the status code a
// registry answered with.
type DownstreamStatus interface {
	DownstreamStatus() int
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into the JSON error envelope. Internal errors
// never expose their description.
func WriteError(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	resp := errorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.ErrorDescription = de.Message
		}
	}
	WriteJSON(w, status, resp)
}

// StatusFor maps an error to its HTTP status and client-facing code.
func StatusFor(err error) (int, dErrors.Code) {
	var ds DownstreamStatus
	if !dErrors.HasCode(err, dErrors.CodeInternal) && errors.As(err, &ds) {
		switch status := ds.DownstreamStatus(); {
		case status == 0:
			return http.StatusServiceUnavailable, dErrors.CodeUnavailable
		case status == http.StatusNotFound:
			return http.StatusNotFound, dErrors.CodeNotFound
		case status == http.StatusUnauthorized, status == http.StatusForbidden:
			// credentials towards the registry failed; not the caller's fault
			return http.StatusBadGateway, dErrors.CodeBadGateway
		case status >= 400 && status < 500:
			return status, dErrors.CodeBadRequest
		default:
			return http.StatusBadGateway, dErrors.CodeBadGateway
		}
	}

	code := dErrors.GetCode(err)
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest, code
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized, code
	case dErrors.CodeForbidden:
		return http.StatusForbidden, code
	case dErrors.CodeNotFound:
		return http.StatusNotFound, code
	case dErrors.CodeConflict:
		return http.StatusConflict, code
	case dErrors.CodeBadGateway:
		return http.StatusBadGateway, code
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable, code
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout, code
	default:
		return http.StatusInternalServerError, dErrors.CodeInternal
	}
}

// DecodeAndPrepare decodes the JSON body into T and runs its validation.
// On failure it writes the error response and returns ok=false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return nil, false
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.WarnContext(ctx, "request validation failed",
				"request_id", requestID,
				"error", err,
			)
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
