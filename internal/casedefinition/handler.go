package casedefinition

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nlportal/internal/authentication"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/httputil"
	"nlportal/pkg/requestcontext"
)

const maxSubmissionBytes = 1 << 20

type CaseService interface {
	Definitions() []*Definition
	Definition(id string) (*Definition, error)
	Submit(ctx context.Context, auth authentication.Authentication, definitionID string, submission json.RawMessage) (*Case, error)
}

type Handler struct {
	service CaseService
	logger  *slog.Logger
}

func NewHandler(service CaseService, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/case-definitions", h.HandleList)
	r.Get("/case-definitions/{id}", h.HandleGet)
	r.Post("/case-definitions/{id}/cases", h.HandleSubmit)
}

type definitionResponse struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema,omitempty"`
}

type caseResponse struct {
	ID               string `json:"id"`
	URL              string `json:"url"`
	CaseDefinitionID string `json:"caseDefinitionId"`
	RegistrationAt   string `json:"registrationAt,omitempty"`
}

type violationResponse struct {
	Error            string   `json:"error"`
	ErrorDescription string   `json:"error_description"`
	Errors           []string `json:"errors"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	defs := h.service.Definitions()
	resp := make([]definitionResponse, len(defs))
	for i, d := range defs {
		resp[i] = definitionResponse{ID: d.ID, Name: d.Name}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Definition(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, definitionResponse{ID: d.ID, Name: d.Name, Schema: d.Schema})
}

// HandleSubmit handles POST /case-definitions/{id}/cases. The body is the
// raw submission validated against the definition's schema.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	auth := authentication.FromContext(ctx)
	if auth == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSubmissionBytes+1))
	if err != nil || len(body) > maxSubmissionBytes || !json.Valid(body) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	definitionID := chi.URLParam(r, "id")
	c, err := h.service.Submit(ctx, auth, definitionID, body)
	if err != nil {
		var violation *SchemaViolation
		if errors.As(err, &violation) {
			h.logger.InfoContext(ctx, "case submission rejected",
				"request_id", requestID,
				"case_definition", definitionID,
				"violations", len(violation.Messages),
			)
			httputil.WriteJSON(w, http.StatusBadRequest, violationResponse{
				Error:            string(dErrors.CodeValidation),
				ErrorDescription: "submission does not match the case definition schema",
				Errors:           violation.Messages,
			})
			return
		}
		h.logger.WarnContext(ctx, "failed to submit case",
			"request_id", requestID,
			"case_definition", definitionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "case submitted",
		"request_id", requestID,
		"case_definition", definitionID,
		"object", c.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, caseResponse{
		ID:               c.ID,
		URL:              c.URL,
		CaseDefinitionID: c.CaseDefinitionID,
		RegistrationAt:   c.RegistrationAt,
	})
}
