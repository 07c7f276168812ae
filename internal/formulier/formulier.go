// Package formulier lists the OpenFormulieren forms a portal user can start.
package formulier

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nlportal/internal/authentication"
	"nlportal/internal/registry/openformulieren"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/httputil"
	"nlportal/pkg/platform/sentinel"
	"nlportal/pkg/requestcontext"
)

type Registry interface {
	ListForms(ctx context.Context, auth authentication.Authentication) ([]openformulieren.Form, error)
	GetForm(ctx context.Context, auth authentication.Authentication, id string) (*openformulieren.Form, error)
}

// ErrFormNotFound covers both unknown and unavailable forms.
var ErrFormNotFound = dErrors.New(dErrors.CodeNotFound, "formulier not found")

type Handler struct {
	registry Registry
	logger   *slog.Logger
}

func New(registry Registry, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/formulieren", h.HandleList)
	r.Get("/formulieren/{id}", h.HandleGet)
}

// FormResponse is one entry of GET /api/formulieren.
type FormResponse struct {
	UUID          string `json:"uuid"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	URL           string `json:"url"`
	LoginRequired bool   `json:"loginRequired"`
}

func fromForm(f openformulieren.Form) FormResponse {
	return FormResponse{
		UUID:          f.UUID,
		Name:          f.Name,
		Slug:          f.Slug,
		URL:           f.URL,
		LoginRequired: f.LoginRequired,
	}
}

// HandleList answers with the available forms only.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auth := authentication.FromContext(ctx)
	if auth == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	forms, err := h.registry.ListForms(ctx, auth)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to list formulieren",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := make([]FormResponse, 0, len(forms))
	for _, f := range forms {
		if f.Available() {
			resp = append(resp, fromForm(f))
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auth := authentication.FromContext(ctx)
	if auth == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	form, err := h.registry.GetForm(ctx, auth, chi.URLParam(r, "id"))
	if errors.Is(err, sentinel.ErrNotFound) || (err == nil && !form.Available()) {
		httputil.WriteError(w, ErrFormNotFound)
		return
	}
	if err != nil {
		h.logger.WarnContext(ctx, "failed to get formulier",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromForm(*form))
}
