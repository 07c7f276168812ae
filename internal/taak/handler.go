package taak

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nlportal/internal/authentication"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/httputil"
	"nlportal/pkg/requestcontext"
)

type TaakService interface {
	ListOpen(ctx context.Context, auth authentication.Authentication) ([]Taak, error)
	Get(ctx context.Context, auth authentication.Authentication, id string) (*Taak, error)
}

type Handler struct {
	service TaakService
	logger  *slog.Logger
}

func NewHandler(service TaakService, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/taken", h.HandleList)
	r.Get("/taken/{id}", h.HandleGet)
}

// TaakResponse is the JSON form of a task.
type TaakResponse struct {
	ID            string          `json:"id"`
	Titel         string          `json:"titel"`
	Status        string          `json:"status"`
	FormulierType string          `json:"formulierType"`
	Formulier     string          `json:"formulier"`
	Zaak          string          `json:"zaak,omitempty"`
	Verloopdatum  string          `json:"verloopdatum,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

func fromTaak(t Taak) TaakResponse {
	return TaakResponse{
		ID:            t.ID,
		Titel:         t.Titel,
		Status:        t.Status,
		FormulierType: t.Formulier.Type,
		Formulier:     t.Formulier.Value,
		Zaak:          t.Zaak,
		Verloopdatum:  t.Verloopdatum,
		Data:          t.Data.Data,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auth := authentication.FromContext(ctx)
	if auth == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	taken, err := h.service.ListOpen(ctx, auth)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to list taken",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	resp := make([]TaakResponse, len(taken))
	for i, t := range taken {
		resp[i] = fromTaak(t)
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

	t, err := h.service.Get(ctx, auth, chi.URLParam(r, "id"))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to get taak",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromTaak(*t))
}
