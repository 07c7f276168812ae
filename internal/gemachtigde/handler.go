package gemachtigde

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nlportal/internal/authentication"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/httputil"
	"nlportal/pkg/requestcontext"
)

type Resolver interface {
	Resolve(ctx context.Context, auth authentication.Authentication) (*Machtiging, error)
}

type Handler struct {
	resolver Resolver
	logger   *slog.Logger
}

func NewHandler(resolver Resolver, logger *slog.Logger) *Handler {
	return &Handler{resolver: resolver, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/gemachtigde", h.HandleGet)
}

type partyResponse struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Naam string `json:"naam,omitempty"`
}

type machtigingResponse struct {
	Gemachtigde       partyResponse `json:"gemachtigde"`
	Vertegenwoordigde partyResponse `json:"vertegenwoordigde"`
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auth := authentication.FromContext(ctx)
	if auth == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	m, err := h.resolver.Resolve(ctx, auth)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to resolve gemachtigde",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, machtigingResponse{
		Gemachtigde:       partyResponse{Type: string(m.Gemachtigde.Kind), ID: m.Gemachtigde.ID, Naam: m.Gemachtigde.Naam},
		Vertegenwoordigde: partyResponse{Type: string(m.Vertegenwoordigde.Kind), ID: m.Vertegenwoordigde.ID, Naam: m.Vertegenwoordigde.Naam},
	})
}
