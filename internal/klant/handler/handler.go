package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nlportal/internal/authentication"
	"nlportal/internal/klant"
	"nlportal/internal/registry/openklant"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/httputil"
	"nlportal/pkg/requestcontext"
)

// Service defines the interface for klant operations.
type Service interface {
	Get(ctx context.Context, auth authentication.Authentication) (*openklant.Klant, error)
	UpdateContact(ctx context.Context, auth authentication.Authentication, update openklant.KlantUpdate) (*openklant.Klant, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/klant", h.HandleGet)
	r.Patch("/klant", h.HandleUpdate)
}

// UpdateContactRequest is the PATCH /api/klant body.
type UpdateContactRequest struct {
	Emailadres     *string `json:"emailadres"`
	Telefoonnummer *string `json:"telefoonnummer"`
}

func (r *UpdateContactRequest) Validate() error {
	if r.Emailadres == nil && r.Telefoonnummer == nil {
		return klant.ErrNothingToPatch
	}
	return nil
}

// KlantResponse is the JSON form of a klant.
type KlantResponse struct {
	Klantnummer    string `json:"klantnummer"`
	Voornaam       string `json:"voornaam,omitempty"`
	Achternaam     string `json:"achternaam,omitempty"`
	Bedrijfsnaam   string `json:"bedrijfsnaam,omitempty"`
	Emailadres     string `json:"emailadres,omitempty"`
	Telefoonnummer string `json:"telefoonnummer,omitempty"`
}

func fromKlant(k *openklant.Klant) KlantResponse {
	return KlantResponse{
		Klantnummer:    k.Klantnummer,
		Voornaam:       k.Voornaam,
		Achternaam:     k.Achternaam,
		Bedrijfsnaam:   k.Bedrijfsnaam,
		Emailadres:     k.Emailadres,
		Telefoonnummer: k.Telefoonnummer,
	}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auth := authentication.FromContext(ctx)
	if auth == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	k, err := h.service.Get(ctx, auth)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to get klant",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromKlant(k))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	auth := authentication.FromContext(ctx)
	if auth == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateContactRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	k, err := h.service.UpdateContact(ctx, auth, openklant.KlantUpdate{
		Emailadres:     req.Emailadres,
		Telefoonnummer: req.Telefoonnummer,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to update klant",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "klant contact updated",
		"request_id", requestID,
		"klantnummer", k.Klantnummer,
	)
	httputil.WriteJSON(w, http.StatusOK, fromKlant(k))
}
