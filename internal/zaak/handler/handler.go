package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nlportal/internal/authentication"
	"nlportal/internal/zaak"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/httputil"
	"nlportal/pkg/requestcontext"
)

// Service defines the interface for zaak operations.
type Service interface {
	List(ctx context.Context, auth authentication.Authentication) ([]zaak.Zaak, error)
	Get(ctx context.Context, auth authentication.Authentication, id string) (*zaak.Detail, error)
}

// Handler serves the zaken endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a zaak handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts zaak endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/zaken", h.HandleList)
	r.Get("/zaken/{id}", h.HandleGet)
}

// HandleList handles GET /zaken.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	auth := authentication.FromContext(ctx)
	if auth == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	zaken, err := h.service.List(ctx, auth)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list zaken",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromZaken(zaken))
}

// HandleGet handles GET /zaken/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	auth := authentication.FromContext(ctx)
	if auth == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	id := chi.URLParam(r, "id")
	detail, err := h.service.Get(ctx, auth, id)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.WarnContext(ctx, "zaak not found",
				"request_id", requestID,
				"zaak_id", id,
			)
		} else {
			h.logger.ErrorContext(ctx, "failed to get zaak",
				"request_id", requestID,
				"zaak_id", id,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromDetail(detail))
}
