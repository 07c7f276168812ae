// Package bedrijf serves the Handelsregister record of the signed-in company.
package bedrijf

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nlportal/internal/authentication"
	"nlportal/internal/registry/hr"
	"nlportal/pkg/domain"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/httputil"
	"nlportal/pkg/platform/sentinel"
	"nlportal/pkg/requestcontext"
)

// Registry is the subset of the HR API the handler uses.
type Registry interface {
	GetMaatschappelijkeActiviteit(ctx context.Context, auth authentication.Authentication, kvk domain.KVKNumber) (*hr.MaatschappelijkeActiviteit, error)
}

var (
	ErrCompanyOnly     = dErrors.New(dErrors.CodeForbidden, "only available to companies")
	ErrCompanyNotFound = dErrors.New(dErrors.CodeNotFound, "bedrijf not found")
)

type Handler struct {
	registry Registry
	logger   *slog.Logger
}

func New(registry Registry, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/bedrijven/me", h.HandleMe)
}

type adresResponse struct {
	Type       string `json:"type"`
	Straat     string `json:"straat"`
	Huisnummer int    `json:"huisnummer"`
	Postcode   string `json:"postcode"`
	Plaats     string `json:"plaats"`
}

// BedrijfResponse is the body of GET /api/bedrijven/me.
type BedrijfResponse struct {
	KvkNummer        string          `json:"kvkNummer"`
	Naam             string          `json:"naam"`
	Registratiedatum string          `json:"registratiedatum,omitempty"`
	Handelsnamen     []string        `json:"handelsnamen"`
	Adressen         []adresResponse `json:"adressen"`
}

func fromActiviteit(m *hr.MaatschappelijkeActiviteit) BedrijfResponse {
	resp := BedrijfResponse{
		KvkNummer:        m.KvkNummer,
		Naam:             m.Naam,
		Registratiedatum: m.FormeleRegistratiedatum,
		Handelsnamen:     make([]string, 0, len(m.Handelsnamen)),
		Adressen:         make([]adresResponse, 0, len(m.Adressen)),
	}
	for _, n := range m.Handelsnamen {
		resp.Handelsnamen = append(resp.Handelsnamen, n.Naam)
	}
	for _, a := range m.Adressen {
		resp.Adressen = append(resp.Adressen, adresResponse{
			Type:       a.Type,
			Straat:     a.Straatnaam,
			Huisnummer: a.Huisnummer,
			Postcode:   a.Postcode,
			Plaats:     a.Plaats,
		})
	}
	return resp
}

// HandleMe handles GET /bedrijven/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	company, ok := authentication.FromContext(ctx).(*authentication.Company)
	if !ok {
		httputil.WriteError(w, ErrCompanyOnly)
		return
	}

	m, err := h.registry.GetMaatschappelijkeActiviteit(ctx, company, company.KVKNumber())
	if errors.Is(err, sentinel.ErrNotFound) {
		err = ErrCompanyNotFound
	}
	if err != nil {
		h.logger.WarnContext(ctx, "failed to get bedrijf",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromActiviteit(m))
}
