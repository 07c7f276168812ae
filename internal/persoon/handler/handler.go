package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nlportal/internal/authentication"
	"nlportal/internal/registry/brp"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/httputil"
	"nlportal/pkg/requestcontext"
)

// Service defines the interface for persoon operations.
type Service interface {
	Me(ctx context.Context, auth authentication.Authentication) (*brp.Persoon, error)
	BewonersCount(ctx context.Context, auth authentication.Authentication) (int, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts persoon endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/personen/me", h.HandleMe)
	r.Get("/personen/me/bewoners", h.HandleBewoners)
}

type adresResponse struct {
	Straat     string `json:"straat"`
	Huisnummer int    `json:"huisnummer"`
	Huisletter string `json:"huisletter,omitempty"`
	Toevoeging string `json:"huisnummertoevoeging,omitempty"`
	Postcode   string `json:"postcode"`
	Woonplaats string `json:"woonplaats"`
}

// PersoonResponse is the body of GET /api/personen/me.
type PersoonResponse struct {
	BSN             string         `json:"burgerservicenummer"`
	Voornamen       string         `json:"voornamen"`
	Voorvoegsel     string         `json:"voorvoegsel,omitempty"`
	Geslachtsnaam   string         `json:"geslachtsnaam"`
	VolledigeNaam   string         `json:"volledigeNaam"`
	Geboortedatum   string         `json:"geboortedatum,omitempty"`
	Geboorteplaats  string         `json:"geboorteplaats,omitempty"`
	Geslacht        string         `json:"geslacht,omitempty"`
	Nationaliteiten []string       `json:"nationaliteiten"`
	Adres           *adresResponse `json:"adres,omitempty"`
}

// FromPersoon maps a BRP persoon.
func FromPersoon(p *brp.Persoon) PersoonResponse {
	resp := PersoonResponse{
		BSN:             p.Burgerservicenummer,
		Voornamen:       p.Naam.Voornamen,
		Voorvoegsel:     p.Naam.Voorvoegsel,
		Geslachtsnaam:   p.Naam.Geslachtsnaam,
		VolledigeNaam:   p.Naam.VolledigeNaam,
		Geboortedatum:   p.Geboorte.Datum.Datum,
		Geboorteplaats:  p.Geboorte.Plaats.Omschrijving,
		Geslacht:        p.Geslacht.Omschrijving,
		Nationaliteiten: make([]string, 0, len(p.Nationaliteiten)),
	}
	for _, n := range p.Nationaliteiten {
		resp.Nationaliteiten = append(resp.Nationaliteiten, n.Nationaliteit.Omschrijving)
	}
	if v := p.Verblijfplaats; v != nil {
		resp.Adres = &adresResponse{
			Straat:     v.Verblijfadres.OfficieleStraatnaam,
			Huisnummer: v.Verblijfadres.Huisnummer,
			Huisletter: v.Verblijfadres.Huisletter,
			Toevoeging: v.Verblijfadres.Huisnummertoevoeging,
			Postcode:   v.Verblijfadres.Postcode,
			Woonplaats: v.Verblijfadres.Woonplaats,
		}
	}
	return resp
}

// HandleMe handles GET /personen/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auth := authentication.FromContext(ctx)
	if auth == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	p, err := h.service.Me(ctx, auth)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to get persoon",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPersoon(p))
}

// HandleBewoners handles GET /personen/me/bewoners.
func (h *Handler) HandleBewoners(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auth := authentication.FromContext(ctx)
	if auth == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	n, err := h.service.BewonersCount(ctx, auth)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to count bewoners",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"aantalBewoners": n})
}
