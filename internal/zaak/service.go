// Package zaak aggregates a caller's cases from the Zaken, Catalogi,
// Documenten and Besluiten registries.
package zaak

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"nlportal/internal/authentication"
	"nlportal/internal/registry/besluiten"
	"nlportal/internal/registry/catalogi"
	"nlportal/internal/registry/documenten"
	"nlportal/internal/registry/zaken"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/sentinel"
)

// fanOut bounds concurrent registry calls per request.
const fanOut = 8

// ZakenRegistry is the subset of the Zaken API the service uses.
type ZakenRegistry interface {
	ListZaken(ctx context.Context, auth authentication.Authentication, zaaktype string) ([]zaken.Zaak, error)
	GetZaak(ctx context.Context, auth authentication.Authentication, ref string) (*zaken.Zaak, error)
	ListRollen(ctx context.Context, auth authentication.Authentication, zaakURL string) ([]zaken.Rol, error)
	ListStatussen(ctx context.Context, auth authentication.Authentication, zaakURL string) ([]zaken.Status, error)
	ListZaakInformatieObjecten(ctx context.Context, auth authentication.Authentication, zaakURL string) ([]zaken.ZaakInformatieObject, error)
}

// CatalogiRegistry resolves types.
type CatalogiRegistry interface {
	GetZaaktype(ctx context.Context, auth authentication.Authentication, ref string) (*catalogi.Zaaktype, error)
	GetStatustype(ctx context.Context, auth authentication.Authentication, ref string) (*catalogi.Statustype, error)
}

// DocumentenRegistry fetches document metadata.
type DocumentenRegistry interface {
	GetDocument(ctx context.Context, auth authentication.Authentication, ref string) (*documenten.Document, error)
}

// BesluitenRegistry lists decisions.
type BesluitenRegistry interface {
	ListBesluiten(ctx context.Context, auth authentication.Authentication, zaakURL string) ([]besluiten.Besluit, error)
}

var ErrZaakNotFound = dErrors.New(dErrors.CodeNotFound, "zaak not found")

// Service implements the zaak use cases.
type Service struct {
	zaken      ZakenRegistry
	catalogi   CatalogiRegistry
	documenten DocumentenRegistry
	besluiten  BesluitenRegistry
	logger     *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithBesluiten enables decisions on zaak details.
func WithBesluiten(b BesluitenRegistry) Option {
	return func(s *Service) { s.besluiten = b }
}

// NewService builds the zaak service. zaken, catalogi and documenten are required.
func NewService(z ZakenRegistry, c CatalogiRegistry, d DocumentenRegistry, opts ...Option) (*Service, error) {
	if z == nil {
		return nil, errors.New("zaken registry is required")
	}
	if c == nil {
		return nil, errors.New("catalogi registry is required")
	}
	if d == nil {
		return nil, errors.New("documenten registry is required")
	}
	s := &Service{zaken: z, catalogi: c, documenten: d, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// List returns the caller's zaken, newest registratiedatum first.
func (s *Service) List(ctx context.Context, auth authentication.Authentication) ([]Zaak, error) {
	raw, err := s.zaken.ListZaken(ctx, auth, "")
	if err != nil {
		return nil, err
	}

	types, err := s.resolveZaaktypen(ctx, auth, raw)
	if err != nil {
		return nil, err
	}

	out := make([]Zaak, 0, len(raw))
	for _, z := range raw {
		out = append(out, toZaak(z, types[z.Zaaktype]))
	}
	SortNewestFirst(out)
	return out, nil
}

// SortNewestFirst orders zaken by registratiedatum descending, then by
// identificatie for a stable result.
func SortNewestFirst(zs []Zaak) {
	sort.SliceStable(zs, func(i, j int) bool {
		if !zs[i].Registratiedatum.Equal(zs[j].Registratiedatum) {
			return zs[i].Registratiedatum.After(zs[j].Registratiedatum)
		}
		return zs[i].Identificatie < zs[j].Identificatie
	})
}

// Get returns one zaak with its details. Zaken the caller is not a party
// to are reported as not found.
func (s *Service) Get(ctx context.Context, auth authentication.Authentication, id string) (*Detail, error) {
	raw, err := s.zaken.GetZaak(ctx, auth, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrZaakNotFound
		}
		return nil, err
	}

	rollen, err := s.zaken.ListRollen(ctx, auth, raw.URL)
	if err != nil {
		return nil, err
	}
	if !isParty(auth, rollen) {
		s.logger.WarnContext(ctx, "zaak requested by non-party",
			"zaak", raw.UUID,
			"kind", auth.Kind(),
		)
		return nil, ErrZaakNotFound
	}

	detail := &Detail{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zt, err := s.catalogi.GetZaaktype(gctx, auth, raw.Zaaktype)
		if err != nil {
			return err
		}
		detail.Zaak = toZaak(*raw, toZaaktype(zt))
		return nil
	})
	g.Go(func() error {
		statussen, err := s.statussen(gctx, auth, raw.URL)
		detail.Statussen = statussen
		return err
	})
	g.Go(func() error {
		docs, err := s.documents(gctx, auth, raw.URL)
		detail.Documenten = docs
		return err
	})
	if s.besluiten != nil {
		g.Go(func() error {
			bs, err := s.besluiten.ListBesluiten(gctx, auth, raw.URL)
			if err != nil {
				return err
			}
			detail.Besluiten = make([]Besluit, 0, len(bs))
			for _, b := range bs {
				detail.Besluiten = append(detail.Besluiten, Besluit{
					URL:           b.URL,
					Identificatie: b.Identificatie,
					Datum:         b.Datum,
					Toelichting:   b.Toelichting,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return detail, nil
}

func isParty(auth authentication.Authentication, rollen []zaken.Rol) bool {
	subject := auth.SubjectID()
	for _, r := range rollen {
		switch auth.(type) {
		case *authentication.Citizen:
			if r.BetrokkeneIdentificatie.InpBsn == subject {
				return true
			}
		case *authentication.Company:
			if r.BetrokkeneIdentificatie.InnNnpID == subject {
				return true
			}
		}
	}
	return false
}

func (s *Service) resolveZaaktypen(ctx context.Context, auth authentication.Authentication, zs []zaken.Zaak) (map[string]Zaaktype, error) {
	refs := map[string]struct{}{}
	for _, z := range zs {
		if z.Zaaktype != "" {
			refs[z.Zaaktype] = struct{}{}
		}
	}

	var mu sync.Mutex
	out := make(map[string]Zaaktype, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for ref := range refs {
		g.Go(func() error {
			zt, err := s.catalogi.GetZaaktype(gctx, auth, ref)
			if err != nil {
				return err
			}
			mu.Lock()
			out[ref] = toZaaktype(zt)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) statussen(ctx context.Context, auth authentication.Authentication, zaakURL string) ([]Status, error) {
	raw, err := s.zaken.ListStatussen(ctx, auth, zaakURL)
	if err != nil {
		return nil, err
	}

	out := make([]Status, len(raw))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, st := range raw {
		g.Go(func() error {
			typ, err := s.catalogi.GetStatustype(gctx, auth, st.Statustype)
			if err != nil {
				return err
			}
			out[i] = Status{
				Naam:         typ.Omschrijving,
				Volgnummer:   typ.Volgnummer,
				IsEindstatus: typ.IsEindstatus,
				GezetOp:      st.DatumStatusGezet,
				Toelichting:  st.Statustoelichting,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GezetOp < out[j].GezetOp })
	return out, nil
}

func (s *Service) documents(ctx context.Context, auth authentication.Authentication, zaakURL string) ([]Document, error) {
	links, err := s.zaken.ListZaakInformatieObjecten(ctx, auth, zaakURL)
	if err != nil {
		return nil, err
	}

	fetched := make([]*documenten.Document, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, link := range links {
		g.Go(func() error {
			doc, err := s.documenten.GetDocument(gctx, auth, link.InformatieObject)
			if err != nil {
				return err
			}
			fetched[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Document, 0, len(fetched))
	for _, d := range fetched {
		if !d.Published() {
			continue
		}
		out = append(out, Document{
			URL:          d.URL,
			Titel:        d.Titel,
			Bestandsnaam: d.Bestandsnaam,
			Formaat:      d.Formaat,
			Omvang:       d.Bestandsomvang,
			Creatiedatum: d.Creatiedatum,
		})
	}
	return out, nil
}

func toZaaktype(zt *catalogi.Zaaktype) Zaaktype {
	if zt == nil {
		return Zaaktype{}
	}
	return Zaaktype{URL: zt.URL, Identificatie: zt.Identificatie, Omschrijving: zt.Omschrijving}
}

func toZaak(z zaken.Zaak, zt Zaaktype) Zaak {
	if zt.URL == "" {
		zt.URL = z.Zaaktype
	}
	return Zaak{
		ID:               z.UUID,
		URL:              z.URL,
		Identificatie:    z.Identificatie,
		Omschrijving:     z.Omschrijving,
		Zaaktype:         zt,
		Registratiedatum: z.RegisteredOn(),
		Startdatum:       z.Startdatum,
		EinddatumGepland: z.EinddatumGepland,
		Einddatum:        z.Einddatum,
	}
}
