// Package gemachtigde resolves who is acting on whose behalf when a
// principal signs in through a machtiging.
package gemachtigde

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"nlportal/internal/authentication"
	"nlportal/internal/registry/brp"
	"nlportal/internal/registry/hr"
	"nlportal/pkg/domain"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/sentinel"
)

type PersonenRegistry interface {
	GetPersoon(ctx context.Context, auth authentication.Authentication, bsn domain.BSN) (*brp.Persoon, error)
}

type HandelsRegistry interface {
	GetMaatschappelijkeActiviteit(ctx context.Context, auth authentication.Authentication, kvk domain.KVKNumber) (*hr.MaatschappelijkeActiviteit, error)
}

var ErrNoDelegate = dErrors.New(dErrors.CodeNotFound, "no gemachtigde on this session")

// Party is one side of a machtiging.
type Party struct {
	Kind authentication.Kind
	ID   string
	Naam string
}

// Machtiging pairs the delegate with the subject it represents.
type Machtiging struct {
	Gemachtigde       Party
	Vertegenwoordigde Party
}

// Service resolves machtigingen. Either registry may be nil when the
// deployment does not configure it; names from it are then left empty.
type Service struct {
	brp PersonenRegistry
	hr  HandelsRegistry
}

func NewService(personen PersonenRegistry, handels HandelsRegistry) *Service {
	return &Service{brp: personen, hr: handels}
}

// Resolve looks up the names of the delegate and the subject concurrently.
func (s *Service) Resolve(ctx context.Context, auth authentication.Authentication) (*Machtiging, error) {
	delegate := auth.Delegate()
	if delegate == nil {
		return nil, ErrNoDelegate
	}

	m := &Machtiging{
		Gemachtigde:       Party{Kind: delegate.Kind, ID: delegate.ID},
		Vertegenwoordigde: Party{Kind: auth.Kind(), ID: auth.SubjectID()},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		naam, err := s.name(gctx, auth, m.Gemachtigde)
		m.Gemachtigde.Naam = naam
		return err
	})
	g.Go(func() error {
		naam, err := s.name(gctx, auth, m.Vertegenwoordigde)
		m.Vertegenwoordigde.Naam = naam
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

// name returns an empty name when the registry has no record for p.
func (s *Service) name(ctx context.Context, auth authentication.Authentication, p Party) (string, error) {
	switch p.Kind {
	case authentication.KindCitizen:
		if s.brp == nil {
			return "", nil
		}
		persoon, err := s.brp.GetPersoon(ctx, auth, domain.BSN(p.ID))
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return persoon.Naam.VolledigeNaam, nil
	case authentication.KindCompany:
		if s.hr == nil {
			return "", nil
		}
		activiteit, err := s.hr.GetMaatschappelijkeActiviteit(ctx, auth, domain.KVKNumber(p.ID))
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return activiteit.Naam, nil
	default:
		return "", nil
	}
}
