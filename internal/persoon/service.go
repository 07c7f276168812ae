// Package persoon serves the BRP record of the signed-in citizen.
package persoon

import (
	"context"
	"errors"

	"nlportal/internal/authentication"
	"nlportal/internal/registry/brp"
	"nlportal/pkg/domain"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/sentinel"
)

// BRP is the subset of the Personen API the service uses.
type BRP interface {
	GetPersoon(ctx context.Context, auth authentication.Authentication, bsn domain.BSN) (*brp.Persoon, error)
	ListBewoners(ctx context.Context, auth authentication.Authentication, adresseerbaarObjectID string) ([]brp.Persoon, error)
}

var (
	ErrCitizenOnly    = dErrors.New(dErrors.CodeForbidden, "only available to citizens")
	ErrPersonNotFound = dErrors.New(dErrors.CodeNotFound, "persoon not found")
	ErrNoAddress      = dErrors.New(dErrors.CodeNotFound, "persoon has no registered address")
)

// Service implements the persoon use cases.
type Service struct {
	brp BRP
}

func NewService(b BRP) (*Service, error) {
	if b == nil {
		return nil, errors.New("brp registry is required")
	}
	return &Service{brp: b}, nil
}

// Me returns the caller's own BRP record.
func (s *Service) Me(ctx context.Context, auth authentication.Authentication) (*brp.Persoon, error) {
	citizen, ok := auth.(*authentication.Citizen)
	if !ok {
		return nil, ErrCitizenOnly
	}
	p, err := s.brp.GetPersoon(ctx, auth, citizen.BSN())
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrPersonNotFound
	}
	return p, err
}

// BewonersCount returns how many people are registered at the caller's
// residential address, the caller included.
func (s *Service) BewonersCount(ctx context.Context, auth authentication.Authentication) (int, error) {
	p, err := s.Me(ctx, auth)
	if err != nil {
		return 0, err
	}
	if p.Verblijfplaats == nil || p.Verblijfplaats.AdresseerbaarObjectIdentificatie == "" {
		return 0, ErrNoAddress
	}
	bewoners, err := s.brp.ListBewoners(ctx, auth, p.Verblijfplaats.AdresseerbaarObjectIdentificatie)
	if err != nil {
		return 0, err
	}
	return len(bewoners), nil
}
