// Package klant manages the OpenKlant contact details of the signed-in
// principal.
package klant

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"nlportal/internal/authentication"
	"nlportal/internal/registry/openklant"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/email"
)

type Registry interface {
	FindKlanten(ctx context.Context, auth authentication.Authentication) ([]openklant.Klant, error)
	PatchKlant(ctx context.Context, auth authentication.Authentication, ref string, update openklant.KlantUpdate) (*openklant.Klant, error)
}

var (
	ErrKlantNotFound  = dErrors.New(dErrors.CodeNotFound, "klant not found")
	ErrNothingToPatch = dErrors.New(dErrors.CodeValidation, "emailadres or telefoonnummer is required")
	ErrInvalidPhone   = dErrors.New(dErrors.CodeValidation, "telefoonnummer must hold 10 to 15 digits")
)

type Service struct {
	registry Registry
	logger   *slog.Logger
}

func NewService(registry Registry, logger *slog.Logger) (*Service, error) {
	if registry == nil {
		return nil, errors.New("openklant registry is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{registry: registry, logger: logger}, nil
}

// Get returns the caller's klant. When OpenKlant holds several records for
// one subject the first is used.
func (s *Service) Get(ctx context.Context, auth authentication.Authentication) (*openklant.Klant, error) {
	klanten, err := s.registry.FindKlanten(ctx, auth)
	if err != nil {
		return nil, err
	}
	if len(klanten) == 0 {
		return nil, ErrKlantNotFound
	}
	if len(klanten) > 1 {
		s.logger.InfoContext(ctx, "multiple klanten for subject", "count", len(klanten))
	}
	return &klanten[0], nil
}

// UpdateContact patches e-mail address and phone number on the caller's klant.
func (s *Service) UpdateContact(ctx context.Context, auth authentication.Authentication, update openklant.KlantUpdate) (*openklant.Klant, error) {
	normalized, err := ValidateUpdate(update)
	if err != nil {
		return nil, err
	}
	k, err := s.Get(ctx, auth)
	if err != nil {
		return nil, err
	}
	return s.registry.PatchKlant(ctx, auth, k.URL, normalized)
}

// ValidateUpdate checks and normalizes a contact update. At least one field
// must be set.
func ValidateUpdate(update openklant.KlantUpdate) (openklant.KlantUpdate, error) {
	if update.Emailadres == nil && update.Telefoonnummer == nil {
		return update, ErrNothingToPatch
	}
	var out openklant.KlantUpdate
	if update.Emailadres != nil {
		addr, err := email.Normalize(*update.Emailadres)
		if err != nil {
			return update, err
		}
		out.Emailadres = &addr
	}
	if update.Telefoonnummer != nil {
		phone, err := normalizePhone(*update.Telefoonnummer)
		if err != nil {
			return update, err
		}
		out.Telefoonnummer = &phone
	}
	return out, nil
}

// normalizePhone strips spaces and dashes; a leading + is kept.
func normalizePhone(s string) (string, error) {
	var b strings.Builder
	digits := 0
	for i, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			digits++
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-':
		default:
			return "", ErrInvalidPhone
		}
	}
	if digits < 10 || digits > 15 {
		return "", ErrInvalidPhone
	}
	return b.String(), nil
}
