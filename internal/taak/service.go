// Package taak exposes the portal tasks (portaaltaken) assigned to the
// signed-in principal. Tasks live in the Objecten API under one object type.
package taak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"nlportal/internal/authentication"
	"nlportal/internal/registry/objecten"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/sentinel"
)

// Task statuses.
const (
	StatusOpen      = "open"
	StatusIngediend = "ingediend"
	StatusVerwerkt  = "verwerkt"
	StatusGesloten  = "gesloten"
)

type Registry interface {
	ListObjects(ctx context.Context, auth authentication.Authentication, typeURL string, attrs ...objecten.DataAttr) ([]objecten.Object, error)
	GetObject(ctx context.Context, auth authentication.Authentication, uuid string) (*objecten.Object, error)
}

var ErrTaakNotFound = dErrors.New(dErrors.CodeNotFound, "taak not found")

// Identificatie names the party a task is assigned to.
type Identificatie struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Formulier references the form that completes the task.
type Formulier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Data is the object record payload of a task.
type Data struct {
	Identificatie Identificatie   `json:"identificatie"`
	Titel         string          `json:"titel"`
	Status        string          `json:"status"`
	Formulier     Formulier       `json:"formulier"`
	Zaak          string          `json:"zaak,omitempty"`
	Verloopdatum  string          `json:"verloopdatum,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// Taak is a task with its object identity.
type Taak struct {
	ID string
	Data
}

type Service struct {
	registry Registry
	typeURL  string
	logger   *slog.Logger
}

func NewService(registry Registry, typeURL string, logger *slog.Logger) (*Service, error) {
	if registry == nil {
		return nil, errors.New("objecten registry is required")
	}
	if typeURL == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "taak object type url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{registry: registry, typeURL: typeURL, logger: logger}, nil
}

// identificatie maps the principal to the identification stored on tasks.
func identificatie(auth authentication.Authentication) Identificatie {
	switch auth.Kind() {
	case authentication.KindCompany:
		return Identificatie{Type: "kvk", Value: auth.SubjectID()}
	default:
		return Identificatie{Type: "bsn", Value: auth.SubjectID()}
	}
}

func decode(o objecten.Object) (Taak, error) {
	var d Data
	if err := json.Unmarshal(o.Record.Data, &d); err != nil {
		return Taak{}, dErrors.Wrap(err, dErrors.CodeBadGateway, fmt.Sprintf("object %s is not a taak", o.UUID))
	}
	return Taak{ID: o.UUID, Data: d}, nil
}

// ListOpen returns the caller's open tasks, earliest deadline first.
func (s *Service) ListOpen(ctx context.Context, auth authentication.Authentication) ([]Taak, error) {
	id := identificatie(auth)
	objs, err := s.registry.ListObjects(ctx, auth, s.typeURL,
		objecten.DataAttr{Path: "identificatie__type", Op: "exact", Value: id.Type},
		objecten.DataAttr{Path: "identificatie__value", Op: "exact", Value: id.Value},
		objecten.DataAttr{Path: "status", Op: "exact", Value: StatusOpen},
	)
	if err != nil {
		return nil, err
	}

	taken := make([]Taak, 0, len(objs))
	for _, o := range objs {
		t, err := decode(o)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping malformed taak", "uuid", o.UUID, "error", err)
			continue
		}
		// data_attrs filtering is delegated to the registry; recheck ownership.
		if t.Identificatie != id {
			continue
		}
		taken = append(taken, t)
	}
	sort.SliceStable(taken, func(i, j int) bool {
		a, b := taken[i].Verloopdatum, taken[j].Verloopdatum
		if a == "" || b == "" {
			return a != "" && b == ""
		}
		return a < b
	})
	return taken, nil
}

// Get returns one task. Tasks of other parties are reported as not found.
func (s *Service) Get(ctx context.Context, auth authentication.Authentication, id string) (*Taak, error) {
	o, err := s.registry.GetObject(ctx, auth, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrTaakNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.Type != s.typeURL {
		return nil, ErrTaakNotFound
	}
	t, err := decode(*o)
	if err != nil {
		return nil, err
	}
	if t.Identificatie != identificatie(auth) {
		s.logger.WarnContext(ctx, "taak requested by non-owner", "uuid", id)
		return nil, ErrTaakNotFound
	}
	return &t, nil
}
