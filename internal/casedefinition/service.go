package casedefinition

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"nlportal/internal/authentication"
	"nlportal/internal/registry/objecten"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/requestcontext"
)

type ObjectStore interface {
	CreateObject(ctx context.Context, auth authentication.Authentication, obj objecten.Object) (*objecten.Object, error)
}

var ErrDefinitionNotFound = dErrors.New(dErrors.CodeNotFound, "case definition not found")

// SchemaViolation reports a submission that does not satisfy its schema.
type SchemaViolation struct {
	DefinitionID string
	Messages     []string
}

func (e *SchemaViolation) Error() string {
	return "submission does not match schema " + e.DefinitionID + ": " + strings.Join(e.Messages, "; ")
}

// Unwrap exposes a validation coded error for status mapping.
func (e *SchemaViolation) Unwrap() error {
	return dErrors.New(dErrors.CodeValidation, e.Error())
}

// Identificatie names the principal a case was submitted by.
type Identificatie struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// caseData is the object record payload of a stored case.
type caseData struct {
	CaseDefinitionID string          `json:"caseDefinitionId"`
	Identificatie    Identificatie   `json:"identificatie"`
	Gemachtigde      *Identificatie  `json:"gemachtigde,omitempty"`
	Submission       json.RawMessage `json:"submission"`
}

// Case is a stored submission.
type Case struct {
	ID               string
	URL              string
	CaseDefinitionID string
	RegistrationAt   string
}

type Service struct {
	catalog *Catalog
	objects ObjectStore
}

func NewService(catalog *Catalog, objects ObjectStore) (*Service, error) {
	if catalog == nil {
		return nil, errors.New("case definition catalog is required")
	}
	if objects == nil {
		return nil, errors.New("objecten registry is required")
	}
	return &Service{catalog: catalog, objects: objects}, nil
}

// Definitions lists the available case definitions.
func (s *Service) Definitions() []*Definition {
	return s.catalog.List()
}

// Definition returns a single case definition.
func (s *Service) Definition(id string) (*Definition, error) {
	def, ok := s.catalog.Get(id)
	if !ok {
		return nil, ErrDefinitionNotFound
	}
	return def, nil
}

func identificatieOf(kind authentication.Kind, id string) Identificatie {
	if kind == authentication.KindCompany {
		return Identificatie{Type: "kvk", Value: id}
	}
	return Identificatie{Type: "bsn", Value: id}
}

// Submit validates submission and stores it as an object of the
// definition's object type.
func (s *Service) Submit(ctx context.Context, auth authentication.Authentication, definitionID string, submission json.RawMessage) (*Case, error) {
	def, err := s.Definition(definitionID)
	if err != nil {
		return nil, err
	}

	msgs, err := def.Validate(submission)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "submission is not valid JSON")
	}
	if len(msgs) > 0 {
		return nil, &SchemaViolation{DefinitionID: def.ID, Messages: msgs}
	}

	payload := caseData{
		CaseDefinitionID: def.ID,
		Identificatie:    identificatieOf(auth.Kind(), auth.SubjectID()),
		Submission:       submission,
	}
	if d := auth.Delegate(); d != nil {
		g := identificatieOf(d.Kind, d.ID)
		payload.Gemachtigde = &g
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode case")
	}

	created, err := s.objects.CreateObject(ctx, auth, objecten.Object{
		Type: def.ObjectTypeURL,
		Record: objecten.Record{
			TypeVersion: def.ObjectTypeVersion,
			Data:        data,
			StartAt:     requestcontext.Now(ctx).Format("2006-01-02"),
		},
	})
	if err != nil {
		return nil, err
	}
	return &Case{
		ID:               created.UUID,
		URL:              created.URL,
		CaseDefinitionID: def.ID,
		RegistrationAt:   created.Record.RegistrationAt,
	}, nil
}
