// Package authentication models the portal's authenticated principal.
//
// A principal is either a Citizen (identified by BSN, from DigiD) or a
// Company (identified by KVK number, from eHerkenning). Both may carry a
// Delegate: a gemachtigde acting on the subject's behalf. The delegate never
// replaces the subject identifier; it is only reachable through Delegate().
//
// Authentication is a closed sum type. Callers switch on the concrete type:
//
//	switch a := auth.(type) {
//	case *authentication.Citizen:
//		a.BSN()
//	case *authentication.Company:
//		a.KVKNumber()
//	}
//
// or use the capability methods when the subject kind does not matter.
package authentication

import (
	"context"

	"nlportal/pkg/domain"
)

// Kind names the principal variant.
type Kind string

const (
	KindCitizen Kind = "burger"
	KindCompany Kind = "bedrijf"
)

// Authentication is implemented only by *Citizen and *Company.
type Authentication interface {
	Kind() Kind
	// SubjectID is the BSN or KVK number of the principal itself.
	SubjectID() string
	// Delegate returns the gemachtigde, or nil.
	Delegate() *Delegate
	// Token is the verified inbound bearer token.
	Token() string
	Claims() map[string]any

	sealed()
}

// Delegate identifies a gemachtigde by exactly one identifier type.
type Delegate struct {
	Kind Kind
	ID   string
}

// BSN returns the delegate's BSN when the delegate is a citizen.
func (d *Delegate) BSN() (domain.BSN, bool) {
	if d == nil || d.Kind != KindCitizen {
		return "", false
	}
	return domain.BSN(d.ID), true
}

// KVKNumber returns the delegate's KVK number when the delegate is a company.
func (d *Delegate) KVKNumber() (domain.KVKNumber, bool) {
	if d == nil || d.Kind != KindCompany {
		return "", false
	}
	return domain.KVKNumber(d.ID), true
}

type principal struct {
	token    string
	claims   map[string]any
	delegate *Delegate
}

func (p principal) Token() string          { return p.token }
func (p principal) Claims() map[string]any { return p.claims }
func (p principal) Delegate() *Delegate    { return p.delegate }
func (principal) sealed()                  {}

// Citizen is a principal authenticated with a BSN.
type Citizen struct {
	principal
	bsn domain.BSN
}

// NewCitizen builds a citizen principal. delegate may be nil.
func NewCitizen(token string, bsn domain.BSN, claims map[string]any, delegate *Delegate) *Citizen {
	return &Citizen{principal: principal{token: token, claims: claims, delegate: delegate}, bsn: bsn}
}

func (c *Citizen) Kind() Kind        { return KindCitizen }
func (c *Citizen) SubjectID() string { return string(c.bsn) }
func (c *Citizen) BSN() domain.BSN   { return c.bsn }

// Company is a principal authenticated with a KVK number.
type Company struct {
	principal
	kvk domain.KVKNumber
}

// NewCompany builds a company principal. delegate may be nil.
func NewCompany(token string, kvk domain.KVKNumber, claims map[string]any, delegate *Delegate) *Company {
	return &Company{principal: principal{token: token, claims: claims, delegate: delegate}, kvk: kvk}
}

func (c *Company) Kind() Kind                  { return KindCompany }
func (c *Company) SubjectID() string           { return string(c.kvk) }
func (c *Company) KVKNumber() domain.KVKNumber { return c.kvk }

type authKey struct{}

// WithAuthentication stores the principal in the context.
func WithAuthentication(ctx context.Context, auth Authentication) context.Context {
	return context.WithValue(ctx, authKey{}, auth)
}

// FromContext returns the principal, or nil when the request is anonymous.
func FromContext(ctx context.Context) Authentication {
	if auth, ok := ctx.Value(authKey{}).(Authentication); ok {
		return auth
	}
	return nil
}
