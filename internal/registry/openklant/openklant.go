// Package openklant is the OpenKlant Klanten API client.
package openklant

import (
	"context"
	"net/url"

	"nlportal/internal/authentication"
	"nlportal/internal/gateway"
)

// Query parameters filtering klanten on subject.
const (
	FilterKlantBSN = "subjectNatuurlijkPersoon__inpBsn"
	FilterKlantKVK = "subjectNietNatuurlijkPersoon__innNnpId"
)

// Klant is a customer record.
type Klant struct {
	URL             string `json:"url"`
	Bronorganisatie string `json:"bronorganisatie"`
	Klantnummer     string `json:"klantnummer"`
	Voornaam        string `json:"voornaam,omitempty"`
	Achternaam      string `json:"achternaam,omitempty"`
	Bedrijfsnaam    string `json:"bedrijfsnaam,omitempty"`
	Emailadres      string `json:"emailadres,omitempty"`
	Telefoonnummer  string `json:"telefoonnummer,omitempty"`
	SubjectType     string `json:"subjectType"`
}

// KlantUpdate is the PATCH body for contact details. Nil fields are left
// untouched.
type KlantUpdate struct {
	Emailadres     *string `json:"emailadres,omitempty"`
	Telefoonnummer *string `json:"telefoonnummer,omitempty"`
}

// Client calls the Klanten API.
type Client struct {
	provider *gateway.Provider
}

func New(cfg gateway.Config, opts ...gateway.Option) (*Client, error) {
	p, err := gateway.NewProvider(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{provider: p}, nil
}

// FindKlanten returns the klanten whose subject is auth.
func (c *Client) FindKlanten(ctx context.Context, auth authentication.Authentication) ([]Klant, error) {
	query := url.Values{}
	switch a := auth.(type) {
	case *authentication.Citizen:
		query.Set(FilterKlantBSN, a.BSN().String())
	case *authentication.Company:
		query.Set(FilterKlantKVK, a.KVKNumber().String())
	}
	return gateway.CollectPages[Klant](ctx, c.provider.Client(auth), "klanten", query, 0)
}

// PatchKlant updates contact details on the klant at ref.
func (c *Client) PatchKlant(ctx context.Context, auth authentication.Authentication, ref string, update KlantUpdate) (*Klant, error) {
	var out Klant
	if err := c.provider.Client(auth).Patch(ctx, ref, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
