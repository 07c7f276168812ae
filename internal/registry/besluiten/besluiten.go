// Package besluiten is the ZGW Besluiten API client.
package besluiten

import (
	"context"
	"net/url"

	"nlportal/internal/authentication"
	"nlportal/internal/gateway"
)

// Besluit is a decision taken on a zaak.
type Besluit struct {
	URL           string `json:"url"`
	Identificatie string `json:"identificatie"`
	Besluittype   string `json:"besluittype"`
	Zaak          string `json:"zaak"`
	Datum         string `json:"datum"`
	Toelichting   string `json:"toelichting"`
	Ingangsdatum  string `json:"ingangsdatum"`
	Vervaldatum   string `json:"vervaldatum,omitempty"`
}

// Client calls the Besluiten API.
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

// ListBesluiten returns the besluiten recorded against zaakURL.
func (c *Client) ListBesluiten(ctx context.Context, auth authentication.Authentication, zaakURL string) ([]Besluit, error) {
	return gateway.CollectPages[Besluit](ctx, c.provider.Client(auth), "besluiten", url.Values{"zaak": {zaakURL}}, 0)
}
