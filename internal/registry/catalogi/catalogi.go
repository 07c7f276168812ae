// Package catalogi is the ZGW Catalogi API client.
package catalogi

import (
	"context"

	"nlportal/internal/authentication"
	"nlportal/internal/gateway"
)

// Zaaktype describes a kind of zaak.
type Zaaktype struct {
	URL           string   `json:"url"`
	Identificatie string   `json:"identificatie"`
	Omschrijving  string   `json:"omschrijving"`
	Statustypen   []string `json:"statustypen"`
}

// Statustype names one step of a zaaktype's lifecycle.
type Statustype struct {
	URL                  string `json:"url"`
	Zaaktype             string `json:"zaaktype"`
	Omschrijving         string `json:"omschrijving"`
	OmschrijvingGeneriek string `json:"omschrijvingGeneriek"`
	Statustekst          string `json:"statustekst"`
	Volgnummer           int    `json:"volgnummer"`
	IsEindstatus         bool   `json:"isEindstatus"`
	Informeren           bool   `json:"informeren"`
}

// Client calls the Catalogi API.
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

// GetZaaktype fetches a zaaktype by its URL.
func (c *Client) GetZaaktype(ctx context.Context, auth authentication.Authentication, ref string) (*Zaaktype, error) {
	var zt Zaaktype
	if err := c.provider.Client(auth).Get(ctx, ref, nil, &zt); err != nil {
		return nil, err
	}
	return &zt, nil
}

// GetStatustype fetches a statustype by its URL.
func (c *Client) GetStatustype(ctx context.Context, auth authentication.Authentication, ref string) (*Statustype, error) {
	var st Statustype
	if err := c.provider.Client(auth).Get(ctx, ref, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
