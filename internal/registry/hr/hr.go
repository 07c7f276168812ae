// Package hr is the Handelsregister client for company data by KVK number.
package hr

import (
	"context"
	"net/url"

	"nlportal/internal/authentication"
	"nlportal/internal/gateway"
	"nlportal/pkg/domain"
)

// Handelsnaam is one trade name.
type Handelsnaam struct {
	Naam     string `json:"naam"`
	Volgorde int    `json:"volgorde"`
}

// Adres is a registered address.
type Adres struct {
	Type       string `json:"type"`
	Straatnaam string `json:"straatnaam"`
	Huisnummer int    `json:"huisnummer"`
	Postcode   string `json:"postcode"`
	Plaats     string `json:"plaats"`
}

// MaatschappelijkeActiviteit is a company as registered with the KVK.
type MaatschappelijkeActiviteit struct {
	KvkNummer               string        `json:"kvkNummer"`
	Naam                    string        `json:"naam"`
	FormeleRegistratiedatum string        `json:"formeleRegistratiedatum"`
	Handelsnamen            []Handelsnaam `json:"handelsnamen"`
	Adressen                []Adres       `json:"adressen,omitempty"`
}

// Client calls the HR API.
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

// GetMaatschappelijkeActiviteit fetches a company by KVK number.
func (c *Client) GetMaatschappelijkeActiviteit(ctx context.Context, auth authentication.Authentication, kvk domain.KVKNumber) (*MaatschappelijkeActiviteit, error) {
	var out MaatschappelijkeActiviteit
	if err := c.provider.Client(auth).Get(ctx, "maatschappelijkeactiviteiten/"+url.PathEscape(kvk.String()), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
