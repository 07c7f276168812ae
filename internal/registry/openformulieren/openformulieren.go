// Package openformulieren is the Open Formulieren forms API client.
package openformulieren

import (
	"context"
	"net/url"

	"nlportal/internal/authentication"
	"nlportal/internal/gateway"
)

// Form is a published form definition.
type Form struct {
	UUID            string `json:"uuid"`
	URL             string `json:"url"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Active          bool   `json:"active"`
	MaintenanceMode bool   `json:"maintenanceMode"`
	LoginRequired   bool   `json:"loginRequired"`
}

// Available reports whether the form can be filled in right now.
func (f Form) Available() bool {
	return f.Active && !f.MaintenanceMode
}

// Client calls the Open Formulieren API.
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

// ListForms returns every form; the endpoint is not paginated.
func (c *Client) ListForms(ctx context.Context, auth authentication.Authentication) ([]Form, error) {
	var out []Form
	if err := c.provider.Client(auth).Get(ctx, "forms", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetForm fetches a form by UUID or slug.
func (c *Client) GetForm(ctx context.Context, auth authentication.Authentication, id string) (*Form, error) {
	var out Form
	if err := c.provider.Client(auth).Get(ctx, "forms/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
