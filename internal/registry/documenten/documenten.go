// Package documenten is the ZGW Documenten API client.
package documenten

import (
	"context"

	"nlportal/internal/authentication"
	"nlportal/internal/gateway"
)

// Document is an enkelvoudig informatieobject.
type Document struct {
	URL                         string `json:"url"`
	Identificatie               string `json:"identificatie"`
	Bronorganisatie             string `json:"bronorganisatie"`
	Titel                       string `json:"titel"`
	Bestandsnaam                string `json:"bestandsnaam"`
	Bestandsomvang              int64  `json:"bestandsomvang"`
	Formaat                     string `json:"formaat"`
	Creatiedatum                string `json:"creatiedatum"`
	Status                      string `json:"status"`
	Vertrouwelijkheidaanduiding string `json:"vertrouwelijkheidaanduiding"`
}

// Published reports whether the document may be shown to the portal user.
func (d Document) Published() bool {
	switch d.Status {
	case "", "definitief", "gearchiveerd":
		return d.Vertrouwelijkheidaanduiding != "geheim" && d.Vertrouwelijkheidaanduiding != "zeer_geheim"
	default:
		return false
	}
}

// Client calls the Documenten API.
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

// GetDocument fetches an informatieobject by its URL.
func (c *Client) GetDocument(ctx context.Context, auth authentication.Authentication, ref string) (*Document, error) {
	var d Document
	if err := c.provider.Client(auth).Get(ctx, ref, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
