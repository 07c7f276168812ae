// Package objecten is the Objecten API client. The portal stores tasks and
// case submissions as objects.
package objecten

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"nlportal/internal/authentication"
	"nlportal/internal/gateway"
)

// Record is one version of an object's data.
type Record struct {
	Index          int             `json:"index,omitempty"`
	TypeVersion    int             `json:"typeVersion"`
	Data           json.RawMessage `json:"data"`
	Geometry       json.RawMessage `json:"geometry,omitempty"`
	StartAt        string          `json:"startAt"`
	EndAt          string          `json:"endAt,omitempty"`
	RegistrationAt string          `json:"registrationAt,omitempty"`
}

// Object is an Objecten API object.
type Object struct {
	URL    string `json:"url,omitempty"`
	UUID   string `json:"uuid,omitempty"`
	Type   string `json:"type"`
	Record Record `json:"record"`
}

// DataAttr is one data_attrs filter, for example
// DataAttr{"status", "exact", "open"}.
type DataAttr struct {
	Path  string
	Op    string
	Value string
}

func (d DataAttr) String() string {
	return d.Path + "__" + d.Op + "__" + d.Value
}

// Client calls the Objecten API.
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

// ListObjects returns the objects of typeURL matching all attrs.
func (c *Client) ListObjects(ctx context.Context, auth authentication.Authentication, typeURL string, attrs ...DataAttr) ([]Object, error) {
	query := url.Values{"type": {typeURL}}
	if len(attrs) > 0 {
		parts := make([]string, len(attrs))
		for i, a := range attrs {
			parts[i] = a.String()
		}
		query.Set("data_attrs", strings.Join(parts, ","))
	}
	return gateway.CollectPages[Object](ctx, c.provider.Client(auth), "objects", query, 0)
}

// GetObject fetches an object by UUID.
func (c *Client) GetObject(ctx context.Context, auth authentication.Authentication, uuid string) (*Object, error) {
	var o Object
	if err := c.provider.Client(auth).Get(ctx, "objects/"+url.PathEscape(uuid), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateObject stores a new object and returns it as persisted.
func (c *Client) CreateObject(ctx context.Context, auth authentication.Authentication, obj Object) (*Object, error) {
	var out Object
	if err := c.provider.Client(auth).Post(ctx, "objects", obj, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
