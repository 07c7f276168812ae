// Package brp is the HaalCentraal BRP Personen client. All queries are
// POSTs to /personen with a typed search body.
package brp

import (
	"context"

	"nlportal/internal/authentication"
	"nlportal/internal/gateway"
	"nlportal/pkg/domain"
	"nlportal/pkg/platform/sentinel"
)

// Search types understood by the Personen API.
const (
	SearchByBSN             = "RaadpleegMetBurgerservicenummer"
	SearchByAddressedObject = "ZoekMetAdresseerbaarObjectIdentificatie"
)

// defaultFields is the field selection for a full persoon.
var defaultFields = []string{
	"burgerservicenummer",
	"naam",
	"geboorte",
	"geslacht",
	"nationaliteiten",
	"verblijfplaats",
}

// Naam is the name block of a persoon.
type Naam struct {
	Voornamen     string `json:"voornamen"`
	Voorvoegsel   string `json:"voorvoegsel,omitempty"`
	Geslachtsnaam string `json:"geslachtsnaam"`
	VolledigeNaam string `json:"volledigeNaam"`
}

// Waardetabel is a coded value.
type Waardetabel struct {
	Code         string `json:"code"`
	Omschrijving string `json:"omschrijving"`
}

// Datum is a BRP date; Datum holds the ISO form when the date is complete.
type Datum struct {
	Type  string `json:"type"`
	Datum string `json:"datum,omitempty"`
}

// Geboorte is the birth block.
type Geboorte struct {
	Datum  Datum       `json:"datum"`
	Plaats Waardetabel `json:"plaats"`
	Land   Waardetabel `json:"land"`
}

// Nationaliteit is one nationality entry.
type Nationaliteit struct {
	Nationaliteit Waardetabel `json:"nationaliteit"`
}

// VerblijfadresBinnenland is a domestic address.
type VerblijfadresBinnenland struct {
	OfficieleStraatnaam  string `json:"officieleStraatnaam"`
	Huisnummer           int    `json:"huisnummer"`
	Huisletter           string `json:"huisletter,omitempty"`
	Huisnummertoevoeging string `json:"huisnummertoevoeging,omitempty"`
	Postcode             string `json:"postcode"`
	Woonplaats           string `json:"woonplaats"`
}

// Verblijfplaats is the residence block.
type Verblijfplaats struct {
	Type                             string                  `json:"type"`
	AdresseerbaarObjectIdentificatie string                  `json:"adresseerbaarObjectIdentificatie,omitempty"`
	Verblijfadres                    VerblijfadresBinnenland `json:"verblijfadres"`
}

// Persoon is a BRP person.
type Persoon struct {
	Burgerservicenummer string          `json:"burgerservicenummer"`
	Naam                Naam            `json:"naam"`
	Geboorte            Geboorte        `json:"geboorte"`
	Geslacht            Waardetabel     `json:"geslacht"`
	Nationaliteiten     []Nationaliteit `json:"nationaliteiten"`
	Verblijfplaats      *Verblijfplaats `json:"verblijfplaats,omitempty"`
}

type searchRequest struct {
	Type                             string   `json:"type"`
	Fields                           []string `json:"fields"`
	Burgerservicenummer              []string `json:"burgerservicenummer,omitempty"`
	AdresseerbaarObjectIdentificatie string   `json:"adresseerbaarObjectIdentificatie,omitempty"`
}

type searchResponse struct {
	Type     string    `json:"type"`
	Personen []Persoon `json:"personen"`
}

// Client calls the BRP Personen API.
type Client struct {
	provider *gateway.Provider
}

// New builds a BRP client. Coordinates are exchanged in WGS84.
func New(cfg gateway.Config, opts ...gateway.Option) (*Client, error) {
	p, err := gateway.NewProvider(cfg, append(opts, gateway.WithCRSHeaders())...)
	if err != nil {
		return nil, err
	}
	return &Client{provider: p}, nil
}

func (c *Client) search(ctx context.Context, auth authentication.Authentication, body searchRequest) ([]Persoon, error) {
	var resp searchResponse
	if err := c.provider.Client(auth).Post(ctx, "personen", body, &resp); err != nil {
		return nil, err
	}
	return resp.Personen, nil
}

// GetPersoon fetches one persoon by BSN. sentinel.ErrNotFound is returned
// when the BRP has no match.
func (c *Client) GetPersoon(ctx context.Context, auth authentication.Authentication, bsn domain.BSN) (*Persoon, error) {
	personen, err := c.search(ctx, auth, searchRequest{
		Type:                SearchByBSN,
		Fields:              defaultFields,
		Burgerservicenummer: []string{bsn.String()},
	})
	if err != nil {
		return nil, err
	}
	if len(personen) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return &personen[0], nil
}

// ListBewoners returns the personen registered at an adresseerbaar object.
func (c *Client) ListBewoners(ctx context.Context, auth authentication.Authentication, adresseerbaarObjectID string) ([]Persoon, error) {
	return c.search(ctx, auth, searchRequest{
		Type:                             SearchByAddressedObject,
		Fields:                           []string{"burgerservicenummer"},
		AdresseerbaarObjectIdentificatie: adresseerbaarObjectID,
	})
}
