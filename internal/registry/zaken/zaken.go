// Package zaken is the ZGW Zaken API client.
package zaken

import (
	"context"
	"net/url"
	"time"

	"nlportal/internal/authentication"
	"nlportal/internal/gateway"
)

// Query parameters that filter zaken and rollen on the involved party.
const (
	FilterZaakBSN = "rol__betrokkeneIdentificatie__natuurlijkPersoon__inpBsn"
	FilterZaakKVK = "rol__betrokkeneIdentificatie__nietNatuurlijkPersoon__innNnpId"
	FilterRolBSN  = "betrokkeneIdentificatie__natuurlijkPersoon__inpBsn"
	FilterRolKVK  = "betrokkeneIdentificatie__nietNatuurlijkPersoon__innNnpId"
)

// Zaak is a case as returned by the Zaken API.
type Zaak struct {
	URL                          string `json:"url"`
	UUID                         string `json:"uuid"`
	Identificatie                string `json:"identificatie"`
	Bronorganisatie              string `json:"bronorganisatie"`
	Omschrijving                 string `json:"omschrijving"`
	Toelichting                  string `json:"toelichting"`
	Zaaktype                     string `json:"zaaktype"`
	Registratiedatum             string `json:"registratiedatum"`
	Startdatum                   string `json:"startdatum"`
	Einddatum                    string `json:"einddatum,omitempty"`
	EinddatumGepland             string `json:"einddatumGepland,omitempty"`
	UiterlijkeEinddatumAfdoening string `json:"uiterlijkeEinddatumAfdoening,omitempty"`
	Status                       string `json:"status,omitempty"`
}

// RegisteredOn parses Registratiedatum; the zero time is returned when it is
// missing or malformed.
func (z Zaak) RegisteredOn() time.Time {
	t, err := time.Parse(time.DateOnly, z.Registratiedatum)
	if err != nil {
		return time.Time{}
	}
	return t
}

// BetrokkeneIdentificatie holds the identifiers of a rol's party. Only the
// fields for the betrokkeneType are set.
type BetrokkeneIdentificatie struct {
	InpBsn   string `json:"inpBsn,omitempty"`
	InnNnpID string `json:"innNnpId,omitempty"`
}

// Rol links a party to a zaak.
type Rol struct {
	URL                     string                  `json:"url"`
	Zaak                    string                  `json:"zaak"`
	BetrokkeneType          string                  `json:"betrokkeneType"`
	Roltype                 string                  `json:"roltype"`
	Omschrijving            string                  `json:"omschrijving"`
	OmschrijvingGeneriek    string                  `json:"omschrijvingGeneriek"`
	BetrokkeneIdentificatie BetrokkeneIdentificatie `json:"betrokkeneIdentificatie"`
}

// Status is one entry in a zaak's status history.
type Status struct {
	URL               string `json:"url"`
	Zaak              string `json:"zaak"`
	Statustype        string `json:"statustype"`
	DatumStatusGezet  string `json:"datumStatusGezet"`
	Statustoelichting string `json:"statustoelichting"`
}

// ZaakInformatieObject links a document to a zaak.
type ZaakInformatieObject struct {
	URL              string `json:"url"`
	Zaak             string `json:"zaak"`
	InformatieObject string `json:"informatieobject"`
	Titel            string `json:"titel"`
	Registratiedatum string `json:"registratiedatum"`
}

// Client calls the Zaken API.
type Client struct {
	provider *gateway.Provider
}

// New builds a Zaken client. Coordinates are exchanged in WGS84.
func New(cfg gateway.Config, opts ...gateway.Option) (*Client, error) {
	p, err := gateway.NewProvider(cfg, append(opts, gateway.WithCRSHeaders())...)
	if err != nil {
		return nil, err
	}
	return &Client{provider: p}, nil
}

// PartyFilter returns the query that restricts zaken to those where auth is
// a betrokkene.
func PartyFilter(auth authentication.Authentication) url.Values {
	switch a := auth.(type) {
	case *authentication.Citizen:
		return url.Values{FilterZaakBSN: {a.BSN().String()}}
	case *authentication.Company:
		return url.Values{FilterZaakKVK: {a.KVKNumber().String()}}
	default:
		return url.Values{}
	}
}

// ListZaken returns every zaak in which auth is a party, optionally limited
// to one zaaktype.
func (c *Client) ListZaken(ctx context.Context, auth authentication.Authentication, zaaktype string) ([]Zaak, error) {
	query := PartyFilter(auth)
	if zaaktype != "" {
		query.Set("zaaktype", zaaktype)
	}
	return gateway.CollectPages[Zaak](ctx, c.provider.Client(auth), "zaken", query, 0)
}

// GetZaak fetches a zaak by UUID or URL.
func (c *Client) GetZaak(ctx context.Context, auth authentication.Authentication, ref string) (*Zaak, error) {
	var z Zaak
	if err := c.provider.Client(auth).Get(ctx, zaakRef(ref), nil, &z); err != nil {
		return nil, err
	}
	return &z, nil
}

// ListRollen returns the rollen of a zaak, filtered on auth as betrokkene.
func (c *Client) ListRollen(ctx context.Context, auth authentication.Authentication, zaakURL string) ([]Rol, error) {
	query := url.Values{"zaak": {zaakURL}}
	switch a := auth.(type) {
	case *authentication.Citizen:
		query.Set(FilterRolBSN, a.BSN().String())
	case *authentication.Company:
		query.Set(FilterRolKVK, a.KVKNumber().String())
	}
	return gateway.CollectPages[Rol](ctx, c.provider.Client(auth), "rollen", query, 0)
}

// ListStatussen returns the status history of a zaak.
func (c *Client) ListStatussen(ctx context.Context, auth authentication.Authentication, zaakURL string) ([]Status, error) {
	return gateway.CollectPages[Status](ctx, c.provider.Client(auth), "statussen", url.Values{"zaak": {zaakURL}}, 0)
}

// ListZaakInformatieObjecten returns the document links of a zaak. This
// endpoint is not paginated.
func (c *Client) ListZaakInformatieObjecten(ctx context.Context, auth authentication.Authentication, zaakURL string) ([]ZaakInformatieObject, error) {
	var out []ZaakInformatieObject
	if err := c.provider.Client(auth).Get(ctx, "zaakinformatieobjecten", url.Values{"zaak": {zaakURL}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func zaakRef(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	return "zaken/" + url.PathEscape(ref)
}
