package handler

import (
	"time"

	"nlportal/internal/zaak"
)

type zaaktypeResponse struct {
	Identificatie string `json:"identificatie"`
	Omschrijving  string `json:"omschrijving"`
}

// ZaakResponse is one entry of GET /api/zaken.
type ZaakResponse struct {
	ID               string           `json:"id"`
	Identificatie    string           `json:"identificatie"`
	Omschrijving     string           `json:"omschrijving"`
	Zaaktype         zaaktypeResponse `json:"zaaktype"`
	Registratiedatum string           `json:"registratiedatum,omitempty"`
	Startdatum       string           `json:"startdatum,omitempty"`
	EinddatumGepland string           `json:"einddatumGepland,omitempty"`
	Einddatum        string           `json:"einddatum,omitempty"`
}

type statusResponse struct {
	Naam         string `json:"naam"`
	Volgnummer   int    `json:"volgnummer"`
	IsEindstatus bool   `json:"isEindstatus"`
	GezetOp      string `json:"datumStatusGezet"`
	Toelichting  string `json:"toelichting,omitempty"`
}

type documentResponse struct {
	URL          string `json:"url"`
	Titel        string `json:"titel"`
	Bestandsnaam string `json:"bestandsnaam"`
	Formaat      string `json:"formaat"`
	Omvang       int64  `json:"bestandsomvang"`
	Creatiedatum string `json:"creatiedatum"`
}

type besluitResponse struct {
	Identificatie string `json:"identificatie"`
	Datum         string `json:"datum"`
	Toelichting   string `json:"toelichting,omitempty"`
}

// ZaakDetailResponse is the body of GET /api/zaken/{id}.
type ZaakDetailResponse struct {
	ZaakResponse
	Statussen  []statusResponse   `json:"statussen"`
	Documenten []documentResponse `json:"documenten"`
	Besluiten  []besluitResponse  `json:"besluiten"`
}

func fromZaak(z zaak.Zaak) ZaakResponse {
	resp := ZaakResponse{
		ID:            z.ID,
		Identificatie: z.Identificatie,
		Omschrijving:  z.Omschrijving,
		Zaaktype: zaaktypeResponse{
			Identificatie: z.Zaaktype.Identificatie,
			Omschrijving:  z.Zaaktype.Omschrijving,
		},
		Startdatum:       z.Startdatum,
		EinddatumGepland: z.EinddatumGepland,
		Einddatum:        z.Einddatum,
	}
	if !z.Registratiedatum.IsZero() {
		resp.Registratiedatum = z.Registratiedatum.Format(time.DateOnly)
	}
	return resp
}

// FromZaken maps the list result.
func FromZaken(zs []zaak.Zaak) []ZaakResponse {
	out := make([]ZaakResponse, 0, len(zs))
	for _, z := range zs {
		out = append(out, fromZaak(z))
	}
	return out
}

// FromDetail maps the detail result.
func FromDetail(d *zaak.Detail) ZaakDetailResponse {
	resp := ZaakDetailResponse{
		ZaakResponse: fromZaak(d.Zaak),
		Statussen:    make([]statusResponse, 0, len(d.Statussen)),
		Documenten:   make([]documentResponse, 0, len(d.Documenten)),
		Besluiten:    make([]besluitResponse, 0, len(d.Besluiten)),
	}
	for _, s := range d.Statussen {
		resp.Statussen = append(resp.Statussen, statusResponse(s))
	}
	for _, doc := range d.Documenten {
		resp.Documenten = append(resp.Documenten, documentResponse(doc))
	}
	for _, b := range d.Besluiten {
		resp.Besluiten = append(resp.Besluiten, besluitResponse{
			Identificatie: b.Identificatie,
			Datum:         b.Datum,
			Toelichting:   b.Toelichting,
		})
	}
	return resp
}
