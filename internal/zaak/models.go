package zaak

import "time"

// Zaak is the portal view of a case.
type Zaak struct {
	ID               string
	URL              string
	Identificatie    string
	Omschrijving     string
	Zaaktype         Zaaktype
	Registratiedatum time.Time
	Startdatum       string
	EinddatumGepland string
	Einddatum        string
}

// Zaaktype is the resolved type of a zaak.
type Zaaktype struct {
	URL           string
	Identificatie string
	Omschrijving  string
}

// Status is one step in the zaak's history, named by its statustype.
type Status struct {
	Naam         string
	Volgnummer   int
	IsEindstatus bool
	GezetOp      string
	Toelichting  string
}

// Document is a published document attached to the zaak.
type Document struct {
	URL          string
	Titel        string
	Bestandsnaam string
	Formaat      string
	Omvang       int64
	Creatiedatum string
}

// Besluit is a decision on the zaak.
type Besluit struct {
	URL           string
	Identificatie string
	Datum         string
	Toelichting   string
}

// Detail is a zaak with its history, documents and decisions.
type Detail struct {
	Zaak
	Statussen  []Status
	Documenten []Document
	Besluiten  []Besluit
}
