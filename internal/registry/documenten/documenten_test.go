package documenten

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlportal/internal/gateway"
	"nlportal/pkg/platform/sentinel"
)

func TestClient_GetDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/documenten/api/v1/enkelvoudiginformatieobjecten/doc-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{
			"url":"doc-1","titel":"Besluit","bestandsnaam":"besluit.pdf","bestandsomvang":2048,
			"formaat":"application/pdf","creatiedatum":"2024-03-01","status":"definitief",
			"vertrouwelijkheidaanduiding":"openbaar"
		}`))
	}))
	defer srv.Close()

	client, err := New(gateway.Config{Name: "documenten", URL: srv.URL + "/documenten/api/v1"})
	require.NoError(t, err)

	doc, err := client.GetDocument(context.Background(), nil, srv.URL+"/documenten/api/v1/enkelvoudiginformatieobjecten/doc-1")
	require.NoError(t, err)
	assert.Equal(t, "besluit.pdf", doc.Bestandsnaam)
	assert.Equal(t, int64(2048), doc.Bestandsomvang)
	assert.True(t, doc.Published())

	_, err = client.GetDocument(context.Background(), nil, "enkelvoudiginformatieobjecten/missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestDocument_Published(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want bool
	}{
		{name: "definitief openbaar", doc: Document{Status: "definitief", Vertrouwelijkheidaanduiding: "openbaar"}, want: true},
		{name: "no status", doc: Document{}, want: true},
		{name: "in bewerking", doc: Document{Status: "in_bewerking"}, want: false},
		{name: "geheim", doc: Document{Status: "definitief", Vertrouwelijkheidaanduiding: "geheim"}, want: false},
		{name: "zeer geheim", doc: Document{Status: "gearchiveerd", Vertrouwelijkheidaanduiding: "zeer_geheim"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.doc.Published())
		})
	}
}
