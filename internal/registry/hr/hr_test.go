package hr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlportal/internal/authentication"
	"nlportal/internal/gateway"
	"nlportal/pkg/domain"
	"nlportal/pkg/platform/sentinel"
)

func TestClient_GetMaatschappelijkeActiviteit(t *testing.T) {
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		headers = r.Header.Clone()
		switch r.URL.Path {
		case "/hr/api/maatschappelijkeactiviteiten/69599084":
			_, _ = w.Write([]byte(`{
				"kvkNummer":"69599084",
				"naam":"Test BV Donald",
				"formeleRegistratiedatum":"20150622",
				"handelsnamen":[{"naam":"Test BV Donald","volgorde":0}],
				"adressen":[{"type":"bezoekadres","straatnaam":"Hizzaarderlaan","huisnummer":3,"postcode":"1823CM","plaats":"Lollum"}]
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := New(gateway.Config{Name: "hr", URL: srv.URL + "/hr/api", APIKey: "hr-key"})
	require.NoError(t, err)
	auth := authentication.NewCompany("tok", domain.KVKNumber("69599084"), nil, nil)

	ma, err := client.GetMaatschappelijkeActiviteit(context.Background(), auth, "69599084")
	require.NoError(t, err)
	assert.Equal(t, "Test BV Donald", ma.Naam)
	require.Len(t, ma.Handelsnamen, 1)
	require.Len(t, ma.Adressen, 1)
	assert.Equal(t, 3, ma.Adressen[0].Huisnummer)
	assert.Equal(t, "hr-key", headers.Get(gateway.HeaderAPIKey))
	assert.Equal(t, "Bearer tok", headers.Get("Authorization"))

	_, err = client.GetMaatschappelijkeActiviteit(context.Background(), auth, "90000001")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
