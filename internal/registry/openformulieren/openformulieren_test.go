package openformulieren

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlportal/internal/gateway"
)

func TestClient_ListForms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/forms", r.URL.Path)
		assert.Equal(t, "Token forms-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"uuid":"f1","name":"Melding","active":true},{"uuid":"f2","name":"Oud","active":false}]`))
	}))
	defer srv.Close()

	client, err := New(gateway.Config{Name: "openformulieren", URL: srv.URL + "/api/v2", Token: "forms-token"})
	require.NoError(t, err)

	forms, err := client.ListForms(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.True(t, forms[0].Available())
	assert.False(t, forms[1].Available())
}

func TestForm_Available(t *testing.T) {
	assert.False(t, Form{Active: true, MaintenanceMode: true}.Available())
}
