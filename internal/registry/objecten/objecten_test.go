package objecten

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlportal/internal/gateway"
)

func TestClient_ListObjects(t *testing.T) {
	var query map[string][]string
	var authz string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		authz = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"count":1,"results":[{"uuid":"o1","type":"https://types/task","record":{"typeVersion":1,"data":{"status":"open"}}}]}`))
	}))
	defer srv.Close()

	client, err := New(gateway.Config{Name: "objecten", URL: srv.URL + "/api/v2", Token: "objecten-token"})
	require.NoError(t, err)

	objs, err := client.ListObjects(context.Background(), nil, "https://types/task",
		DataAttr{Path: "identificatie__value", Op: "exact", Value: "999993653"},
		DataAttr{Path: "status", Op: "exact", Value: "open"},
	)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.JSONEq(t, `{"status":"open"}`, string(objs[0].Record.Data))
	assert.Equal(t, []string{"identificatie__value__exact__999993653,status__exact__open"}, query["data_attrs"])
	assert.Equal(t, "Token objecten-token", authz)
}

func TestClient_CreateObject(t *testing.T) {
	var got Object
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		got.UUID = "new-uuid"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(got)
	}))
	defer srv.Close()

	client, err := New(gateway.Config{Name: "objecten", URL: srv.URL})
	require.NoError(t, err)

	created, err := client.CreateObject(context.Background(), nil, Object{
		Type:   "https://types/submission",
		Record: Record{TypeVersion: 1, Data: json.RawMessage(`{"a":1}`), StartAt: "2024-01-01"},
	})
	require.NoError(t, err)
	assert.Equal(t, "new-uuid", created.UUID)
	assert.Equal(t, "https://types/submission", got.Type)
}
