package messaging

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlportal/internal/authentication"
	"nlportal/pkg/testutil"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withPrincipal stands in for the auth middleware.
func withPrincipal(auth authentication.Authentication) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, testutil.WithAuth(r, auth))
		})
	}
}

func TestHandleStream(t *testing.T) {
	broker := NewBroker()
	defer broker.Close()

	h := NewHandler(broker, discard())
	r := chi.NewRouter()
	r.Use(withPrincipal(authentication.NewCitizen("t", "999993653", nil, nil)))
	h.Register(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/messages/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// the subscription exists once headers are written
	pub := broker.Publisher()
	_, err = pub.Publish(ctx, "999990019", "bericht", nil)
	require.NoError(t, err)
	sent, err := pub.Publish(ctx, "999993653", "zaak.status", map[string]string{"status": "In behandeling"})
	require.NoError(t, err)

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 3 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line = strings.TrimRight(line, "\n"); line != "" {
			lines = append(lines, line)
		}
	}
	assert.Equal(t, "id: "+sent.ID, lines[0])
	assert.Equal(t, "event: zaak.status", lines[1])

	var got Message
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[2], "data: ")), &got))
	assert.Equal(t, "999993653", got.Recipient)
	assert.JSONEq(t, `{"status":"In behandeling"}`, string(got.Payload))
}

func TestHandleStream_Unauthenticated(t *testing.T) {
	h := NewHandler(NewBroker(), discard())
	r := chi.NewRouter()
	h.Register(r)

	rr := testutil.DoRequest(r, httptest.NewRequest(http.MethodGet, "/messages/stream", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestHandlePublish(t *testing.T) {
	broker := NewBroker()
	defer broker.Close()
	sub, err := broker.Subscribe("69599084")
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(broker, discard()).RegisterInternal(r)

	t.Run("accepted", func(t *testing.T) {
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/messages", `{"recipient":"69599084","type":"taak.nieuw","payload":{"taak":"t-1"}}`)
		rr := testutil.DoRequest(r, req)
		require.Equal(t, http.StatusAccepted, rr.Code)
		id := testutil.UnmarshalResponse[map[string]string](t, rr)

		msg := receive(t, sub)
		assert.Equal(t, (*id)["id"], msg.ID)
		assert.JSONEq(t, `{"taak":"t-1"}`, string(msg.Payload))
	})

	t.Run("missing recipient", func(t *testing.T) {
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/messages", `{"type":"taak.nieuw"}`)
		testutil.AssertStatusAndError(t, testutil.DoRequest(r, req), http.StatusBadRequest, "validation_error")
	})

	t.Run("line break in type", func(t *testing.T) {
		for _, body := range []string{
			`{"recipient":"69599084","type":"taak\ndata: forged"}`,
			`{"recipient":"69599084","type":"taak\r"}`,
		} {
			req := testutil.NewRequestWithBody(t, http.MethodPost, "/messages", body)
			testutil.AssertStatusAndError(t, testutil.DoRequest(r, req), http.StatusBadRequest, "validation_error")
		}
	})
}
