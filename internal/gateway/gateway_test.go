package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlportal/internal/authentication"
	"nlportal/pkg/domain"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/httputil"
	"nlportal/pkg/platform/sentinel"
)

type capturedRequest struct {
	mu      sync.Mutex
	headers []http.Header
	paths   []string
}

func (c *capturedRequest) last() http.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.headers) == 0 {
		return nil
	}
	return c.headers[len(c.headers)-1]
}

func (c *capturedRequest) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.headers)
}

func newRegistry(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.mu.Lock()
		captured.headers = append(captured.headers, r.Header.Clone())
		captured.paths = append(captured.paths, r.URL.RequestURI())
		captured.mu.Unlock()
		if handler != nil {
			handler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func citizen() authentication.Authentication {
	return authentication.NewCitizen("user-token", domain.BSN("999993653"), nil, nil)
}

type fakeExchanger struct {
	calls int32
	token string
	err   error
}

func (f *fakeExchanger) Exchange(_ context.Context, subject, audience string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return "", f.err
	}
	return f.token + ":" + subject + ":" + audience, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []int
}

func (o *recordingObserver) ObserveRequest(_, _ string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func TestNewProvider_Validation(t *testing.T) {
	t.Run("missing url", func(t *testing.T) {
		_, err := NewProvider(Config{Name: "zaken"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
	})

	t.Run("relative url", func(t *testing.T) {
		_, err := NewProvider(Config{Name: "zaken", URL: "/zaken/api/v1"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
	})

	t.Run("short id-token secret fails at assembly", func(t *testing.T) {
		_, err := NewProvider(Config{Name: "zaken", URL: "http://zaken.local", ClientID: "portal", Secret: strings.Repeat("x", 24)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SecretKey needs to be at least 32 in length")
	})

	t.Run("token exchange needs an exchanger", func(t *testing.T) {
		_, err := NewProvider(Config{Name: "zaken", URL: "http://zaken.local", TokenExchange: TokenExchangeConfig{TargetAudience: "zaken-api"}})
		require.Error(t, err)
	})

	t.Run("client assembly performs no io", func(t *testing.T) {
		p, err := NewProvider(Config{Name: "zaken", URL: "http://127.0.0.1:1"})
		require.NoError(t, err)
		assert.NotNil(t, p.Client(citizen()))
		assert.Nil(t, p.TLSConfig())
	})
}

func TestClient_Headers(t *testing.T) {
	t.Run("blank api key is omitted", func(t *testing.T) {
		srv, captured := newRegistry(t, nil)
		p, err := NewProvider(Config{Name: "catalogi", URL: srv.URL, APIKey: "   "})
		require.NoError(t, err)

		require.NoError(t, p.Client(nil).Get(context.Background(), "zaaktypen", nil, nil))
		h := captured.last()
		_, present := h[HeaderAPIKey]
		assert.False(t, present)
		assert.Equal(t, "application/json", h.Get("Accept"))
		assert.Empty(t, h.Get(HeaderAcceptCRS))
	})

	t.Run("api key and crs headers", func(t *testing.T) {
		srv, captured := newRegistry(t, nil)
		p, err := NewProvider(Config{Name: "zaken", URL: srv.URL, APIKey: "secret-key"}, WithCRSHeaders())
		require.NoError(t, err)

		require.NoError(t, p.Client(nil).Post(context.Background(), "zaken", map[string]string{"a": "b"}, nil))
		h := captured.last()
		assert.Equal(t, "secret-key", h.Get(HeaderAPIKey))
		assert.Equal(t, "EPSG:4326", h.Get(HeaderAcceptCRS))
		assert.Equal(t, "EPSG:4326", h.Get(HeaderContentCRS))
		assert.Equal(t, "application/json", h.Get("Content-Type"))
	})
}

func TestClient_Authorization(t *testing.T) {
	t.Run("principal bearer", func(t *testing.T) {
		srv, captured := newRegistry(t, nil)
		p, err := NewProvider(Config{Name: "zaken", URL: srv.URL})
		require.NoError(t, err)
		assert.Equal(t, "bearer", p.AuthScheme())

		require.NoError(t, p.Client(citizen()).Get(context.Background(), "zaken", nil, nil))
		assert.Equal(t, "Bearer user-token", captured.last().Get("Authorization"))
	})

	t.Run("no principal sends no authorization", func(t *testing.T) {
		srv, captured := newRegistry(t, nil)
		p, err := NewProvider(Config{Name: "zaken", URL: srv.URL})
		require.NoError(t, err)

		require.NoError(t, p.Client(nil).Get(context.Background(), "zaken", nil, nil))
		assert.Empty(t, captured.last().Get("Authorization"))
	})

	t.Run("static token scheme", func(t *testing.T) {
		srv, captured := newRegistry(t, nil)
		p, err := NewProvider(Config{Name: "objecten", URL: srv.URL, Token: "objecten-token"})
		require.NoError(t, err)

		require.NoError(t, p.Client(citizen()).Get(context.Background(), "objects", nil, nil))
		assert.Equal(t, "Token objecten-token", captured.last().Get("Authorization"))
	})

	t.Run("id-token bearer", func(t *testing.T) {
		secret := strings.Repeat("k", 32)
		srv, captured := newRegistry(t, nil)
		p, err := NewProvider(Config{Name: "zaken", URL: srv.URL, ClientID: "portal", Secret: secret})
		require.NoError(t, err)

		require.NoError(t, p.Client(citizen()).Get(context.Background(), "zaken", nil, nil))
		header := captured.last().Get("Authorization")
		require.True(t, strings.HasPrefix(header, "Bearer "))

		claims := jwt.MapClaims{}
		_, err = jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(*jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		require.NoError(t, err)
		assert.Equal(t, "portal", claims["iss"])
		assert.Equal(t, "portal", claims["client_id"])
	})

	t.Run("existing authorization is preserved", func(t *testing.T) {
		srv, captured := newRegistry(t, nil)
		p, err := NewProvider(Config{Name: "objecten", URL: srv.URL, Token: "objecten-token"})
		require.NoError(t, err)

		client := p.Client(citizen())
		req, err := client.NewRequest(context.Background(), http.MethodGet, "objects", nil, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer caller-chosen")
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "Bearer caller-chosen", captured.last().Get("Authorization"))
	})
}

func TestClient_TokenExchange(t *testing.T) {
	cfg := func(url string) Config {
		return Config{Name: "zaken", URL: url, TokenExchange: TokenExchangeConfig{TargetAudience: "zaken-api"}}
	}

	t.Run("exchanges the principal token", func(t *testing.T) {
		srv, captured := newRegistry(t, nil)
		x := &fakeExchanger{token: "exchanged"}
		p, err := NewProvider(cfg(srv.URL), WithTokenExchanger(x))
		require.NoError(t, err)

		require.NoError(t, p.Client(citizen()).Get(context.Background(), "zaken", nil, nil))
		assert.Equal(t, "Bearer exchanged:user-token:zaken-api", captured.last().Get("Authorization"))
		assert.Equal(t, int32(1), atomic.LoadInt32(&x.calls))
	})

	t.Run("skipped when authorization is present", func(t *testing.T) {
		srv, captured := newRegistry(t, nil)
		x := &fakeExchanger{token: "exchanged"}
		p, err := NewProvider(cfg(srv.URL), WithTokenExchanger(x))
		require.NoError(t, err)

		client := p.Client(citizen())
		req, err := client.NewRequest(context.Background(), http.MethodGet, "zaken", nil, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer already-there")
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "Bearer already-there", captured.last().Get("Authorization"))
		assert.Equal(t, int32(0), atomic.LoadInt32(&x.calls))
	})

	t.Run("exchange failure is an unavailable downstream", func(t *testing.T) {
		srv, captured := newRegistry(t, nil)
		x := &fakeExchanger{err: exchangeFailure(errors.New("idp down"))}
		p, err := NewProvider(cfg(srv.URL), WithTokenExchanger(x))
		require.NoError(t, err)

		err = p.Client(citizen()).Get(context.Background(), "zaken", nil, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
		status, _ := httputil.StatusFor(err)
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, 0, captured.count())
	})
}

func TestExchangeClient(t *testing.T) {
	t.Run("posts an rfc 8693 form", func(t *testing.T) {
		idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, grantTypeTokenExchange, r.PostForm.Get("grant_type"))
			assert.Equal(t, "user-token", r.PostForm.Get("subject_token"))
			assert.Equal(t, "zaken-api", r.PostForm.Get("audience"))
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "portal", user)
			assert.Equal(t, "idp-secret", pass)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"downstream","token_type":"Bearer"}`))
		}))
		defer idp.Close()

		token, err := NewExchangeClient(idp.URL, "portal", "idp-secret", nil).Exchange(context.Background(), "user-token", "zaken-api")
		require.NoError(t, err)
		assert.Equal(t, "downstream", token)
	})

	t.Run("non-2xx is unavailable", func(t *testing.T) {
		idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer idp.Close()

		_, err := NewExchangeClient(idp.URL, "", "", nil).Exchange(context.Background(), "user-token", "zaken-api")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})
}

func TestClient_References(t *testing.T) {
	srv, captured := newRegistry(t, nil)
	p, err := NewProvider(Config{Name: "zaken", URL: srv.URL + "/zaken/api/v1"})
	require.NoError(t, err)
	client := p.Client(citizen())

	t.Run("relative refs join the base path", func(t *testing.T) {
		require.NoError(t, client.Get(context.Background(), "zaken?x=1", map[string][]string{"y": {"2"}}, nil))
		captured.mu.Lock()
		path := captured.paths[len(captured.paths)-1]
		captured.mu.Unlock()
		assert.True(t, strings.HasPrefix(path, "/zaken/api/v1/zaken?"))
		assert.Contains(t, path, "x=1")
		assert.Contains(t, path, "y=2")
	})

	t.Run("absolute refs under the base path are allowed", func(t *testing.T) {
		require.NoError(t, client.Get(context.Background(), srv.URL+"/zaken/api/v1/zaken/abc", nil, nil))
	})

	t.Run("same host under another api is rejected", func(t *testing.T) {
		before := captured.count()
		for _, ref := range []string{srv.URL + "/documenten/api/v1/x", srv.URL + "/zaken/api/v10/zaken"} {
			err := client.Get(context.Background(), ref, nil, nil)
			require.ErrorIs(t, err, sentinel.ErrForeignHost, ref)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
		}
		assert.Equal(t, before, captured.count())
	})

	t.Run("foreign host is rejected before any call", func(t *testing.T) {
		before := captured.count()
		err := client.Get(context.Background(), "http://attacker.example/zaken/api/v1/zaken", nil, nil)
		require.ErrorIs(t, err, sentinel.ErrForeignHost)
		assert.Equal(t, before, captured.count())
	})
}

func TestClient_DownstreamErrors(t *testing.T) {
	srv, _ := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"boom"}`))
		case "/garbled":
			_, _ = w.Write([]byte(`{not json`))
		}
	})
	obs := &recordingObserver{}
	p, err := NewProvider(Config{Name: "zaken", URL: srv.URL}, WithObserver(obs))
	require.NoError(t, err)
	client := p.Client(nil)

	err = client.Get(context.Background(), "missing", nil, &struct{}{})
	var de *DownstreamError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusNotFound, de.DownstreamStatus())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	err = client.Get(context.Background(), "broken", nil, &struct{}{})
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusInternalServerError, de.StatusCode)
	assert.JSONEq(t, `{"detail":"boom"}`, string(de.Body))
	status, _ := httputil.StatusFor(err)
	assert.Equal(t, http.StatusBadGateway, status)

	err = client.Get(context.Background(), "garbled", nil, &struct{}{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadGateway))

	obs.mu.Lock()
	assert.Equal(t, []int{404, 500, 200}, obs.statuses)
	obs.mu.Unlock()
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := NewProvider(Config{Name: "zaken", URL: url})
	require.NoError(t, err)
	err = p.Client(nil).Get(context.Background(), "zaken", nil, nil)

	var de *DownstreamError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 0, de.DownstreamStatus())
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestClient_ForeignRedirectIsNotFollowed(t *testing.T) {
	foreign, foreignCaptured := newRegistry(t, nil)
	srv, _ := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, foreign.URL+"/steal", http.StatusFound)
	})
	p, err := NewProvider(Config{Name: "objecten", URL: srv.URL, Token: "objecten-token"})
	require.NoError(t, err)

	err = p.Client(nil).Get(context.Background(), "objects", nil, nil)
	var de *DownstreamError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusFound, de.StatusCode)
	assert.Equal(t, 0, foreignCaptured.count())
}

func TestCollectPages(t *testing.T) {
	var srvURL string
	srv, _ := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "", "1":
			fmt.Fprintf(w, `{"count":3,"next":"%s/items?page=2","results":[{"id":1},{"id":2}]}`, srvURL)
		case "2":
			_, _ = w.Write([]byte(`{"count":3,"next":null,"results":[{"id":3}]}`))
		}
	})
	srvURL = srv.URL

	p, err := NewProvider(Config{Name: "objecten", URL: srv.URL})
	require.NoError(t, err)

	type item struct {
		ID int `json:"id"`
	}
	items, err := CollectPages[item](context.Background(), p.Client(nil), "items", nil, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, 3, items[2].ID)

	var logs bytes.Buffer
	logged, err := NewProvider(Config{Name: "objecten", URL: srv.URL}, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)
	capped, err := CollectPages[item](context.Background(), logged.Client(nil), "items", nil, 1)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
	assert.Contains(t, logs.String(), "page limit reached")
}
