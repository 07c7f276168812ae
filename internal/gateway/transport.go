package gateway

import (
	"context"
	"net/http"
	"time"

	"nlportal/internal/authentication"
	"nlportal/internal/idtoken"
	dErrors "nlportal/pkg/domain-errors"
)

// Header names and values sent to registries.
const (
	HeaderAPIKey     = "X-API-KEY"
	HeaderAcceptCRS  = "Accept-Crs"
	HeaderContentCRS = "Content-Crs"
	CRSWGS84         = "EPSG:4326"
)

// Observer records one registry round trip. status is 0 when no response
// was received.
type Observer interface {
	ObserveRequest(registry, method string, status int, elapsed time.Duration)
}

type metricsTransport struct {
	registry string
	observer Observer
	next     http.RoundTripper
}

func (t *metricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	t.observer.ObserveRequest(t.registry, req.Method, status, time.Since(start))
	return resp, err
}

type headerTransport struct {
	apiKey string
	crs    bool
	next   http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if t.apiKey != "" {
		req.Header.Set(HeaderAPIKey, t.apiKey)
	}
	if t.crs {
		req.Header.Set(HeaderAcceptCRS, CRSWGS84)
		req.Header.Set(HeaderContentCRS, CRSWGS84)
	}
	return t.next.RoundTrip(req)
}

// authorizer produces the Authorization header value for one request. An
// empty value leaves the request unauthenticated.
type authorizer func(ctx context.Context) (string, error)

// authTransport sets Authorization unless the request already carries one.
type authTransport struct {
	authorize authorizer
	next      http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		return t.next.RoundTrip(req)
	}
	value, err := t.authorize(req.Context())
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	if value == "" {
		return t.next.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", value)
	return t.next.RoundTrip(req)
}

func (p *Provider) authorizerFor(auth authentication.Authentication) authorizer {
	switch p.mode {
	case authStaticToken:
		value := "Token " + p.cfg.Token
		return func(context.Context) (string, error) { return value, nil }
	case authIDToken:
		return func(context.Context) (string, error) {
			token, err := idtoken.GenerateToken(p.cfg.Secret, p.cfg.ClientID)
			if err != nil {
				return "", err
			}
			return "Bearer " + token, nil
		}
	case authTokenExchange:
		return func(ctx context.Context) (string, error) {
			if auth == nil || auth.Token() == "" {
				return "", nil
			}
			token, err := p.exchanger.Exchange(ctx, auth.Token(), p.cfg.TokenExchange.TargetAudience)
			if err != nil {
				return "", err
			}
			return "Bearer " + token, nil
		}
	default:
		return func(context.Context) (string, error) {
			if auth == nil || auth.Token() == "" {
				return "", nil
			}
			return "Bearer " + auth.Token(), nil
		}
	}
}

var errNoExchanger = dErrors.New(dErrors.CodeConfiguration, "token exchange configured without an identity provider")
