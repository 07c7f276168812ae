// Package gateway assembles authenticated HTTP clients for the registries
// behind the portal.
//
// A Provider is built once per registry from its Config. For every logical
// call, Provider.Client binds the caller's principal into a short-lived
// Client whose transport chain applies, outermost first: metrics, default
// headers, authorization, then the shared pooled transport carrying the TLS
// material. Building a Client performs no I/O.
package gateway

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"nlportal/internal/authentication"
	"nlportal/internal/idtoken"
	dErrors "nlportal/pkg/domain-errors"
)

// Provider is the per-registry client factory. It is safe for concurrent use.
type Provider struct {
	cfg       Config
	base      *url.URL
	mode      authMode
	crs       bool
	tlsConfig *tls.Config
	transport http.RoundTripper
	exchanger TokenExchanger
	observer  Observer
	logger    *slog.Logger
}

type providerOptions struct {
	crs       bool
	loader    ResourceLoader
	exchanger TokenExchanger
	observer  Observer
	logger    *slog.Logger
	transport *http.Transport
}

// Option configures a Provider.
type Option func(*providerOptions)

// WithCRSHeaders sends Accept-Crs and Content-Crs for geo-aware registries.
func WithCRSHeaders() Option {
	return func(o *providerOptions) { o.crs = true }
}

// WithResourceLoader overrides how ssl.* references are read.
func WithResourceLoader(l ResourceLoader) Option {
	return func(o *providerOptions) { o.loader = l }
}

// WithTokenExchanger supplies the identity provider used for tokenExchange.
func WithTokenExchanger(x TokenExchanger) Option {
	return func(o *providerOptions) { o.exchanger = x }
}

// WithObserver records every round trip.
func WithObserver(obs Observer) Option {
	return func(o *providerOptions) { o.observer = obs }
}

// WithLogger sets the logger used for downstream failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *providerOptions) { o.logger = l }
}

// WithTransport replaces the pooled base transport. TLS material from the
// config is still applied to it.
func WithTransport(t *http.Transport) Option {
	return func(o *providerOptions) { o.transport = t }
}

// NewProvider validates cfg and prepares the pooled transport.
func NewProvider(cfg Config, opts ...Option) (*Provider, error) {
	o := providerOptions{
		loader: FileLoader{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Name == "" {
		cfg.Name = "registry"
	}
	base, err := cfg.parseURL()
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	mode := cfg.authMode()
	switch mode {
	case authIDToken:
		if len(cfg.Secret) < idtoken.MinSecretLength {
			return nil, dErrors.Wrap(idtoken.ErrSecretTooShort, dErrors.CodeConfiguration,
				fmt.Sprintf("registry %s: invalid id-token secret", cfg.Name))
		}
	case authTokenExchange:
		if o.exchanger == nil {
			return nil, errNoExchanger
		}
	}

	var tlsConfig *tls.Config
	if cfg.SSL.Enabled() {
		tlsConfig, err = buildTLSConfig(o.loader, cfg.SSL)
		if err != nil {
			return nil, fmt.Errorf("registry %s: %w", cfg.Name, err)
		}
	}

	pooled := o.transport
	if pooled == nil {
		pooled = newPooledTransport()
	} else {
		pooled = pooled.Clone()
	}
	if tlsConfig != nil {
		pooled.TLSClientConfig = tlsConfig
	}

	return &Provider{
		cfg:       cfg,
		base:      base,
		mode:      mode,
		crs:       o.crs,
		tlsConfig: tlsConfig,
		transport: otelhttp.NewTransport(pooled),
		exchanger: o.exchanger,
		observer:  o.observer,
		logger:    o.logger.With("registry", cfg.Name),
	}, nil
}

func newPooledTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// Name returns the registry name used in logs and metrics.
func (p *Provider) Name() string { return p.cfg.Name }

// BaseURL returns a copy of the registry base URL.
func (p *Provider) BaseURL() *url.URL {
	u := *p.base
	return &u
}

// TLSConfig returns the client-certificate TLS config, or nil when the
// platform default applies.
func (p *Provider) TLSConfig() *tls.Config { return p.tlsConfig }

// AuthScheme names the authorization strategy in effect.
func (p *Provider) AuthScheme() string { return p.mode.String() }

// Client binds auth to a new Client. auth may be nil for calls made on the
// portal's own behalf.
func (p *Provider) Client(auth authentication.Authentication) *Client {
	var rt http.RoundTripper = &authTransport{authorize: p.authorizerFor(auth), next: p.transport}
	rt = &headerTransport{apiKey: strings.TrimSpace(p.cfg.APIKey), crs: p.crs, next: rt}
	if p.observer != nil {
		rt = &metricsTransport{registry: p.cfg.Name, observer: p.observer, next: rt}
	}
	return &Client{
		registry: p.cfg.Name,
		base:     p.base,
		http: &http.Client{
			Transport:     rt,
			Timeout:       p.cfg.Timeout,
			CheckRedirect: p.checkRedirect,
		},
		logger: p.logger,
	}
}

// checkRedirect stops at the redirect response when it leaves the registry
// host, since the transport chain would attach credentials again.
func (p *Provider) checkRedirect(req *http.Request, via []*http.Request) error {
	if !sameOrigin(p.base, req.URL) {
		return http.ErrUseLastResponse
	}
	if len(via) >= 10 {
		return fmt.Errorf("registry %s: stopped after 10 redirects", p.cfg.Name)
	}
	return nil
}
