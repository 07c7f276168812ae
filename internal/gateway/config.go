package gateway

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	dErrors "nlportal/pkg/domain-errors"
)

// DefaultTimeout bounds a single registry call when Config.Timeout is unset.
const DefaultTimeout = 10 * time.Second

// SSLConfig names the client certificate material for mutual TLS. Key holds
// the private key followed by the client certificate chain.
type SSLConfig struct {
	Key                string `yaml:"key"`
	TrustedCertificate string `yaml:"trustedCertificate"`
	KeyPassphrase      string `yaml:"keyPassphrase"`
}

// Enabled reports whether both halves of the TLS material are configured.
func (s SSLConfig) Enabled() bool {
	return strings.TrimSpace(s.Key) != "" && strings.TrimSpace(s.TrustedCertificate) != ""
}

// TokenExchangeConfig enables RFC 8693 exchange of the caller's token.
type TokenExchangeConfig struct {
	TargetAudience string `yaml:"targetAudience"`
}

// Config is the per-registry connection record.
type Config struct {
	Name          string              `yaml:"-"`
	URL           string              `yaml:"url"`
	APIKey        string              `yaml:"apiKey"`
	Token         string              `yaml:"token"`
	ClientID      string              `yaml:"clientId"`
	Secret        string              `yaml:"secret"`
	SSL           SSLConfig           `yaml:"ssl"`
	TokenExchange TokenExchangeConfig `yaml:"tokenExchange"`
	Timeout       time.Duration       `yaml:"timeout"`
}

func (c Config) parseURL() (*url.URL, error) {
	raw := strings.TrimSpace(c.URL)
	if raw == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("registry %s: url is required", c.Name))
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, fmt.Sprintf("registry %s: invalid url", c.Name))
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, fmt.Sprintf("registry %s: url must be absolute http(s), got %q", c.Name, raw))
	}
	return u, nil
}

type authMode int

const (
	authBearer authMode = iota
	authStaticToken
	authIDToken
	authTokenExchange
)

func (c Config) authMode() authMode {
	switch {
	case strings.TrimSpace(c.Token) != "":
		return authStaticToken
	case c.ClientID != "" && c.Secret != "":
		return authIDToken
	case strings.TrimSpace(c.TokenExchange.TargetAudience) != "":
		return authTokenExchange
	default:
		return authBearer
	}
}

func (m authMode) String() string {
	switch m {
	case authStaticToken:
		return "token"
	case authIDToken:
		return "id-token"
	case authTokenExchange:
		return "token-exchange"
	default:
		return "bearer"
	}
}
