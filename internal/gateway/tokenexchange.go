package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/sentinel"
)

// RFC 8693 identifiers.
const (
	grantTypeTokenExchange = "urn:ietf:params:oauth:grant-type:token-exchange"
	tokenTypeAccessToken   = "urn:ietf:params:oauth:token-type:access_token"
)

// TokenExchanger trades the caller's token for one scoped to audience.
type TokenExchanger interface {
	Exchange(ctx context.Context, subjectToken, audience string) (string, error)
}

// ExchangeClient calls an identity provider's token endpoint.
type ExchangeClient struct {
	endpoint     string
	clientID     string
	clientSecret string
	http         *http.Client
}

// NewExchangeClient builds an exchanger. A nil httpClient gets a 5s timeout.
func NewExchangeClient(endpoint, clientID, clientSecret string, httpClient *http.Client) *ExchangeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &ExchangeClient{
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         httpClient,
	}
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Exchange performs one exchange round trip. Failures are reported as an
// unavailable dependency and are not retried.
func (c *ExchangeClient) Exchange(ctx context.Context, subjectToken, audience string) (string, error) {
	form := url.Values{
		"grant_type":         {grantTypeTokenExchange},
		"subject_token":      {subjectToken},
		"subject_token_type": {tokenTypeAccessToken},
		"audience":           {audience},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeConfiguration, "invalid token exchange endpoint")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.clientID != "" {
		req.SetBasicAuth(c.clientID, c.clientSecret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", exchangeFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return "", exchangeFailure(fmt.Errorf("token endpoint answered %d", resp.StatusCode))
	}

	var out exchangeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&out); err != nil {
		return "", exchangeFailure(fmt.Errorf("decode token response: %w", err))
	}
	if out.AccessToken == "" {
		return "", exchangeFailure(fmt.Errorf("token response has no access_token"))
	}
	return out.AccessToken, nil
}

func exchangeFailure(err error) error {
	return dErrors.Wrap(fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err), dErrors.CodeUnavailable, "token exchange failed")
}
