package authentication

import (
	"context"
	"fmt"
	"sync"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	dErrors "nlportal/pkg/domain-errors"
)

// Verifier checks an inbound bearer token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (map[string]any, error)
}

var errInvalidToken = dErrors.New(dErrors.CodeUnauthorized, "invalid token")

// JWKSVerifier validates RS/ES-signed tokens against the identity provider's
// published key set. Key sets are cached for ttl.
type JWKSVerifier struct {
	jwksURL  string
	issuer   string
	audience string
	ttl      time.Duration
	skew     time.Duration

	mu      sync.RWMutex
	set     jwk.Set
	expires time.Time
}

// NewJWKSVerifier creates a verifier. Empty issuer or audience skips that check.
func NewJWKSVerifier(jwksURL, issuer, audience string, ttl time.Duration) *JWKSVerifier {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWKSVerifier{
		jwksURL:  jwksURL,
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		skew:     30 * time.Second,
	}
}

func (v *JWKSVerifier) keySet(ctx context.Context) (jwk.Set, error) {
	v.mu.RLock()
	if v.set != nil && time.Now().Before(v.expires) {
		set := v.set
		v.mu.RUnlock()
		return set, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.set != nil && time.Now().Before(v.expires) {
		return v.set, nil
	}
	set, err := jwk.Fetch(ctx, v.jwksURL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "jwks fetch failed")
	}
	v.set = set
	v.expires = time.Now().Add(v.ttl)
	return set, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, token string) (map[string]any, error) {
	set, err := v.keySet(ctx)
	if err != nil {
		return nil, err
	}
	opts := []jwt.ParseOption{
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.skew),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	parsed, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}
	claims, err := parsed.AsMap(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// HMACVerifier validates HS256 tokens with a shared key. Intended for local
// development against a stub identity provider.
type HMACVerifier struct {
	key    []byte
	issuer string
}

func NewHMACVerifier(key, issuer string) *HMACVerifier {
	return &HMACVerifier{key: []byte(key), issuer: issuer}
}

func (v *HMACVerifier) Verify(_ context.Context, token string) (map[string]any, error) {
	opts := []gojwt.ParserOption{gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(v.issuer))
	}
	claims := gojwt.MapClaims{}
	parsed, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, errInvalidToken
	}
	return map[string]any(claims), nil
}

// StaticVerifier is a fixed-claims verifier for tests.
type StaticVerifier map[string]map[string]any

func (s StaticVerifier) Verify(_ context.Context, token string) (map[string]any, error) {
	claims, ok := s[token]
	if !ok {
		return nil, fmt.Errorf("unknown token: %w", errInvalidToken)
	}
	return claims, nil
}
