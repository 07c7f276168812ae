// Package idtoken mints HS256 service tokens for registries that expect a
// shared-secret bearer instead of the inbound user token.
//
// Tokens carry no exp claim. Registries accepting them enforce their own
// lifetime on iat.
package idtoken

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "nlportal/pkg/domain-errors"
)

// MinSecretLength is the shortest accepted signing secret, in bytes.
const MinSecretLength = 32

// DefaultUser is the system identity used when no caller is supplied.
const DefaultUser = "Valtimo"

// ErrSecretTooShort is returned for secrets under MinSecretLength bytes.
var ErrSecretTooShort = dErrors.New(dErrors.CodeConfiguration, "SecretKey needs to be at least 32 in length")

// Claims is the id-token payload.
type Claims struct {
	ClientID           string `json:"client_id"`
	UserID             string `json:"user_id"`
	UserRepresentation string `json:"user_representation"`
	jwt.RegisteredClaims
}

type options struct {
	userID             string
	userRepresentation string
	now                func() time.Time
}

// Option customizes a generated token.
type Option func(*options)

// WithUser sets the acting user identity.
func WithUser(id, representation string) Option {
	return func(o *options) {
		if id != "" {
			o.userID = id
		}
		if representation != "" {
			o.userRepresentation = representation
		}
	}
}

// WithClock overrides the issued-at source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// GenerateToken signs an id-token for clientID.
func GenerateToken(secret, clientID string, opts ...Option) (string, error) {
	if len(secret) < MinSecretLength {
		return "", ErrSecretTooShort
	}

	o := options{
		userID:             DefaultUser,
		userRepresentation: DefaultUser,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ClientID:           clientID,
		UserID:             o.userID,
		UserRepresentation: o.userRepresentation,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   clientID,
			IssuedAt: jwt.NewNumericDate(o.now()),
		},
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign id-token")
	}
	return signed, nil
}
