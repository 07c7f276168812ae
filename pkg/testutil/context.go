package testutil

import (
	"net/http"

	"nlportal/internal/authentication"
	"nlportal/pkg/domain"
)

// WithAuth stores auth on the request as the auth middleware would.
func WithAuth(req *http.Request, auth authentication.Authentication) *http.Request {
	return req.WithContext(authentication.WithAuthentication(req.Context(), auth))
}

// WithCitizen authenticates req as a DigiD citizen.
func WithCitizen(req *http.Request, bsn string) *http.Request {
	return WithAuth(req, authentication.NewCitizen("test-token", domain.BSN(bsn), nil, nil))
}

// WithCompany authenticates req as an eHerkenning company.
func WithCompany(req *http.Request, kvk string) *http.Request {
	return WithAuth(req, authentication.NewCompany("test-token", domain.KVKNumber(kvk), nil, nil))
}
