package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Registry clients and the gateway
// return these (wrapped) so services can translate them into domain errors:
//   - ErrNotFound: the registry has no such resource
//   - ErrUnavailable: the registry or identity provider could not be reached
//   - ErrInvalidState: a resource is in the wrong state for the operation
//   - ErrForeignHost: a reference points outside the registry's configured host
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidState = errors.New("invalid state")
	ErrForeignHost  = errors.New("foreign host")
)
