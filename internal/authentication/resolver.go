package authentication

import (
	"log/slog"
	"strings"

	"nlportal/pkg/domain"
	dErrors "nlportal/pkg/domain-errors"
)

// Claim names set by the portal's identity provider.
const (
	ClaimBSN         = "bsn"
	ClaimKVK         = "kvk"
	ClaimGemachtigde = "gemachtigde"
)

// ErrUnsupportedUserType is returned when a token carries neither a citizen
// nor a company marker.
var ErrUnsupportedUserType = dErrors.New(dErrors.CodeForbidden, "unsupported user type")

// Resolve turns verified claims into exactly one principal variant. The
// citizen marker takes precedence when both are present. Claim values are
// taken as issued; the identity provider is trusted to have checked them.
// A delegate claim that cannot be read is dropped so it never blocks the
// subject.
func Resolve(token string, claims map[string]any) (Authentication, error) {
	delegate := resolveDelegate(claims)

	if raw := stringClaim(claims, ClaimBSN); raw != "" {
		return NewCitizen(token, domain.BSN(raw), claims, delegate), nil
	}
	if raw := stringClaim(claims, ClaimKVK); raw != "" {
		return NewCompany(token, domain.KVKNumber(raw), claims, delegate), nil
	}
	return nil, ErrUnsupportedUserType
}

func resolveDelegate(claims map[string]any) *Delegate {
	nested, ok := claims[ClaimGemachtigde].(map[string]any)
	if !ok {
		return nil
	}
	if raw := stringClaim(nested, ClaimBSN); raw != "" {
		bsn, err := domain.ParseBSN(raw)
		if err != nil {
			slog.Warn("ignoring malformed gemachtigde claim", "claim", ClaimBSN, "error", err)
			return nil
		}
		return &Delegate{Kind: KindCitizen, ID: bsn.String()}
	}
	if raw := stringClaim(nested, ClaimKVK); raw != "" {
		kvk, err := domain.ParseKVKNumber(raw)
		if err != nil {
			slog.Warn("ignoring malformed gemachtigde claim", "claim", ClaimKVK, "error", err)
			return nil
		}
		return &Delegate{Kind: KindCompany, ID: kvk.String()}
	}
	return nil
}

func stringClaim(claims map[string]any, name string) string {
	s, _ := claims[name].(string)
	return strings.TrimSpace(s)
}
