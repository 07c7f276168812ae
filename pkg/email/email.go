// Package email normalizes contact e-mail addresses entered in the portal.
package email

import (
	"net/mail"
	"strings"

	dErrors "nlportal/pkg/domain-errors"
)

const maxLength = 254

var ErrInvalid = dErrors.New(dErrors.CodeValidation, "emailadres is not a valid e-mail address")

// Normalize validates a bare address (no display name) and lower-cases its
// domain. The local part is kept as entered.
func Normalize(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" || len(addr) > maxLength {
		return "", ErrInvalid
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Name != "" || parsed.Address != addr {
		return "", ErrInvalid
	}
	at := strings.LastIndexByte(addr, '@')
	local, domain := addr[:at], addr[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", ErrInvalid
	}
	return local + "@" + strings.ToLower(domain), nil
}
