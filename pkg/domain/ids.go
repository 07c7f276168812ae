package domain

import (
	"strings"

	dErrors "nlportal/pkg/domain-errors"
)

// BSN is a validated Dutch citizen service number (burgerservicenummer).
type BSN string

// KVKNumber is a validated Chamber of Commerce registration number.
type KVKNumber string

const (
	bsnLength = 9
	kvkLength = 8
)

// ParseBSN validates a BSN: nine digits that pass the eleven test
// (9*d1 + 8*d2 + ... + 2*d8 - 1*d9 divisible by 11).
func ParseBSN(s string) (BSN, error) {
	s = strings.TrimSpace(s)
	if len(s) != bsnLength || !allDigits(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "bsn must be 9 digits")
	}
	sum := 0
	for i := 0; i < bsnLength-1; i++ {
		sum += int(s[i]-'0') * (bsnLength - i)
	}
	sum -= int(s[bsnLength-1] - '0')
	if sum%11 != 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "bsn fails the eleven test")
	}
	return BSN(s), nil
}

// ParseKVKNumber validates an eight digit KVK number.
func ParseKVKNumber(s string) (KVKNumber, error) {
	s = strings.TrimSpace(s)
	if len(s) != kvkLength || !allDigits(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "kvk number must be 8 digits")
	}
	return KVKNumber(s), nil
}

func (b BSN) String() string       { return string(b) }
func (k KVKNumber) String() string { return string(k) }

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
