package payment

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"sort"
	"strings"

	dErrors "nlportal/pkg/domain-errors"
)

// Algorithm is an Ogone SHA signature algorithm.
type Algorithm string

const (
	SHA1   Algorithm = "SHA1"
	SHA256 Algorithm = "SHA256"
	SHA512 Algorithm = "SHA512"
)

// ParamSHASign carries the signature in both directions.
const ParamSHASign = "SHASIGN"

// shaOutParams are the callback parameters Ogone includes in the SHA-OUT
// digest. Anything else it sends back, such as the PARAMPLUS echo, is
// unsigned.
var shaOutParams = map[string]struct{}{
	"AAVADDRESS": {}, "AAVCHECK": {}, "AAVMAIL": {}, "AAVNAME": {}, "AAVPHONE": {}, "AAVZIP": {},
	"ACCEPTANCE": {}, "ALIAS": {}, "AMOUNT": {}, "BIC": {}, "BIN": {}, "BRAND": {},
	"CARDNO": {}, "CCCTY": {}, "CN": {}, "COLLECTOR_BIC": {}, "COLLECTOR_IBAN": {}, "COMPLUS": {},
	"CREATION_STATUS": {}, "CREDITDEBIT": {}, "CURRENCY": {}, "CVCCHECK": {},
	"DCC_COMMPERCENTAGE": {}, "DCC_CONVAMOUNT": {}, "DCC_CONVCCY": {}, "DCC_EXCHRATE": {},
	"DCC_EXCHRATESOURCE": {}, "DCC_EXCHRATETS": {}, "DCC_INDICATOR": {}, "DCC_MARGINPERCENTAGE": {},
	"DCC_VALIDHOURS": {}, "DEVICEID": {}, "DIGESTCARDNO": {}, "ECI": {}, "ED": {}, "EMAIL": {},
	"ENCCARDNO": {}, "FXAMOUNT": {}, "FXCURRENCY": {}, "IP": {}, "IPCTY": {}, "MANDATEID": {},
	"MOBILEMODE": {}, "NBREMAILUSAGE": {}, "NBRIPUSAGE": {}, "NBRIPUSAGE_ALLTX": {}, "NBRUSAGE": {},
	"NCERROR": {}, "ORDERID": {}, "PAYID": {}, "PAYIDSUB": {}, "PAYMENT_REFERENCE": {}, "PM": {},
	"SCO_CATEGORY": {}, "SCORING": {}, "SEQUENCETYPE": {}, "SIGNDATE": {}, "STATUS": {},
	"SUBBRAND": {}, "SUBSCRIPTION_ID": {}, "TICKET": {}, "TRXDATE": {}, "VC": {},
}

// isSHAOutParam reports whether name takes part in the SHA-OUT digest.
func isSHAOutParam(name string) bool {
	_, ok := shaOutParams[strings.ToUpper(name)]
	return ok
}

// ParseAlgorithm accepts SHA1, SHA256 and SHA512 in any case, with or without
// a dash. An empty value selects SHA512.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToUpper(strings.ReplaceAll(s, "-", "")) {
	case "", "SHA512":
		return SHA512, nil
	case "SHA256":
		return SHA256, nil
	case "SHA1":
		return SHA1, nil
	default:
		return "", dErrors.New(dErrors.CodeConfiguration, "unsupported ogone hash algorithm "+s)
	}
}

func (a Algorithm) newHash() hash.Hash {
	switch a {
	case SHA1:
		return sha1.New()
	case SHA256:
		return sha256.New()
	default:
		return sha512.New()
	}
}

// Signer computes Ogone SHA-IN / SHA-OUT signatures for one passphrase.
type Signer struct {
	algorithm  Algorithm
	passphrase string
}

func NewSigner(algorithm Algorithm, passphrase string) (*Signer, error) {
	if passphrase == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "ogone passphrase is required")
	}
	return &Signer{algorithm: algorithm, passphrase: passphrase}, nil
}

// Sign returns the upper-case hex digest of the parameters. Names are
// upper-cased and sorted; empty values and SHASIGN itself are skipped. Each
// remaining pair contributes NAME=value followed by the passphrase.
func (s *Signer) Sign(params map[string]string) string {
	upper := make(map[string]string, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		name := strings.ToUpper(k)
		if name == ParamSHASign {
			continue
		}
		upper[name] = v
	}
	names := make([]string, 0, len(upper))
	for k := range upper {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, k := range names {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(upper[k])
		b.WriteString(s.passphrase)
	}
	h := s.algorithm.newHash()
	h.Write([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}

// Verify reports whether signature matches the parameters.
func (s *Signer) Verify(params map[string]string, signature string) bool {
	want := s.Sign(params)
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToUpper(signature))) == 1
}
