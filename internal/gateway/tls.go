package gateway

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/youmark/pkcs8"

	dErrors "nlportal/pkg/domain-errors"
)

// ResourceLoader resolves a configured resource reference to its bytes.
type ResourceLoader interface {
	Load(ref string) ([]byte, error)
}

// FileLoader reads `file:` and bare paths from disk and `classpath:` paths
// relative to Root. Values that already hold PEM text are returned as is.
type FileLoader struct {
	Root string
}

func (l FileLoader) Load(ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "-----BEGIN") {
		return []byte(ref), nil
	}

	path := ref
	switch {
	case strings.HasPrefix(ref, "file:"):
		path = strings.TrimPrefix(ref, "file:")
	case strings.HasPrefix(ref, "classpath:"):
		path = filepath.Join(l.Root, strings.TrimPrefix(ref, "classpath:"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load resource %q: %w", ref, err)
	}
	return data, nil
}

func buildTLSConfig(loader ResourceLoader, ssl SSLConfig) (*tls.Config, error) {
	keyPEM, err := loader.Load(ssl.Key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "ssl key unreadable")
	}
	cert, err := parseKeyBundle(keyPEM, ssl.KeyPassphrase)
	if err != nil {
		return nil, err
	}

	trustedPEM, err := loader.Load(ssl.TrustedCertificate)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "trusted certificate unreadable")
	}
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(trustedPEM) {
		return nil, dErrors.New(dErrors.CodeConfiguration, "trusted certificate contains no PEM certificates")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      roots,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// parseKeyBundle reads a private key and its certificate chain from one PEM
// document. Encrypted keys must be PKCS#8.
func parseKeyBundle(data []byte, passphrase string) (tls.Certificate, error) {
	var (
		key       any
		certBlock []byte
	)
	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch block.Type {
		case "CERTIFICATE":
			certBlock = append(certBlock, pem.EncodeToMemory(block)...)
		case "ENCRYPTED PRIVATE KEY":
			if passphrase == "" {
				return tls.Certificate{}, dErrors.New(dErrors.CodeConfiguration, "ssl key is encrypted but no passphrase is configured")
			}
			parsed, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, []byte(passphrase))
			if err != nil {
				return tls.Certificate{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "ssl key could not be decrypted")
			}
			key = parsed
		case "PRIVATE KEY":
			parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return tls.Certificate{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "ssl key is not valid PKCS#8")
			}
			key = parsed
		case "RSA PRIVATE KEY":
			parsed, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return tls.Certificate{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "ssl key is not valid PKCS#1")
			}
			key = parsed
		case "EC PRIVATE KEY":
			parsed, err := x509.ParseECPrivateKey(block.Bytes)
			if err != nil {
				return tls.Certificate{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "ssl key is not a valid EC key")
			}
			key = parsed
		}
	}

	if key == nil {
		return tls.Certificate{}, dErrors.New(dErrors.CodeConfiguration, "ssl key contains no private key")
	}
	if len(certBlock) == 0 {
		return tls.Certificate{}, dErrors.New(dErrors.CodeConfiguration, "ssl key contains no client certificate")
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return tls.Certificate{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "unsupported ssl key type")
	}
	// X509KeyPair checks that the key matches the leaf certificate.
	cert, err := tls.X509KeyPair(certBlock, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
	if err != nil {
		return tls.Certificate{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "ssl key does not match certificate")
	}
	return cert, nil
}
