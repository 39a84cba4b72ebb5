package kalshi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strconv"
	"time"

	"github.com/awnumar/memguard"

	pmxt "github.com/pmxt/pmxt-go"
)

// Auth signs Kalshi portfolio requests with RSA-PSS. The message is the
// millisecond timestamp, the HTTP method, and the request path — query
// parameters are never part of the signed payload. The private key PEM is
// sealed in a memguard enclave and only opened while signing.
type Auth struct {
	keyID   string
	enclave *memguard.Enclave
	now     func() time.Time
}

// NewAuth validates the credential subset Kalshi requires and seals the
// private key. It fails fast, before any network call, when a required
// field is absent or the key does not parse.
func NewAuth(creds pmxt.Credentials) (*Auth, error) {
	if creds.APIKey == "" {
		return nil, &pmxt.ConfigError{Venue: pmxt.VenueKalshi, Field: "APIKey", Msg: "key ID is required"}
	}
	if creds.PrivateKey == "" {
		return nil, &pmxt.ConfigError{Venue: pmxt.VenueKalshi, Field: "PrivateKey", Msg: "RSA private key PEM is required"}
	}

	// Parse once up front so a malformed key surfaces at construction.
	if _, err := parseRSAKey([]byte(creds.PrivateKey)); err != nil {
		return nil, &pmxt.ConfigError{Venue: pmxt.VenueKalshi, Field: "PrivateKey", Msg: err.Error()}
	}

	return &Auth{
		keyID:   creds.APIKey,
		enclave: memguard.NewEnclave([]byte(creds.PrivateKey)),
		now:     time.Now,
	}, nil
}

// Headers returns the three authentication headers for one request.
func (a *Auth) Headers(method, path string) (map[string]string, error) {
	ts := strconv.FormatInt(a.now().UnixMilli(), 10)
	sig, err := a.sign(ts + method + path)
	if err != nil {
		return nil, fmt.Errorf("kalshi: sign request: %w", err)
	}
	return map[string]string{
		"KALSHI-ACCESS-KEY":       a.keyID,
		"KALSHI-ACCESS-TIMESTAMP": ts,
		"KALSHI-ACCESS-SIGNATURE": sig,
	}, nil
}

// sign opens the enclave momentarily, parses the key, and produces an
// RSA-PSS SHA-256 signature with salt length equal to the digest length.
func (a *Auth) sign(payload string) (string, error) {
	buf, err := a.enclave.Open()
	if err != nil {
		return "", fmt.Errorf("open key enclave: %w", err)
	}
	key, err := parseRSAKey(buf.Bytes())
	buf.Destroy()
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256([]byte(payload))
	sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// parseRSAKey decodes a PEM block and parses PKCS#8 first, falling back to
// PKCS#1 for older keys.
func parseRSAKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key is not RSA")
		}
		return rsaKey, nil
	}

	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return rsaKey, nil
}
