package polymarket

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/internal/httpx"
)

// apiCreds is the L2 credential triple issued by the CLOB.
type apiCreds struct {
	Key        string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Auth provides the venue's two-level authentication. L1 is a wallet
// attestation signature; L2 is an HMAC over derived API credentials.
// Derived credentials are cached for the provider's lifetime; an explicit
// credential triple in the unified Credentials bypasses derivation.
type Auth struct {
	wallet        *wallet
	clob          *resty.Client
	log           *slog.Logger
	now           func() time.Time
	signatureType int
	funder        common.Address
	explicit      *apiCreds

	mu    sync.Mutex
	creds *apiCreds
}

// NewAuth builds the auth provider. A wallet private key is mandatory:
// everything, including L2 credential derivation, is rooted in it.
func NewAuth(creds pmxt.Credentials, clob *resty.Client) (*Auth, error) {
	if creds.PrivateKey == "" {
		return nil, &pmxt.ConfigError{
			Venue: pmxt.VenuePolymarket,
			Field: "private_key",
			Msg:   "a wallet private key is required for authentication",
		}
	}
	w, err := newWallet(creds.PrivateKey)
	if err != nil {
		return nil, &pmxt.ConfigError{
			Venue: pmxt.VenuePolymarket,
			Field: "private_key",
			Msg:   err.Error(),
		}
	}

	a := &Auth{
		wallet:        w,
		clob:          clob,
		log:           slog.Default(),
		now:           time.Now,
		signatureType: creds.SignatureType,
		funder:        w.address,
	}
	if creds.FunderAddress != "" {
		a.funder = common.HexToAddress(creds.FunderAddress)
	}
	if creds.APIKey != "" && creds.APISecret != "" && creds.Passphrase != "" {
		a.explicit = &apiCreds{
			Key:        creds.APIKey,
			Secret:     creds.APISecret,
			Passphrase: creds.Passphrase,
		}
	}
	return a, nil
}

// Address returns the signer's wallet address in checksum hex form.
func (a *Auth) Address() string { return a.wallet.address.Hex() }

// Reset drops the cached derived credentials. Explicit credentials
// supplied at construction survive a reset.
func (a *Auth) Reset() {
	a.mu.Lock()
	a.creds = nil
	a.mu.Unlock()
}

// l1Headers builds the wallet-attestation header set.
func (a *Auth) l1Headers(nonce int64) (map[string]string, error) {
	ts := strconv.FormatInt(a.now().Unix(), 10)
	sig, err := a.wallet.signClobAuth(ts, nonce)
	if err != nil {
		return nil, fmt.Errorf("sign auth attestation: %w", err)
	}
	return map[string]string{
		"POLY_ADDRESS":   a.wallet.address.Hex(),
		"POLY_SIGNATURE": sig,
		"POLY_TIMESTAMP": ts,
		"POLY_NONCE":     strconv.FormatInt(nonce, 10),
	}, nil
}

// apiCredentials returns the L2 triple, deriving it on first use. The CLOB
// keys credentials to the wallet: deriving recovers an existing key, and
// when none exists yet the create endpoint mints one.
func (a *Auth) apiCredentials(ctx context.Context) (*apiCreds, error) {
	if a.explicit != nil {
		return a.explicit, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.creds != nil {
		return a.creds, nil
	}

	headers, err := a.l1Headers(0)
	if err != nil {
		return nil, err
	}

	var derived apiCreds
	resp, err := a.clob.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetResult(&derived).
		Get("/auth/derive-api-key")
	if err == nil {
		err = httpx.CheckResponse("Polymarket", resp)
	}
	if err != nil {
		a.log.Debug("polymarket: api key derivation failed, creating", "err", err)
		resp, err = a.clob.R().
			SetContext(ctx).
			SetHeaders(headers).
			SetResult(&derived).
			Post("/auth/api-key")
		if err == nil {
			err = httpx.CheckResponse("Polymarket", resp)
		}
		if err != nil {
			return nil, fmt.Errorf("polymarket: could not derive or create api key: %w", err)
		}
	}
	if derived.Key == "" || derived.Secret == "" {
		return nil, fmt.Errorf("polymarket: api key endpoint returned empty credentials")
	}

	a.creds = &derived
	return a.creds, nil
}

// l2Headers builds the HMAC header set for a CLOB request. The signature
// covers timestamp + method + path + body with the urlsafe-base64-decoded
// secret as the key, and is itself urlsafe-base64 encoded.
func (a *Auth) l2Headers(ctx context.Context, method, path, body string) (map[string]string, error) {
	creds, err := a.apiCredentials(ctx)
	if err != nil {
		return nil, err
	}

	secret, err := base64.URLEncoding.DecodeString(creds.Secret)
	if err != nil {
		return nil, fmt.Errorf("decode api secret: %w", err)
	}

	ts := strconv.FormatInt(a.now().Unix(), 10)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(ts + method + path + body))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"POLY_ADDRESS":    a.wallet.address.Hex(),
		"POLY_SIGNATURE":  sig,
		"POLY_TIMESTAMP":  ts,
		"POLY_API_KEY":    creds.Key,
		"POLY_PASSPHRASE": creds.Passphrase,
	}, nil
}
