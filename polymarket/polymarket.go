// Package polymarket implements the unified exchange contract for the
// Polymarket order-book venue. Catalog data comes from the gamma events
// API; order flow goes through the CLOB with EIP-712 signed orders.
package polymarket

import (
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/internal/catalog"
	"github.com/pmxt/pmxt-go/internal/httpx"
)

const (
	defaultGammaBaseURL = "https://gamma-api.polymarket.com"
	defaultClobBaseURL  = "https://clob.polymarket.com"
	defaultDataBaseURL  = "https://data-api.polymarket.com"
)

// snapshot is the cached raw catalog page together with the query identity
// it was fetched for. The gamma API is offset-paginated, so a cached page
// only serves an identical follow-up query.
type snapshot struct {
	limit  int
	offset int
	sort   pmxt.SortKey
	events []Event
}

// Exchange is the Polymarket facade. The zero value is not usable;
// construct with New.
type Exchange struct {
	pmxt.Unsupported

	gamma *resty.Client
	clob  *resty.Client
	data  *resty.Client
	auth  *Auth
	log   *slog.Logger
	cache *catalog.Cache[snapshot]
	now   func() time.Time
}

var _ pmxt.Exchange = (*Exchange)(nil)

// Option configures an Exchange.
type Option func(*Exchange)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exchange) { e.log = l }
}

// WithGammaBaseURL overrides the catalog base URL (testing).
func WithGammaBaseURL(u string) Option {
	return func(e *Exchange) { e.gamma.SetBaseURL(u) }
}

// WithClobBaseURL overrides the CLOB base URL (testing).
func WithClobBaseURL(u string) Option {
	return func(e *Exchange) { e.clob.SetBaseURL(u) }
}

// WithDataBaseURL overrides the data API base URL (testing).
func WithDataBaseURL(u string) Option {
	return func(e *Exchange) { e.data.SetBaseURL(u) }
}

// WithCacheTTL overrides the catalog cache freshness window.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Exchange) { e.cache = catalog.New[snapshot](ttl) }
}

// WithClock overrides the time source used for auth timestamps, default
// history windows, and book snapshots (testing).
func WithClock(now func() time.Time) Option {
	return func(e *Exchange) {
		e.now = now
		if e.auth != nil {
			e.auth.now = now
		}
	}
}

// New constructs the Polymarket facade. The auth provider is built only
// when a wallet private key is supplied; market-data operations work
// without credentials.
func New(creds pmxt.Credentials, opts ...Option) (*Exchange, error) {
	e := &Exchange{
		gamma: httpx.New(defaultGammaBaseURL),
		clob:  httpx.New(defaultClobBaseURL),
		data:  httpx.New(defaultDataBaseURL),
		log:   slog.Default(),
		cache: catalog.New[snapshot](catalog.DefaultTTL),
		now:   time.Now,
	}

	if creds.PrivateKey != "" {
		auth, err := NewAuth(creds, e.clob)
		if err != nil {
			return nil, err
		}
		e.auth = auth
	}

	for _, opt := range opts {
		opt(e)
	}
	if e.auth != nil {
		e.auth.log = e.log
	}
	return e, nil
}

// Name returns the venue's display name.
func (e *Exchange) Name() string { return "Polymarket" }

// ResetCache clears the catalog cache, forcing the next read to fetch.
func (e *Exchange) ResetCache() { e.cache.Reset() }

// ensureAuth returns the auth provider or the uniform auth-required error.
func (e *Exchange) ensureAuth() (*Auth, error) {
	if e.auth == nil {
		return nil, pmxt.ErrAuthRequired
	}
	return e.auth, nil
}
