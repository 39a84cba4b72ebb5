// Package kalshi implements the unified exchange contract for the Kalshi
// contracts venue. Catalog data comes from the elections API's event
// hierarchy; trading goes through the signed portfolio endpoints.
package kalshi

import (
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/internal/catalog"
	"github.com/pmxt/pmxt-go/internal/httpx"
)

const (
	defaultMarketBaseURL = "https://api.elections.kalshi.com/trade-api/v2"
	defaultTradeBaseURL  = "https://trading-api.kalshi.com"

	// tradePrefix is the path prefix signed into every portfolio request.
	tradePrefix = "/trade-api/v2"
)

// snapshot is the raw catalog state held by the cache: the accumulated
// event pages plus the series ticker → tags lookup.
type snapshot struct {
	events     []Event
	seriesTags map[string][]string
}

// Exchange is the Kalshi facade. The zero value is not usable; construct
// with New.
type Exchange struct {
	pmxt.Unsupported

	market *resty.Client
	trade  *resty.Client
	auth   *Auth
	log    *slog.Logger
	cache  *catalog.Cache[snapshot]
	now    func() time.Time
}

var _ pmxt.Exchange = (*Exchange)(nil)

// Option configures an Exchange.
type Option func(*Exchange)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exchange) { e.log = l }
}

// WithMarketBaseURL overrides the market-data base URL (testing).
func WithMarketBaseURL(u string) Option {
	return func(e *Exchange) { e.market.SetBaseURL(u) }
}

// WithTradeBaseURL overrides the trading base URL (testing).
func WithTradeBaseURL(u string) Option {
	return func(e *Exchange) { e.trade.SetBaseURL(u) }
}

// WithCacheTTL overrides the catalog cache freshness window.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Exchange) { e.cache = catalog.New[snapshot](ttl) }
}

// WithClock overrides the time source used for signatures and default
// history windows (testing).
func WithClock(now func() time.Time) Option {
	return func(e *Exchange) {
		e.now = now
		if e.auth != nil {
			e.auth.now = now
		}
	}
}

// New constructs the Kalshi facade. The auth provider is built only when
// both an API key and a private key are supplied; market-data operations
// work without credentials.
func New(creds pmxt.Credentials, opts ...Option) (*Exchange, error) {
	e := &Exchange{
		market: httpx.New(defaultMarketBaseURL),
		trade:  httpx.New(defaultTradeBaseURL),
		log:    slog.Default(),
		cache:  catalog.New[snapshot](catalog.DefaultTTL),
		now:    time.Now,
	}

	if creds.APIKey != "" || creds.PrivateKey != "" {
		auth, err := NewAuth(creds)
		if err != nil {
			return nil, err
		}
		e.auth = auth
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Name returns the venue's display name.
func (e *Exchange) Name() string { return "Kalshi" }

// ResetCache clears the catalog cache, forcing the next read to fetch.
func (e *Exchange) ResetCache() { e.cache.Reset() }

// ensureAuth returns the auth provider or the uniform auth-required error.
func (e *Exchange) ensureAuth() (*Auth, error) {
	if e.auth == nil {
		return nil, pmxt.ErrAuthRequired
	}
	return e.auth, nil
}
