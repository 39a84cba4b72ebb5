package kalshi

import (
	"fmt"
	"strings"
	"time"

	pmxt "github.com/pmxt/pmxt-go"
)

// --- Raw wire types ---

// Event is a Kalshi event: the container one level above markets.
type Event struct {
	EventTicker  string   `json:"event_ticker"`
	SeriesTicker string   `json:"series_ticker"`
	Title        string   `json:"title"`
	SubTitle     string   `json:"sub_title"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
	Markets      []Market `json:"markets"`
}

// Market is a Kalshi market nested inside an event. Prices are integer
// cents except the *_dollars fields.
type Market struct {
	Ticker               string  `json:"ticker"`
	Subtitle             string  `json:"subtitle"`
	YesSubTitle          string  `json:"yes_sub_title"`
	LastPrice            float64 `json:"last_price"`
	YesAsk               float64 `json:"yes_ask"`
	YesBid               float64 `json:"yes_bid"`
	LastPriceDollars     float64 `json:"last_price_dollars"`
	PreviousPriceDollars float64 `json:"previous_price_dollars"`
	Volume24h            float64 `json:"volume_24h"`
	Volume               float64 `json:"volume"`
	Liquidity            float64 `json:"liquidity"`
	OpenInterest         float64 `json:"open_interest"`
	ExpirationTime       string  `json:"expiration_time"`
	RulesPrimary         string  `json:"rules_primary"`
	RulesSecondary       string  `json:"rules_secondary"`
}

// noSuffix marks the synthetic complementary outcome's identity.
const noSuffix = "-NO"

// MapMarket converts one event/market pair into a unified market. Returns
// nil when the market is unusable (no ticker).
//
// A synthetic complementary outcome is always materialized: price 1−P, the
// ticker with the reserved "-NO" suffix, and a negated 24h delta. The
// negated delta is a modeling approximation, not venue-reported data.
func MapMarket(event Event, market Market) *pmxt.Market {
	if market.Ticker == "" {
		return nil
	}

	// Price derivation, in priority order: last trade, mid of best
	// bid/ask, single-sided ask, 0.5 when the venue reports nothing.
	price := 0.5
	switch {
	case market.LastPrice != 0:
		price = market.LastPrice / 100
	case market.YesAsk != 0 && market.YesBid != 0:
		price = (market.YesAsk + market.YesBid) / 200
	case market.YesAsk != 0:
		price = market.YesAsk / 100
	}

	candidate := market.Subtitle
	if candidate == "" {
		candidate = market.YesSubTitle
	}

	delta := market.LastPriceDollars - market.PreviousPriceDollars

	yesLabel, noLabel := "Yes", "No"
	if candidate != "" {
		yesLabel = candidate
		noLabel = "Not " + candidate
	}

	outcomes := []pmxt.Outcome{
		{ID: market.Ticker, Label: yesLabel, Price: price, PriceChange24h: delta},
		{ID: market.Ticker + noSuffix, Label: noLabel, Price: 1 - price, PriceChange24h: -delta},
	}

	// Category first, then event tags with duplicates suppressed.
	tags := make([]string, 0, len(event.Tags)+1)
	if event.Category != "" {
		tags = append(tags, event.Category)
	}
	for _, tag := range event.Tags {
		if !containsTag(tags, tag) {
			tags = append(tags, tag)
		}
	}

	description := market.RulesPrimary
	if description == "" {
		description = market.RulesSecondary
	}

	volume24h := market.Volume24h
	if volume24h == 0 {
		volume24h = market.Volume
	}

	var resolution time.Time
	if t, err := time.Parse(time.RFC3339, market.ExpirationTime); err == nil {
		resolution = t
	}

	return &pmxt.Market{
		ID:             market.Ticker,
		Title:          event.Title,
		Description:    description,
		Outcomes:       outcomes,
		ResolutionDate: resolution,
		Volume24h:      volume24h,
		Volume:         market.Volume,
		Liquidity:      market.Liquidity,
		OpenInterest:   market.OpenInterest,
		URL:            "https://kalshi.com/events/" + event.EventTicker,
		Category:       event.Category,
		Tags:           tags,
	}
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SplitSeriesTicker derives the parent series ticker from a compound
// market ticker ("FED-25JAN29-B4.75" → "FED-25JAN29"). Tickers with fewer
// than two dash-separated parts have no series component and fail.
func SplitSeriesTicker(ticker string) (string, error) {
	parts := strings.Split(ticker, "-")
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid Kalshi ticker format %q: expected a compound like \"FED-25JAN29-B4.75\"", ticker)
	}
	return strings.Join(parts[:len(parts)-1], "-"), nil
}

// cleanTicker strips the synthetic "-NO" suffix and uppercases, yielding
// the underlying market ticker the venue's endpoints expect.
func cleanTicker(id string) string {
	return strings.ToUpper(strings.TrimSuffix(id, noSuffix))
}
