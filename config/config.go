// Package config loads venue credentials and tuning from environment
// variables.
package config

import (
	"strings"

	"github.com/spf13/viper"

	pmxt "github.com/pmxt/pmxt-go"
)

// Config holds per-venue credentials and shared tuning. Every field maps
// to a PMXT_-prefixed environment variable, e.g. PMXT_KALSHI_API_KEY or
// PMXT_POLYMARKET_PRIVATE_KEY.
type Config struct {
	Kalshi      pmxt.Credentials
	Polymarket  pmxt.Credentials
	CacheTTLSec int
}

// Load reads configuration from environment variables prefixed with PMXT_.
// Absent credentials are left empty; the venue constructors decide what a
// given operation requires.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PMXT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("cache_ttl_sec", 300)

	cfg := &Config{}

	cfg.CacheTTLSec = v.GetInt("cache_ttl_sec")

	cfg.Kalshi = pmxt.Credentials{
		APIKey:     v.GetString("kalshi.api_key"),
		PrivateKey: v.GetString("kalshi.private_key"),
	}

	cfg.Polymarket = pmxt.Credentials{
		APIKey:        v.GetString("polymarket.api_key"),
		APISecret:     v.GetString("polymarket.api_secret"),
		Passphrase:    v.GetString("polymarket.passphrase"),
		PrivateKey:    v.GetString("polymarket.private_key"),
		SignatureType: v.GetInt("polymarket.signature_type"),
		FunderAddress: v.GetString("polymarket.funder_address"),
	}

	return cfg, nil
}
