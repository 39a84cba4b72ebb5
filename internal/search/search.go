// Package search implements the venue-agnostic catalog text filter.
// Neither venue supports server-side full-text search over the fields the
// unified model needs, so search always operates on a fully materialized
// catalog.
package search

import (
	"strings"

	pmxt "github.com/pmxt/pmxt-go"
)

// Filter applies a case-insensitive substring test against the scoped
// fields of each market, then truncates to limit. A limit <= 0 means no
// truncation.
func Filter(markets []pmxt.Market, query string, scope pmxt.SearchScope, limit int) []pmxt.Market {
	q := strings.ToLower(query)
	if scope == "" {
		scope = pmxt.SearchTitle
	}

	out := make([]pmxt.Market, 0)
	for _, m := range markets {
		titleMatch := strings.Contains(strings.ToLower(m.Title), q)
		descMatch := strings.Contains(strings.ToLower(m.Description), q)

		var match bool
		switch scope {
		case pmxt.SearchTitle:
			match = titleMatch
		case pmxt.SearchDescription:
			match = descMatch
		default:
			match = titleMatch || descMatch
		}
		if match {
			out = append(out, m)
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
