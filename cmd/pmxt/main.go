// Command pmxt is a thin CLI over the unified exchange contract. It
// routes every invocation through the operation command table, so the
// binary doubles as a smoke test for the dispatch layer.
//
// Usage:
//
//	pmxt <kalshi|polymarket> <operation> [id-or-query] [flags]
//
// Credentials come from PMXT_-prefixed environment variables.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/config"
	"github.com/pmxt/pmxt-go/kalshi"
	"github.com/pmxt/pmxt-go/polymarket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pmxt: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 3 {
		return usageError()
	}
	venue, op := os.Args[1], os.Args[2]
	rest := os.Args[3:]

	arg := ""
	if len(rest) > 0 && len(rest[0]) > 0 && rest[0][0] != '-' {
		arg = rest[0]
		rest = rest[1:]
	}

	flags := flag.NewFlagSet("pmxt", flag.ContinueOnError)
	limit := flags.Int("limit", 0, "result limit")
	sortKey := flags.String("sort", "", "sort key: volume|liquidity|newest")
	searchIn := flags.String("in", "", "search scope: title|description|both")
	resolution := flags.String("resolution", "", "candle resolution: 1m|5m|15m|1h|6h|1d")
	side := flags.String("side", "", "order side: buy|sell")
	typ := flags.String("type", "limit", "order type: limit|market")
	amount := flags.Float64("amount", 0, "order size in contracts/shares")
	price := flags.Float64("price", 0, "limit price in [0,1]")
	market := flags.String("market", "", "market id for order placement")
	if err := flags.Parse(rest); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cacheTTL := time.Duration(cfg.CacheTTLSec) * time.Second

	var ex pmxt.Exchange
	switch venue {
	case "kalshi":
		ex, err = kalshi.New(cfg.Kalshi, kalshi.WithLogger(log), kalshi.WithCacheTTL(cacheTTL))
	case "polymarket":
		ex, err = polymarket.New(cfg.Polymarket, polymarket.WithLogger(log), polymarket.WithCacheTTL(cacheTTL))
	default:
		return usageError()
	}
	if err != nil {
		return err
	}

	req := &pmxt.Request{
		ID:      arg,
		Query:   arg,
		Markets: &pmxt.MarketsParams{Limit: *limit, Sort: pmxt.SortKey(*sortKey)},
		Search:  &pmxt.SearchParams{Limit: *limit, Sort: pmxt.SortKey(*sortKey), SearchIn: pmxt.SearchScope(*searchIn)},
		History: &pmxt.HistoryParams{Resolution: pmxt.Resolution(*resolution), Limit: *limit},
		Trades:  &pmxt.TradesParams{Limit: *limit},
		Order: &pmxt.OrderParams{
			MarketID:  *market,
			OutcomeID: arg,
			Side:      pmxt.Side(*side),
			Type:      pmxt.OrderType(*typ),
			Amount:    *amount,
			Price:     *price,
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := pmxt.Call(ctx, ex, pmxt.Op(op), req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func usageError() error {
	return fmt.Errorf("usage: pmxt <kalshi|polymarket> <operation> [id-or-query] [flags]\n"+
		"operations: %s", "fetchMarkets searchMarkets getMarketsBySlug fetchOHLCV fetchOrderBook "+
		"fetchTrades createOrder cancelOrder fetchOrder fetchOpenOrders fetchPositions fetchBalance")
}
