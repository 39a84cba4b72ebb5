package stream

import (
	"context"
	"testing"
	"time"

	pmxt "github.com/pmxt/pmxt-go"
)

// fakeProvider feeds canned updates into the broadcaster.
type fakeProvider struct {
	ch chan BookUpdate
}

func (f *fakeProvider) Updates() <-chan BookUpdate { return f.ch }

func waitUpdate(t *testing.T, ch <-chan BookUpdate) BookUpdate {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return BookUpdate{}
	}
}

func TestBroadcaster_FilteredSubscription(t *testing.T) {
	provider := &fakeProvider{ch: make(chan BookUpdate, 4)}

	b := NewBroadcaster(nil)
	b.Register(provider)

	matching := b.Subscribe(pmxt.VenueKalshi, "mkt-1")
	other := b.Subscribe(pmxt.VenueKalshi, "mkt-2")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	provider.ch <- BookUpdate{Venue: pmxt.VenueKalshi, MarketID: "mkt-1", OutcomeID: "T-1"}

	u := waitUpdate(t, matching)
	if u.MarketID != "mkt-1" {
		t.Fatalf("wrong update: %+v", u)
	}

	select {
	case u := <-other:
		t.Fatalf("subscriber for a different market got %+v", u)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroadcaster_SubscribeAllSeesEveryVenue(t *testing.T) {
	kalshiSrc := &fakeProvider{ch: make(chan BookUpdate, 4)}
	polySrc := &fakeProvider{ch: make(chan BookUpdate, 4)}

	b := NewBroadcaster(nil)
	b.Register(kalshiSrc)
	b.Register(polySrc)

	all := b.SubscribeAll()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	kalshiSrc.ch <- BookUpdate{Venue: pmxt.VenueKalshi, MarketID: "a"}
	polySrc.ch <- BookUpdate{Venue: pmxt.VenuePolymarket, MarketID: "b"}

	seen := map[pmxt.Venue]bool{}
	for i := 0; i < 2; i++ {
		u := waitUpdate(t, all)
		seen[u.Venue] = true
	}
	if !seen[pmxt.VenueKalshi] || !seen[pmxt.VenuePolymarket] {
		t.Fatalf("missing venues: %v", seen)
	}
}

func TestBroadcaster_MultipleSubscribersSameKey(t *testing.T) {
	provider := &fakeProvider{ch: make(chan BookUpdate, 4)}

	b := NewBroadcaster(nil)
	b.Register(provider)

	sub1 := b.Subscribe(pmxt.VenuePolymarket, "m")
	sub2 := b.Subscribe(pmxt.VenuePolymarket, "m")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	provider.ch <- BookUpdate{Venue: pmxt.VenuePolymarket, MarketID: "m"}

	waitUpdate(t, sub1)
	waitUpdate(t, sub2)
}
