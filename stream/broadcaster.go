package stream

import (
	"context"
	"log/slog"
	"sync"

	pmxt "github.com/pmxt/pmxt-go"
)

// UpdatesProvider is the interface a venue adapter satisfies to plug into
// the Broadcaster.
type UpdatesProvider interface {
	Updates() <-chan BookUpdate
}

// subKey identifies a filtered subscription by venue and market.
type subKey struct {
	Venue    pmxt.Venue
	MarketID string
}

// Broadcaster is a many-to-many hub: it ingests BookUpdates from any
// number of venue adapters and distributes them to filtered subscribers
// and a unified stream.
type Broadcaster struct {
	log     *slog.Logger
	sources []<-chan BookUpdate

	mu   sync.RWMutex
	subs map[subKey][]chan BookUpdate

	allMu  sync.RWMutex
	allSub []chan BookUpdate
}

// NewBroadcaster creates a Broadcaster ready for adapter registration.
func NewBroadcaster(log *slog.Logger) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	return &Broadcaster{
		log:  log,
		subs: make(map[subKey][]chan BookUpdate),
	}
}

// Register adds an adapter's update channel as a source. Must be called
// before Run.
func (b *Broadcaster) Register(provider UpdatesProvider) {
	b.sources = append(b.sources, provider.Updates())
}

// Subscribe returns a buffered channel receiving updates for one venue
// and market. The caller must drain it to avoid dropped messages.
func (b *Broadcaster) Subscribe(venue pmxt.Venue, marketID string) <-chan BookUpdate {
	ch := make(chan BookUpdate, 256)
	key := subKey{Venue: venue, MarketID: marketID}

	b.mu.Lock()
	b.subs[key] = append(b.subs[key], ch)
	b.mu.Unlock()

	return ch
}

// SubscribeAll returns a buffered channel receiving every update
// regardless of venue or market.
func (b *Broadcaster) SubscribeAll() <-chan BookUpdate {
	ch := make(chan BookUpdate, 512)

	b.allMu.Lock()
	b.allSub = append(b.allSub, ch)
	b.allMu.Unlock()

	return ch
}

// Run consumes all registered sources and distributes updates. It blocks
// until ctx is cancelled; each source gets its own goroutine.
func (b *Broadcaster) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, src := range b.sources {
		wg.Add(1)
		go func(ch <-chan BookUpdate) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case update, ok := <-ch:
					if !ok {
						return
					}
					b.distribute(update)
				}
			}
		}(src)
	}

	wg.Wait()
}

// distribute sends an update to matching filtered subscribers and every
// unified subscriber. Non-blocking: slow consumers get messages dropped.
func (b *Broadcaster) distribute(update BookUpdate) {
	key := subKey{Venue: update.Venue, MarketID: update.MarketID}

	b.mu.RLock()
	if subs, ok := b.subs[key]; ok {
		for _, ch := range subs {
			select {
			case ch <- update:
			default:
				b.log.Warn("stream: dropping update for slow subscriber",
					"venue", update.Venue, "market", update.MarketID)
			}
		}
	}
	b.mu.RUnlock()

	b.allMu.RLock()
	for _, ch := range b.allSub {
		select {
		case ch <- update:
		default:
			// Slow unified subscriber, drop.
		}
	}
	b.allMu.RUnlock()
}
