package landmark

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"sync"
)

// Source is a provider of per-frame landmark detections. Multiple clients may
// subscribe; each receives the detections the source emits while it runs.
type Source interface {
	// Subscribe creates a new channel for receiving detection events. The
	// returned ID identifies the channel when unsubscribing.
	Subscribe() (string, chan Detection)

	// Unsubscribe removes a channel from the list of subscribers and closes it.
	Unsubscribe(string)

	// Monitor runs the capture loop, emitting detections to subscribers until
	// the context is cancelled.
	Monitor(context.Context) error

	// Close releases the underlying capture resources and closes all
	// subscribed channels. Safe to call more than once.
	Close() error
}

// randomID generates a random channel ID (8 byte random hex encoded value).
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Broadcaster implements the subscriber bookkeeping shared by the concrete
// sources. Embed it and implement Monitor/Close to build a Source.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]chan Detection
	closed      bool
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string]chan Detection)}
}

// Subscribe registers a new unbuffered subscriber channel.
func (b *Broadcaster) Subscribe() (string, chan Detection) {
	id := randomID()
	ch := make(chan Detection)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a channel from the list of subscribers and closes it.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Publish delivers the detection to every subscriber, blocking until each one
// accepts it. Used by sources whose cadence is externally controlled (tests,
// scripted feeds).
func (b *Broadcaster) Publish(d Detection) {
	b.mu.Lock()
	chans := make([]chan Detection, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		chans = append(chans, ch)
	}
	b.mu.Unlock()

	for _, ch := range chans {
		ch <- d
	}
}

// Offer delivers the detection to every subscriber that is ready to receive,
// dropping it for the rest. Camera frames are disposable: a subscriber that
// is mid-frame simply misses this one.
func (b *Broadcaster) Offer(d Detection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- d:
		default:
		}
	}
}

// CloseAll closes every subscriber channel exactly once.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
