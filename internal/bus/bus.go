// Package bus carries inbound signals from collaborators to the state machine.
// Publish is non-blocking and never fails; a single consumer drains signals in
// arrival order. The queue is unbounded except for one lossy rule: a MicVolume
// signal whose predecessor at the tail is also MicVolume replaces it, keeping
// only the latest level. High-frequency volume updates therefore occupy at most
// one pending slot; no other kind is ever coalesced or dropped.
package bus

import (
	"sync"

	"airvoice/internal/domain"
)

// Bus is a single-consumer ordered signal queue.
type Bus struct {
	mu        sync.Mutex
	pending   []domain.Signal
	coalesced uint64
	published uint64
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Publish appends sig, coalescing consecutive MicVolume signals at the tail.
func (b *Bus) Publish(sig domain.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.published++
	if sig.Kind == domain.SignalMicVolume && len(b.pending) > 0 {
		if tail := &b.pending[len(b.pending)-1]; tail.Kind == domain.SignalMicVolume {
			*tail = sig
			b.coalesced++
			return
		}
	}
	b.pending = append(b.pending, sig)
}

// Drain hands all pending signals to the consumer in arrival order. Only the
// state machine's loop may call it.
func (b *Bus) Drain() []domain.Signal {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}
	out := b.pending
	b.pending = nil
	return out
}

// Depth returns the number of pending signals.
func (b *Bus) Depth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Stats reports totals for diagnostics.
func (b *Bus) Stats() (published uint64, coalesced uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published, b.coalesced
}
