// Package signal implements the pending-signal queue: a bounded priority
// buffer of candidate trades awaiting execution, deduplicated by ticker and
// expired by TTL.
package signal

import (
	"container/heap"
	"log/slog"
	"sort"
	"time"

	"swingbot/internal/domain"
	"swingbot/internal/events"
)

// Pending is a candidate trade awaiting execution. Priority is derived from
// decision quality (e.g. risk/reward) at construction and is immutable; a
// lower value dequeues first.
type Pending struct {
	Ticker         string                      `json:"ticker"`
	Action         domain.Action               `json:"action"`
	Confidence     float64                     `json:"confidence"`
	Source         string                      `json:"source"`
	Priority       int                         `json:"priority"`
	CreatedAt      time.Time                   `json:"created_at"`
	ExpiresAt      *time.Time                  `json:"expires_at,omitempty"`
	Recommendation *domain.AgentRecommendation `json:"agent_recommendation,omitempty"`
}

// expired reports whether the signal's TTL has passed at time now.
func (p Pending) expired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// Queue is a bounded min-heap of pending signals keyed by ticker. It is not
// internally synchronized: the engine's cycle is the sole mutator, and any
// concurrent use must be serialized by the caller.
type Queue struct {
	heap       pendingHeap
	byTicker   map[string]*item
	maxSignals int
	defaultTTL time.Duration
	bus        *events.Bus
	now        func() time.Time
	seq        uint64
	log        *slog.Logger
}

type item struct {
	sig   Pending
	index int // heap index, maintained by pendingHeap
	seq   uint64
}

// NewQueue creates a Queue holding at most maxSignals entries. Signals added
// without an explicit expiry receive defaultTTL (zero means never expires).
func NewQueue(maxSignals int, defaultTTL time.Duration, bus *events.Bus) *Queue {
	if maxSignals <= 0 {
		maxSignals = 50
	}
	return &Queue{
		byTicker:   make(map[string]*item),
		maxSignals: maxSignals,
		defaultTTL: defaultTTL,
		bus:        bus,
		now:        time.Now,
		log:        slog.Default().With("component", "signal-queue"),
	}
}

// Add inserts a signal unless its ticker is already queued or the queue is
// full. A missing expiry is defaulted from the queue's TTL. Returns whether
// the insertion succeeded.
func (q *Queue) Add(sig Pending) bool {
	q.purgeExpired()

	if _, dup := q.byTicker[sig.Ticker]; dup {
		q.log.Debug("duplicate signal rejected", "ticker", sig.Ticker)
		return false
	}
	if len(q.byTicker) >= q.maxSignals {
		q.log.Warn("queue full, signal rejected", "ticker", sig.Ticker, "max", q.maxSignals)
		return false
	}

	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = q.now()
	}
	if sig.ExpiresAt == nil && q.defaultTTL > 0 {
		exp := sig.CreatedAt.Add(q.defaultTTL)
		sig.ExpiresAt = &exp
	}

	it := &item{sig: sig, seq: q.nextSeq()}
	q.byTicker[sig.Ticker] = it
	heap.Push(&q.heap, it)
	return true
}

// Peek returns the highest-priority live signal without removing it, or nil
// if the queue is empty.
func (q *Queue) Peek() *Pending {
	q.purgeExpired()
	if q.heap.Len() == 0 {
		return nil
	}
	sig := q.heap[0].sig
	return &sig
}

// Pop removes and returns the highest-priority live signal, or nil if the
// queue is empty.
func (q *Queue) Pop() *Pending {
	q.purgeExpired()
	if q.heap.Len() == 0 {
		return nil
	}
	it := heap.Pop(&q.heap).(*item)
	delete(q.byTicker, it.sig.Ticker)
	return &it.sig
}

// Remove deletes the signal for ticker regardless of its priority position.
func (q *Queue) Remove(ticker string) bool {
	it, ok := q.byTicker[ticker]
	if !ok {
		return false
	}
	heap.Remove(&q.heap, it.index)
	delete(q.byTicker, ticker)
	return true
}

// Has reports whether a live signal for ticker is queued.
func (q *Queue) Has(ticker string) bool {
	q.purgeExpired()
	_, ok := q.byTicker[ticker]
	return ok
}

// Size returns the number of live signals.
func (q *Queue) Size() int {
	q.purgeExpired()
	return q.heap.Len()
}

// IsEmpty reports whether no live signals remain.
func (q *Queue) IsEmpty() bool {
	return q.Size() == 0
}

// Snapshot returns the live signals ordered by priority without mutating the
// queue.
func (q *Queue) Snapshot() []Pending {
	q.purgeExpired()

	items := make([]*item, len(q.heap))
	copy(items, q.heap)
	sort.Slice(items, func(i, j int) bool {
		if items[i].sig.Priority != items[j].sig.Priority {
			return items[i].sig.Priority < items[j].sig.Priority
		}
		return items[i].seq < items[j].seq
	})

	out := make([]Pending, 0, len(items))
	for _, it := range items {
		out = append(out, it.sig)
	}
	return out
}

// Restore replaces the queue contents from a persisted snapshot. Capacity
// and duplicate rules still apply; expired entries are dropped on the next
// read.
func (q *Queue) Restore(signals []Pending) {
	q.heap = q.heap[:0]
	q.byTicker = make(map[string]*item, len(signals))
	for _, sig := range signals {
		if _, dup := q.byTicker[sig.Ticker]; dup || len(q.byTicker) >= q.maxSignals {
			continue
		}
		it := &item{sig: sig, index: len(q.heap), seq: q.nextSeq()}
		q.byTicker[sig.Ticker] = it
		q.heap = append(q.heap, it)
	}
	heap.Init(&q.heap)
}

// SetNow overrides the queue's clock. Used by tests.
func (q *Queue) SetNow(now func() time.Time) { q.now = now }

// purgeExpired drops every expired entry, emitting one signal-expired event
// per removal, then re-establishes the heap invariant.
func (q *Queue) purgeExpired() {
	now := q.now()

	var kept pendingHeap
	for _, it := range q.heap {
		if !it.sig.expired(now) {
			kept = append(kept, it)
			continue
		}
		delete(q.byTicker, it.sig.Ticker)
		q.log.Info("signal expired", "ticker", it.sig.Ticker, "created_at", it.sig.CreatedAt)
		if q.bus != nil {
			q.bus.Publish(events.New(events.SignalExpired, it.sig.Ticker, map[string]any{
				"created_at": it.sig.CreatedAt,
			}))
		}
	}
	if len(kept) != len(q.heap) {
		// heap.Init only fixes indices of elements it swaps; survivors must
		// be renumbered by hand or a later heap.Remove corrupts the queue.
		for i, it := range kept {
			it.index = i
		}
		q.heap = kept
		heap.Init(&q.heap)
	}
}

func (q *Queue) nextSeq() uint64 {
	q.seq++
	return q.seq
}

// ---------------------------------------------------------------------------
// heap.Interface implementation
// ---------------------------------------------------------------------------

type pendingHeap []*item

func (h pendingHeap) Len() int { return len(h) }

func (h pendingHeap) Less(i, j int) bool {
	if h[i].sig.Priority != h[j].sig.Priority {
		return h[i].sig.Priority < h[j].sig.Priority
	}
	// Equal priority: earlier insertion wins.
	return h[i].seq < h[j].seq
}

func (h pendingHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *pendingHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
