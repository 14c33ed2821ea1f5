package signal

import (
	"testing"
	"time"

	"swingbot/internal/domain"
	"swingbot/internal/events"
)

func testSignal(ticker string, priority int) Pending {
	return Pending{
		Ticker:     ticker,
		Action:     domain.ActionBuy,
		Confidence: 80,
		Source:     "test",
		Priority:   priority,
	}
}

func TestAddRejectsDuplicateTicker(t *testing.T) {
	q := NewQueue(10, time.Hour, nil)

	if !q.Add(testSignal("AAPL", 5)) {
		t.Fatal("first Add returned false")
	}
	if q.Add(testSignal("AAPL", 1)) {
		t.Error("second Add for same ticker returned true, want false")
	}
	if got := q.Size(); got != 1 {
		t.Errorf("Size() = %d, want 1", got)
	}
}

func TestAddRejectsWhenFull(t *testing.T) {
	q := NewQueue(2, time.Hour, nil)

	q.Add(testSignal("AAPL", 1))
	q.Add(testSignal("MSFT", 2))
	if q.Add(testSignal("NVDA", 3)) {
		t.Error("Add beyond capacity returned true, want false")
	}
	if got := q.Size(); got != 2 {
		t.Errorf("Size() = %d, want 2", got)
	}
}

func TestPopOrdersByPriority(t *testing.T) {
	q := NewQueue(10, time.Hour, nil)

	q.Add(testSignal("LOW", 30))
	q.Add(testSignal("HIGH", 1))
	q.Add(testSignal("MID", 10))

	want := []string{"HIGH", "MID", "LOW"}
	for _, ticker := range want {
		got := q.Pop()
		if got == nil || got.Ticker != ticker {
			t.Fatalf("Pop() = %+v, want ticker %s", got, ticker)
		}
	}
	if !q.IsEmpty() {
		t.Error("IsEmpty() = false after popping everything")
	}
}

func TestEqualPriorityIsFIFO(t *testing.T) {
	q := NewQueue(10, time.Hour, nil)

	q.Add(testSignal("FIRST", 5))
	q.Add(testSignal("SECOND", 5))

	if got := q.Pop(); got.Ticker != "FIRST" {
		t.Errorf("Pop() = %s, want FIRST", got.Ticker)
	}
}

func TestExpiredSignalIsRemovedNotHidden(t *testing.T) {
	q := NewQueue(10, time.Hour, nil)

	past := time.Now().Add(-time.Hour)
	sig := testSignal("AAPL", 1)
	sig.ExpiresAt = &past
	q.Add(sig)

	if !q.IsEmpty() {
		t.Error("IsEmpty() = false for queue holding only an expired signal")
	}
	// The ticker slot must be free again.
	if !q.Add(testSignal("AAPL", 1)) {
		t.Error("Add after expiry returned false, want true")
	}
}

func TestExpiryEmitsEvent(t *testing.T) {
	bus := events.NewBus()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	q := NewQueue(10, time.Hour, bus)
	past := time.Now().Add(-time.Minute)
	sig := testSignal("AAPL", 1)
	sig.ExpiresAt = &past
	q.Add(sig)

	q.Peek()

	select {
	case e := <-ch:
		if e.Type != events.SignalExpired || e.Ticker != "AAPL" {
			t.Errorf("event = %+v, want signal_expired for AAPL", e)
		}
	default:
		t.Error("no signal-expired event published")
	}
}

func TestDefaultTTLApplied(t *testing.T) {
	q := NewQueue(10, 2*time.Hour, nil)
	q.Add(testSignal("AAPL", 1))

	got := q.Peek()
	if got == nil || got.ExpiresAt == nil {
		t.Fatal("Peek() returned signal without default expiry")
	}
	ttl := time.Until(*got.ExpiresAt)
	if ttl < time.Hour || ttl > 2*time.Hour {
		t.Errorf("default TTL = %v, want about 2h", ttl)
	}
}

func TestRemoveByTicker(t *testing.T) {
	q := NewQueue(10, time.Hour, nil)
	q.Add(testSignal("AAPL", 1))
	q.Add(testSignal("MSFT", 2))

	if !q.Remove("AAPL") {
		t.Fatal("Remove(AAPL) returned false")
	}
	if q.Remove("AAPL") {
		t.Error("second Remove(AAPL) returned true")
	}
	if got := q.Pop(); got.Ticker != "MSFT" {
		t.Errorf("Pop() after Remove = %s, want MSFT", got.Ticker)
	}
}

func TestSnapshotDoesNotMutate(t *testing.T) {
	q := NewQueue(10, time.Hour, nil)
	q.Add(testSignal("B", 2))
	q.Add(testSignal("A", 1))

	snap := q.Snapshot()
	if len(snap) != 2 || snap[0].Ticker != "A" || snap[1].Ticker != "B" {
		t.Errorf("Snapshot() = %v, want [A B] by priority", snap)
	}
	if got := q.Size(); got != 2 {
		t.Errorf("Size() after Snapshot = %d, want 2", got)
	}
}

func TestRemoveAfterExpiryPurge(t *testing.T) {
	q := NewQueue(10, time.Hour, nil)

	q.Add(testSignal("A", 1))
	mid := testSignal("B", 2)
	past := time.Now().Add(-time.Minute)
	mid.ExpiresAt = &past
	q.Add(mid)
	q.Add(testSignal("C", 3))

	// Trigger the purge, then remove a survivor whose heap slot moved.
	if got := q.Size(); got != 2 {
		t.Fatalf("Size() after purge = %d, want 2", got)
	}
	if !q.Remove("C") {
		t.Fatal("Remove(C) returned false after purge")
	}

	if q.Has("C") {
		t.Error("Has(C) = true after Remove")
	}
	if got := q.Pop(); got == nil || got.Ticker != "A" {
		t.Errorf("Pop() = %+v, want A", got)
	}
	if !q.IsEmpty() {
		t.Error("IsEmpty() = false after draining")
	}
}

func TestRemoveAfterRestore(t *testing.T) {
	q := NewQueue(10, time.Hour, nil)
	q.Restore([]Pending{
		testSignal("A", 1),
		testSignal("B", 2),
		testSignal("C", 3),
	})

	if !q.Remove("C") {
		t.Fatal("Remove(C) returned false after Restore")
	}

	// Removal must take out exactly C; the others keep their order.
	if !q.Has("A") || !q.Has("B") || q.Has("C") {
		t.Errorf("membership after Remove = (A:%v B:%v C:%v), want (true true false)",
			q.Has("A"), q.Has("B"), q.Has("C"))
	}
	if got := q.Pop(); got == nil || got.Ticker != "A" {
		t.Errorf("first Pop() = %+v, want A", got)
	}
	if got := q.Pop(); got == nil || got.Ticker != "B" {
		t.Errorf("second Pop() = %+v, want B", got)
	}
	if !q.IsEmpty() {
		t.Error("IsEmpty() = false after draining")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	q := NewQueue(10, time.Hour, nil)
	q.Add(testSignal("AAPL", 3))
	q.Add(testSignal("MSFT", 1))

	snap := q.Snapshot()

	q2 := NewQueue(10, time.Hour, nil)
	q2.Restore(snap)

	if got := q2.Size(); got != 2 {
		t.Fatalf("restored Size() = %d, want 2", got)
	}
	if got := q2.Pop(); got.Ticker != "MSFT" {
		t.Errorf("restored Pop() = %s, want MSFT", got.Ticker)
	}
}
