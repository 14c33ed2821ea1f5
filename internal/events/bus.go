package events

import "sync"

// Bus fans events out to subscribers over buffered channels.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Event
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a listener and returns its channel plus an unsubscribe
// function. The buffer bounds how far a slow consumer may fall behind before
// events are dropped for it.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buffer)
	b.subs = append(b.subs, ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, c := range b.subs {
			if c == ch {
				close(c)
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
	}

	return ch, unsub
}

// Publish delivers the event to every subscriber without blocking. Events to
// subscribers with full buffers are dropped.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Slow subscriber; drop rather than stall the trading cycle.
		}
	}
}
