package otel

import (
	"strings"
	"sync"
)

// DefaultRingSize is the default ring buffer capacity.
const DefaultRingSize = 256

// RingBuffer keeps the most recent events. Goroutine-safe.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []Event
	head  int // next write position
	count int
}

// NewRingBuffer creates a ring buffer holding up to size events.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{buf: make([]Event, size)}
}

// Push adds an event, evicting the oldest when full. Extra is copied so the
// caller may reuse its map.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		cp := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			cp[k] = v
		}
		e.Extra = cp
	}
	r.mu.Lock()
	r.buf[r.head] = e
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	r.mu.Unlock()
}

// Last returns up to n of the most recent events, oldest first.
func (r *RingBuffer) Last(n int) []Event {
	if n <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.count {
		n = r.count
	}
	out := make([]Event, n)
	size := len(r.buf)
	start := (r.head - n + size) % size
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%size]
	}
	return out
}

// Latest returns the most recent event whose kind starts with prefix.
func (r *RingBuffer) Latest(prefix string) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.buf)
	for i := 1; i <= r.count; i++ {
		e := r.buf[(r.head-i+size)%size]
		if strings.HasPrefix(string(e.Kind), prefix) {
			return e, true
		}
	}
	return Event{}, false
}

// Len returns the number of buffered events.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int {
	return len(r.buf)
}

// Stats counts buffered events by kind.
func (r *RingBuffer) Stats() map[EventKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[EventKind]int)
	size := len(r.buf)
	start := (r.head - r.count + size) % size
	for i := 0; i < r.count; i++ {
		counts[r.buf[(start+i)%size].Kind]++
	}
	return counts
}
