package otel

// The drain goroutine is the only reader of l.ch and the only writer to l.w.
// l.mu guards the ring buffer pointer only; the ring has its own lock and is
// pushed to after l.mu is released.

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// queueSize bounds the events waiting for the writer. A scrolling session
// emits a few events per second, so this only fills if the disk stalls.
const queueSize = 2048

type logEntry struct {
	data []byte
	ev   Event
}

// Logger writes events as JSONL from a background goroutine. Emit never
// blocks the session event loop: when the queue is full the event is counted
// as dropped.
type Logger struct {
	mu        sync.Mutex
	ring      *RingBuffer
	sessionID string
	ch        chan logEntry
	w         io.Writer
	dropped   atomic.Uint64
	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewLogger creates a Logger writing to w and starts its writer goroutine.
// Call Close to flush.
func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		sessionID: uuid.NewString(),
		ch:        make(chan logEntry, queueSize),
		w:         w,
		done:      make(chan struct{}),
	}
	go l.drain()
	return l
}

// NewNullLogger creates a Logger that discards output.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

func (l *Logger) drain() {
	defer close(l.done)
	for entry := range l.ch {
		if _, err := l.w.Write(entry.data); err != nil {
			l.dropped.Add(1)
		}

		l.mu.Lock()
		ring := l.ring
		l.mu.Unlock()

		if ring != nil {
			ring.Push(entry.ev)
		}
	}
}

// SessionID is the id stamped on every event from this logger.
func (l *Logger) SessionID() string {
	return l.sessionID
}

// Emit queues e. Time is set if zero and SessionID is always overwritten.
// Safe to call concurrently with Close; late events are dropped.
func (l *Logger) Emit(e Event) {
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()

	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.sessionID

	data, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	data = append(data, '\n')

	select {
	case l.ch <- logEntry{data: data, ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// Info emits an info-level event.
func (l *Logger) Info(kind EventKind, comp string, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

// Warn emits a warn-level event.
func (l *Logger) Warn(kind EventKind, comp string, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error emits an error-level event. A nil err is logged as an empty string.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	l.Emit(Event{Level: LevelError, Kind: kind, Comp: comp, Err: errStr})
}

// SetRingBuffer attaches a ring buffer that receives every written event.
func (l *Logger) SetRingBuffer(ring *RingBuffer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring = ring
}

// Dropped returns the number of events lost since creation.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close flushes queued events and stops the writer.
func (l *Logger) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		<-l.done

		if d := l.dropped.Load(); d > 0 {
			fmt.Fprintf(os.Stderr, "reel: %d events dropped during session %s\n", d, l.sessionID)
		}
	})
}
