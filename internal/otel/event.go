// Package otel records what a feed session did as structured events.
//
// Events are typed structs serialized as JSONL lines by an async writer. An
// optional RingBuffer keeps the most recent events in memory so the player
// can show them without reading the log file back.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Page fetches
	KindFetchStart    EventKind = "fetch.start"
	KindFetchComplete EventKind = "fetch.complete"
	KindFetchError    EventKind = "fetch.error"
	KindFetchDropped  EventKind = "fetch.dropped"
	KindFeedExhausted EventKind = "fetch.exhausted"

	// Subscriptions
	KindSnapshot     EventKind = "subs.snapshot"
	KindToggle       EventKind = "subs.toggle"
	KindToggleDone   EventKind = "subs.toggle_done"
	KindToggleFailed EventKind = "subs.toggle_failed"
	KindAuthRequired EventKind = "subs.auth_required"

	// Playback
	KindPlayback EventKind = "playback.command"

	// Routing to external collaborators
	KindRoute EventKind = "route.open"

	// Session lifecycle
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindInput    EventKind = "sys.input"
)

// Event is the universal record. Every field except Kind and Time is
// optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "coord", "fetch", "ui", "main"
	SessionID string         `json:"session_id,omitempty"`
	ItemID    string         `json:"item,omitempty"`
	ChannelID string         `json:"channel,omitempty"`
	Offset    int            `json:"offset,omitempty"`
	Count     int            `json:"count,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := alias(e)
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
