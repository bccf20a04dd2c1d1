// Package subs tracks which channels the viewer follows, with optimistic
// toggles that roll back when the server rejects them.
package subs

import (
	"errors"

	"github.com/samber/lo"

	"github.com/abelbrown/reel/internal/feed"
)

// ErrPending is returned by Toggle while an earlier toggle for the same
// channel is still waiting for the server.
var ErrPending = errors.New("subs: toggle already pending for channel")

// Ticket identifies one optimistic toggle. It carries the value to restore
// if the server call fails.
type Ticket struct {
	ChannelID string
	Prior     bool // value before the toggle
	Target    bool // optimistic value now visible
}

type entry struct {
	subscribed bool
	pending    bool
}

// Overlay is the per-channel subscription state applied over fetched items.
// Not safe for concurrent use.
type Overlay struct {
	channels map[string]*entry
}

// NewOverlay returns an overlay where every channel is unsubscribed.
func NewOverlay() *Overlay {
	return &Overlay{channels: make(map[string]*entry)}
}

// ApplySnapshot replaces the known state with the set of followed channels.
// Channels with a toggle in flight keep their optimistic value.
func (o *Overlay) ApplySnapshot(channelIDs []string) {
	followed := lo.SliceToMap(channelIDs, func(id string) (string, struct{}) {
		return id, struct{}{}
	})

	for id, e := range o.channels {
		if !e.pending {
			delete(o.channels, id)
		}
	}
	for id := range followed {
		if e, ok := o.channels[id]; ok && e.pending {
			continue
		}
		o.channels[id] = &entry{subscribed: true}
	}
}

// Decorate returns a copy of items with Subscribed set from the overlay.
func (o *Overlay) Decorate(items []feed.Item) []feed.Item {
	return lo.Map(items, func(it feed.Item, _ int) feed.Item {
		it.Subscribed = o.Subscribed(it.ChannelID)
		return it
	})
}

// Subscribed reports the visible state for a channel.
func (o *Overlay) Subscribed(channelID string) bool {
	if e, ok := o.channels[channelID]; ok {
		return e.subscribed
	}
	return false
}

// Pending reports whether a toggle is in flight for the channel.
func (o *Overlay) Pending(channelID string) bool {
	if e, ok := o.channels[channelID]; ok {
		return e.pending
	}
	return false
}

// Toggle flips the channel optimistically and marks it pending. The new
// value is visible to Subscribed and Decorate as soon as Toggle returns.
func (o *Overlay) Toggle(channelID string) (Ticket, error) {
	e, ok := o.channels[channelID]
	if !ok {
		e = &entry{}
		o.channels[channelID] = e
	}
	if e.pending {
		return Ticket{}, ErrPending
	}

	t := Ticket{ChannelID: channelID, Prior: e.subscribed, Target: !e.subscribed}
	e.subscribed = t.Target
	e.pending = true
	return t, nil
}

// Resolve clears the pending flag for t. When err is non-nil the channel is
// restored to t.Prior. It returns the resulting visible value.
func (o *Overlay) Resolve(t Ticket, err error) bool {
	e, ok := o.channels[t.ChannelID]
	if !ok || !e.pending {
		return o.Subscribed(t.ChannelID)
	}
	e.pending = false
	if err != nil {
		e.subscribed = t.Prior
	}
	return e.subscribed
}
