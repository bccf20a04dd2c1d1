// Package feed owns the ordered list of short videos shown in a session and
// the pagination state that grows it.
package feed

import "github.com/samber/lo"

// Item is one playable short video. Two items are the same item when their
// IDs match; every other field is display data.
type Item struct {
	ID          string
	Title       string
	PreviewURL  string // still image shown before playback starts
	MediaURL    string // playable archive url
	ChannelID   string
	ChannelName string // channel owner login, also used in share links
	AvatarURL   string
	Followers   string // follower count, already formatted for display
	Subscribed  bool
}

// Query is a page request handed to the network collaborator.
type Query struct {
	SortKey   string // empty means the server default
	ChannelID string // empty means all channels
	Offset    int    // number of items already fetched
	Limit     int    // zero means the server default
}

// IDs returns the item ids in display order.
func IDs(items []Item) []string {
	return lo.Map(items, func(it Item, _ int) string { return it.ID })
}
