package coord

import (
	"time"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/playback"
	"github.com/abelbrown/reel/internal/subs"
)

// Input is an event from the presentation layer.
type Input interface{ input() }

// ViewReady asks for the initial load.
type ViewReady struct{}

// PullToRefresh asks for the feed to be reloaded from the start.
type PullToRefresh struct{}

// NearEndOfList reports that the viewer is close to the tail, for example
// because the footer cell became visible.
type NearEndOfList struct{}

// ItemBecameVisible reports the item that is now dominant on screen.
type ItemBecameVisible struct{ ID string }

// ItemBecameHidden reports that an item left the screen.
type ItemBecameHidden struct{ ID string }

// ItemTapped reports a tap on an item's player.
type ItemTapped struct{ ID string }

// SubscribeTapped reports a tap on a channel's subscribe button.
type SubscribeTapped struct{ ChannelID string }

// ShareTapped reports a tap on an item's share button.
type ShareTapped struct{ ID string }

// ReportTapped reports a tap on an item's report action.
type ReportTapped struct{ ID string }

// ProfileTapped reports a tap on a channel avatar.
type ProfileTapped struct{ ChannelID string }

func (ViewReady) input()         {}
func (PullToRefresh) input()     {}
func (NearEndOfList) input()     {}
func (ItemBecameVisible) input() {}
func (ItemBecameHidden) input()  {}
func (ItemTapped) input()        {}
func (SubscribeTapped) input()   {}
func (ShareTapped) input()       {}
func (ReportTapped) input()      {}
func (ProfileTapped) input()     {}

// Output is an effect for the presentation layer.
type Output interface{ output() }

// ItemsChanged carries the full list. When Appended is true only the last
// Added items are new and the rest is unchanged; otherwise the list was
// replaced and must be redrawn from scratch.
type ItemsChanged struct {
	Items    []feed.Item
	Appended bool
	Added    int
}

// RefreshFinished ends a pull-to-refresh or initial load.
type RefreshFinished struct{}

// EndOfFeed reports that paging stopped because no new tail arrived.
type EndOfFeed struct{}

// PlaybackCommand instructs one item's player.
type PlaybackCommand struct {
	ItemID string
	Action playback.Action
}

// SubscriptionChanged updates every item of a channel.
type SubscriptionChanged struct {
	ChannelID  string
	Subscribed bool
}

// ErrorKind classifies recoverable failures.
type ErrorKind string

const (
	FetchFailed  ErrorKind = "fetch_failed"
	ToggleFailed ErrorKind = "toggle_failed"
)

// ErrorOccurred is a transient failure. The session stays usable.
type ErrorOccurred struct {
	Kind ErrorKind
	Err  error
}

func (ItemsChanged) output()        {}
func (RefreshFinished) output()     {}
func (EndOfFeed) output()           {}
func (PlaybackCommand) output()     {}
func (SubscriptionChanged) output() {}
func (ErrorOccurred) output()       {}

// Internal completions posted back to the loop by worker goroutines.

type pageResult struct {
	req         feed.Request
	items       []feed.Item
	channels    []string
	snapshotted bool
	err         error
	dur         time.Duration
}

type toggleResult struct {
	ticket subs.Ticket
	err    error
}
