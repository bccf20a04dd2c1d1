package feed

import (
	"errors"
	"slices"

	"github.com/samber/lo"
)

var (
	// ErrInFlight is returned when a fetch is already outstanding.
	ErrInFlight = errors.New("feed: fetch already in flight")

	// ErrExhausted is returned by LoadMore once the feed has no more pages.
	ErrExhausted = errors.New("feed: no more pages")
)

// Kind distinguishes the two fetches the engine can issue.
type Kind int

const (
	KindRefresh Kind = iota + 1
	KindLoadMore
)

func (k Kind) String() string {
	switch k {
	case KindRefresh:
		return "refresh"
	case KindLoadMore:
		return "load_more"
	default:
		return "unknown"
	}
}

// Request describes a fetch the caller must perform and hand back to
// Complete. The engine never performs I/O itself.
type Request struct {
	Kind   Kind
	Offset int
	seq    uint64
}

// Outcome is what a completed fetch did to the list.
type Outcome int

const (
	OutcomeRefreshed  Outcome = iota + 1 // items replaced wholesale
	OutcomeAppended                      // new tail appended
	OutcomeNoMoreData                    // empty or repeated tail page; feed exhausted
	OutcomeFailed                        // fetch error; list untouched
	OutcomeStale                         // result does not belong to the outstanding request
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRefreshed:
		return "refreshed"
	case OutcomeAppended:
		return "appended"
	case OutcomeNoMoreData:
		return "no_more_data"
	case OutcomeFailed:
		return "failed"
	case OutcomeStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Result reports the effect of Complete.
type Result struct {
	Outcome   Outcome
	Items     []Item // full list after the commit (copy)
	Added     int    // number of items appended or loaded
	Exhausted bool
	Err       error
}

// State is a read-only copy of the engine state.
type State struct {
	Items     []Item
	Cursor    int
	Loading   bool
	Exhausted bool
}

// Engine is the pagination state machine. It is not safe for concurrent use;
// the session event loop is its only caller.
type Engine struct {
	items     []Item
	cursor    int
	loading   bool
	exhausted bool
	inflight  Kind
	seq       uint64

	// restored when a refresh fails
	savedCursor    int
	savedExhausted bool
}

// NewEngine returns an empty engine ready for its first Refresh.
func NewEngine() *Engine {
	return &Engine{}
}

// Refresh resets the cursor and the exhausted flag and returns the request
// for the first page. It returns ErrInFlight while any fetch is outstanding.
func (e *Engine) Refresh() (Request, error) {
	if e.loading {
		return Request{}, ErrInFlight
	}
	e.savedCursor, e.savedExhausted = e.cursor, e.exhausted
	e.cursor = 0
	e.exhausted = false
	return e.begin(KindRefresh, 0), nil
}

// LoadMore returns the request for the next page, offset by the number of
// items already held. It is a no-op while loading (which also covers a
// pending refresh) and once the feed is exhausted.
func (e *Engine) LoadMore() (Request, error) {
	if e.loading {
		return Request{}, ErrInFlight
	}
	if e.exhausted {
		return Request{}, ErrExhausted
	}
	return e.begin(KindLoadMore, len(e.items)), nil
}

func (e *Engine) begin(kind Kind, offset int) Request {
	e.seq++
	e.loading = true
	e.inflight = kind
	return Request{Kind: kind, Offset: offset, seq: e.seq}
}

// Complete commits the outcome of req. page must already carry its final
// subscription state; the engine stores it as given.
//
// A loaded page whose last id equals the current last id is treated as the
// end of the feed, as is an empty page. Only the tail is compared.
func (e *Engine) Complete(req Request, page []Item, err error) Result {
	if !e.loading || req.seq != e.seq {
		return Result{Outcome: OutcomeStale, Exhausted: e.exhausted}
	}
	e.loading = false
	e.inflight = 0

	if err != nil {
		if req.Kind == KindRefresh {
			e.cursor, e.exhausted = e.savedCursor, e.savedExhausted
		}
		return Result{Outcome: OutcomeFailed, Exhausted: e.exhausted, Err: err}
	}

	if req.Kind == KindRefresh {
		e.items = slices.Clone(page)
		e.cursor = len(e.items)
		e.exhausted = len(page) == 0
		return Result{Outcome: OutcomeRefreshed, Items: e.Items(), Added: len(page), Exhausted: e.exhausted}
	}

	if len(page) == 0 || (len(e.items) > 0 && page[len(page)-1].ID == e.items[len(e.items)-1].ID) {
		e.exhausted = true
		return Result{Outcome: OutcomeNoMoreData, Items: e.Items(), Exhausted: true}
	}

	e.items = append(e.items, page...)
	e.cursor = len(e.items)
	return Result{Outcome: OutcomeAppended, Items: e.Items(), Added: len(page)}
}

// Expects reports whether req is the outstanding request. Results for any
// other request would be discarded by Complete.
func (e *Engine) Expects(req Request) bool {
	return e.loading && req.seq == e.seq
}

// Items returns a copy of the list in display order.
func (e *Engine) Items() []Item {
	return slices.Clone(e.items)
}

// Len returns the number of items held.
func (e *Engine) Len() int {
	return len(e.items)
}

// IndexOf returns the display position of id, or -1.
func (e *Engine) IndexOf(id string) int {
	_, idx, ok := lo.FindIndexOf(e.items, func(it Item) bool { return it.ID == id })
	if !ok {
		return -1
	}
	return idx
}

// Item returns the item with the given id.
func (e *Engine) Item(id string) (Item, bool) {
	return lo.Find(e.items, func(it Item) bool { return it.ID == id })
}

// SetSubscribed sets Subscribed on every held item of channelID and
// returns how many items changed.
func (e *Engine) SetSubscribed(channelID string, subscribed bool) int {
	n := 0
	for i := range e.items {
		if e.items[i].ChannelID == channelID && e.items[i].Subscribed != subscribed {
			e.items[i].Subscribed = subscribed
			n++
		}
	}
	return n
}

// Loading reports whether a fetch is outstanding, and which kind.
func (e *Engine) Loading() (Kind, bool) {
	return e.inflight, e.loading
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	return State{
		Items:     e.Items(),
		Cursor:    e.cursor,
		Loading:   e.loading,
		Exhausted: e.exhausted,
	}
}
