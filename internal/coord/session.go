// Package coord runs one short-video feed session.
//
// A Session owns the pagination engine, the subscription overlay and the
// playback coordinator. Inputs from the presentation layer and completions
// from network calls are processed one at a time, in arrival order, on a
// single loop goroutine. Network calls never run on that goroutine, so
// visibility and tap events stay responsive while a page is loading.
package coord

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/logging"
	"github.com/abelbrown/reel/internal/metrics"
	"github.com/abelbrown/reel/internal/otel"
	"github.com/abelbrown/reel/internal/playback"
	"github.com/abelbrown/reel/internal/subs"
)

// Subscription snapshot query, fetched with the first page.
const (
	snapshotLimit  = 100
	snapshotOffset = 0
	snapshotOrder  = "ACTIVITY"
)

// nearEndDistance is how many items before the tail a visible item must be
// to trigger the next page.
const nearEndDistance = 2

// inboxSize bounds queued inputs and completions.
const inboxSize = 256

// Network is the transport collaborator.
type Network interface {
	FetchPage(ctx context.Context, q feed.Query) ([]feed.Item, error)
	FetchSubscriptions(ctx context.Context, limit, offset int, order string) ([]string, error)
	Subscribe(ctx context.Context, channelID string) error
	Unsubscribe(ctx context.Context, channelID string) error
}

// Router is the navigation and auth collaborator. Its methods are called
// from the session loop and must return quickly.
type Router interface {
	IsAuthenticated() bool
	OpenAuth()
	OpenProfile(channelID string)
	OpenComposeShare(text string)
	OpenReportFlow(link string)
}

// UserContext identifies the viewer in report links.
type UserContext struct {
	Email  string
	UserID string
}

// Options configures a Session. Zero values are valid.
type Options struct {
	SortKey      string
	ChannelID    string // restrict the feed to one channel
	PageSize     int
	ShareBaseURL string
	ReportURL    string
	User         UserContext

	Log     *otel.Logger     // optional
	Metrics *metrics.Metrics // optional
}

// Session is one feed session. Create with NewSession, then Start.
type Session struct {
	id     string
	net    Network
	router Router
	opts   Options

	// Owned by the loop goroutine.
	engine  *feed.Engine
	overlay *subs.Overlay
	player  *playback.Coordinator

	inbox chan any
	done  chan struct{}

	obsMu     sync.Mutex
	observers map[int]func(Output)
	nextObs   int

	wg sync.WaitGroup
}

// NewSession creates an idle session. Nothing is fetched until ViewReady.
func NewSession(net Network, router Router, opts Options) *Session {
	id := uuid.NewString()
	if opts.Log != nil {
		id = opts.Log.SessionID()
	}
	return &Session{
		id:        id,
		net:       net,
		router:    router,
		opts:      opts,
		engine:    feed.NewEngine(),
		overlay:   subs.NewOverlay(),
		player:    playback.NewCoordinator(),
		inbox:     make(chan any, inboxSize),
		done:      make(chan struct{}),
		observers: make(map[int]func(Output)),
	}
}

// ID returns the session id, shared with the event log when one is set.
func (s *Session) ID() string {
	return s.id
}

// Register adds an observer for outputs. Observers are called on the loop
// goroutine in registration order and must not block. The returned func
// unregisters it.
func (s *Session) Register(fn func(Output)) (unregister func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	key := s.nextObs
	s.nextObs++
	s.observers[key] = fn
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, key)
	}
}

// Start runs the loop until ctx is cancelled. Cancelling stops the active
// player and cancels in-flight network calls.
func (s *Session) Start(ctx context.Context) {
	if s.opts.Log != nil {
		s.opts.Log.Info(otel.KindStartup, "coord", "session started")
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(s.done)
		s.run(ctx)
	}()
}

// Wait blocks until the loop and every worker goroutine have exited.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Send queues an input. It returns immediately unless the queue is full,
// and drops the input once the session has stopped.
func (s *Session) Send(in Input) {
	select {
	case s.inbox <- in:
	case <-s.done:
	}
}

func (s *Session) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.publishPlayback(s.player.Halt())
			s.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindShutdown, Comp: "coord", Count: s.engine.Len()})
			return
		case msg := <-s.inbox:
			s.handle(ctx, msg)
		}
	}
}

func (s *Session) handle(ctx context.Context, msg any) {
	if otel.TraceEnabled() {
		s.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindInput, Comp: "coord", Msg: fmt.Sprintf("%T", msg)})
	}

	switch m := msg.(type) {
	case ViewReady, PullToRefresh:
		s.refresh(ctx)
	case NearEndOfList:
		s.loadMore(ctx)
	case ItemBecameVisible:
		s.publishPlayback(s.player.OnBecameVisible(m.ID))
		if idx := s.engine.IndexOf(m.ID); idx >= 0 && idx >= s.engine.Len()-nearEndDistance {
			s.loadMore(ctx)
		}
	case ItemBecameHidden:
		s.publishPlayback(s.player.OnBecameHidden(m.ID))
	case ItemTapped:
		s.publishPlayback(s.player.OnTap(m.ID))
	case SubscribeTapped:
		s.toggle(ctx, m.ChannelID)
	case ShareTapped:
		s.share(m.ID)
	case ReportTapped:
		s.report(m.ID)
	case ProfileTapped:
		if m.ChannelID != "" {
			s.route("profile", m.ChannelID)
			s.router.OpenProfile(m.ChannelID)
		}
	case pageResult:
		s.completePage(m)
	case toggleResult:
		s.completeToggle(m)
	default:
		logging.Warn("coord: unknown message", "type", fmt.Sprintf("%T", msg))
	}
}

// refresh serves both the initial load and pull-to-refresh.
func (s *Session) refresh(ctx context.Context) {
	req, err := s.engine.Refresh()
	if err != nil {
		s.dropped(feed.KindRefresh, err)
		return
	}
	s.fetch(ctx, req, s.router.IsAuthenticated())
}

func (s *Session) loadMore(ctx context.Context) {
	req, err := s.engine.LoadMore()
	if err != nil {
		s.dropped(feed.KindLoadMore, err)
		return
	}
	s.fetch(ctx, req, false)
}

func (s *Session) dropped(kind feed.Kind, err error) {
	outcome := "dropped"
	if errors.Is(err, feed.ErrExhausted) {
		outcome = "exhausted"
	}
	s.opts.Metrics.Fetch(kind.String(), outcome)
	s.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindFetchDropped, Comp: "coord", Msg: kind.String(), Err: err.Error()})
}

// fetch runs the page request, and the subscription snapshot when asked,
// off the loop goroutine. Both must succeed for the page to be committed.
func (s *Session) fetch(ctx context.Context, req feed.Request, withSnapshot bool) {
	q := feed.Query{
		SortKey:   s.opts.SortKey,
		ChannelID: s.opts.ChannelID,
		Offset:    req.Offset,
		Limit:     s.opts.PageSize,
	}
	s.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindFetchStart, Comp: "coord", Offset: req.Offset, Msg: req.Kind.String()})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		start := time.Now()
		res := pageResult{req: req, snapshotted: withSnapshot}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			items, err := s.net.FetchPage(gctx, q)
			if err != nil {
				return fmt.Errorf("fetch page at offset %d: %w", q.Offset, err)
			}
			res.items = items
			return nil
		})
		if withSnapshot {
			g.Go(func() error {
				ids, err := s.net.FetchSubscriptions(gctx, snapshotLimit, snapshotOffset, snapshotOrder)
				if err != nil {
					return fmt.Errorf("fetch subscriptions: %w", err)
				}
				res.channels = ids
				return nil
			})
		}
		res.err = g.Wait()
		res.dur = time.Since(start)

		s.post(ctx, res)
	}()
}

// post hands a completion back to the loop. After cancellation the loop is
// gone and the result is discarded.
func (s *Session) post(ctx context.Context, msg any) {
	select {
	case s.inbox <- msg:
	case <-ctx.Done():
	}
}

func (s *Session) completePage(r pageResult) {
	if !s.engine.Expects(r.req) {
		s.opts.Metrics.Fetch(r.req.Kind.String(), feed.OutcomeStale.String())
		return
	}

	page := r.items
	if r.err == nil {
		if r.snapshotted {
			s.overlay.ApplySnapshot(r.channels)
			s.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSnapshot, Comp: "coord", Count: len(r.channels)})
		}
		page = s.overlay.Decorate(page)
	}

	res := s.engine.Complete(r.req, page, r.err)
	s.opts.Metrics.Fetch(r.req.Kind.String(), res.Outcome.String())

	switch res.Outcome {
	case feed.OutcomeFailed:
		logging.Warn("coord: page fetch failed", "kind", r.req.Kind, "offset", r.req.Offset, "error", res.Err)
		s.emit(otel.Event{Level: otel.LevelError, Kind: otel.KindFetchError, Comp: "coord", Offset: r.req.Offset, Dur: r.dur, Err: res.Err.Error()})
		s.publish(ErrorOccurred{Kind: FetchFailed, Err: res.Err})
		if r.req.Kind == feed.KindRefresh {
			s.publish(RefreshFinished{})
		}

	case feed.OutcomeRefreshed:
		s.fetched(r, res)
		s.publish(ItemsChanged{Items: res.Items, Added: res.Added})
		if res.Exhausted {
			s.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindFeedExhausted, Comp: "coord", Msg: "empty feed"})
		}
		s.publish(RefreshFinished{})

	case feed.OutcomeAppended:
		s.fetched(r, res)
		s.publish(ItemsChanged{Items: res.Items, Appended: true, Added: res.Added})

	case feed.OutcomeNoMoreData:
		s.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindFeedExhausted, Comp: "coord", Offset: r.req.Offset, Count: len(r.items)})
		s.publish(EndOfFeed{})
	}
}

func (s *Session) fetched(r pageResult, res feed.Result) {
	s.opts.Metrics.Items(len(res.Items))
	s.emit(otel.Event{
		Level:  otel.LevelInfo,
		Kind:   otel.KindFetchComplete,
		Comp:   "coord",
		Offset: r.req.Offset,
		Count:  res.Added,
		Dur:    r.dur,
		Msg:    res.Outcome.String(),
	})
}

// toggle flips a channel optimistically and confirms it with the server.
// Logged-out viewers are sent to the auth flow instead.
func (s *Session) toggle(ctx context.Context, channelID string) {
	if channelID == "" {
		return
	}
	if !s.router.IsAuthenticated() {
		s.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindAuthRequired, Comp: "coord", ChannelID: channelID})
		s.router.OpenAuth()
		return
	}

	ticket, err := s.overlay.Toggle(channelID)
	if err != nil {
		s.opts.Metrics.Toggle(!s.overlay.Subscribed(channelID), "rejected")
		s.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindToggle, Comp: "coord", ChannelID: channelID, Err: err.Error()})
		return
	}
	s.engine.SetSubscribed(channelID, ticket.Target)
	s.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindToggle, Comp: "coord", ChannelID: channelID, Extra: map[string]any{"target": ticket.Target}})
	s.publish(SubscriptionChanged{ChannelID: channelID, Subscribed: ticket.Target})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		var err error
		if ticket.Target {
			err = s.net.Subscribe(ctx, channelID)
		} else {
			err = s.net.Unsubscribe(ctx, channelID)
		}
		s.post(ctx, toggleResult{ticket: ticket, err: err})
	}()
}

func (s *Session) completeToggle(r toggleResult) {
	subscribed := s.overlay.Resolve(r.ticket, r.err)
	s.engine.SetSubscribed(r.ticket.ChannelID, subscribed)
	if r.err == nil {
		s.opts.Metrics.Toggle(r.ticket.Target, "ok")
		s.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindToggleDone, Comp: "coord", ChannelID: r.ticket.ChannelID})
		return
	}

	s.opts.Metrics.Toggle(r.ticket.Target, "failed")
	logging.Warn("coord: subscription change failed", "channel", r.ticket.ChannelID, "target", r.ticket.Target, "error", r.err)
	s.emit(otel.Event{Level: otel.LevelError, Kind: otel.KindToggleFailed, Comp: "coord", ChannelID: r.ticket.ChannelID, Err: r.err.Error()})
	s.publish(SubscriptionChanged{ChannelID: r.ticket.ChannelID, Subscribed: subscribed})
	s.publish(ErrorOccurred{Kind: ToggleFailed, Err: fmt.Errorf("channel %s: %w", r.ticket.ChannelID, r.err)})
}

func (s *Session) share(id string) {
	it, ok := s.engine.Item(id)
	if !ok {
		return
	}
	link, ok := ShareLink(s.opts.ShareBaseURL, it)
	if !ok {
		return
	}
	s.route("share", link)
	s.router.OpenComposeShare(link)
}

func (s *Session) report(id string) {
	it, ok := s.engine.Item(id)
	if !ok {
		return
	}
	link, ok := ReportLink(s.opts.ReportURL, it.ChannelID, s.opts.User)
	if !ok {
		logging.Warn("coord: report url not configured")
		if s.opts.Log != nil {
			s.opts.Log.Warn(otel.KindRoute, "coord", "report url not configured")
		}
		return
	}
	s.route("report", link)
	s.router.OpenReportFlow(link)
}

func (s *Session) route(target, arg string) {
	s.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindRoute, Comp: "coord", Msg: target, Extra: map[string]any{"arg": arg}})
}

func (s *Session) publishPlayback(cmds []playback.Command) {
	for _, cmd := range cmds {
		s.opts.Metrics.Playback(string(cmd.Action))
		s.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindPlayback, Comp: "coord", ItemID: cmd.ItemID, Msg: string(cmd.Action)})
		s.publish(PlaybackCommand{ItemID: cmd.ItemID, Action: cmd.Action})
	}
}

func (s *Session) publish(out Output) {
	s.obsMu.Lock()
	keys := make([]int, 0, len(s.observers))
	for k := range s.observers {
		keys = append(keys, k)
	}
	fns := make([]func(Output), 0, len(keys))
	slices.Sort(keys)
	for _, k := range keys {
		fns = append(fns, s.observers[k])
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(out)
	}
}

func (s *Session) emit(e otel.Event) {
	if s.opts.Log != nil {
		s.opts.Log.Emit(e)
	}
}
