package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/reel/internal/coord"
)

// bridgeSize bounds messages waiting for the Bubble Tea loop.
const bridgeSize = 1024

// Bridge forwards session outputs and route requests to a tea.Program in
// the order they were produced. The session loop never waits on rendering
// unless the queue is full.
type Bridge struct {
	ch   chan tea.Msg
	done chan struct{}
}

// NewBridge creates a Bridge. Call Run to start forwarding.
func NewBridge() *Bridge {
	return &Bridge{
		ch:   make(chan tea.Msg, bridgeSize),
		done: make(chan struct{}),
	}
}

// Observe is a coord.Session observer.
func (b *Bridge) Observe(out coord.Output) {
	b.Emit(OutputMsg{Out: out})
}

// Emit queues msg. It drops msg once Run has returned.
func (b *Bridge) Emit(msg tea.Msg) {
	select {
	case b.ch <- msg:
	case <-b.done:
	}
}

// Run delivers queued messages to send until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context, send func(tea.Msg)) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.ch:
			send(msg)
		}
	}
}

// Router is the session's navigation collaborator for the terminal player.
// The terminal has no auth screen or share sheet, so every route is shown
// to the viewer as a notice.
type Router struct {
	authed bool
	bridge *Bridge
}

// NewRouter creates a Router. authed reports whether an API token is set.
func NewRouter(authed bool, b *Bridge) *Router {
	return &Router{authed: authed, bridge: b}
}

func (r *Router) IsAuthenticated() bool { return r.authed }

func (r *Router) OpenAuth() {
	r.bridge.Emit(RouteMsg{Kind: RouteAuth})
}

func (r *Router) OpenProfile(channelID string) {
	r.bridge.Emit(RouteMsg{Kind: RouteProfile, Arg: channelID})
}

func (r *Router) OpenComposeShare(text string) {
	r.bridge.Emit(RouteMsg{Kind: RouteShare, Arg: text})
}

func (r *Router) OpenReportFlow(link string) {
	r.bridge.Emit(RouteMsg{Kind: RouteReport, Arg: link})
}
