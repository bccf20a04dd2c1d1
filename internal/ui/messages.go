// Package ui provides the Bubble Tea player for a reel feed session.
//
// App is the presentation collaborator: it turns keys into session inputs
// and renders session outputs. It never touches the network or the feed
// state directly.
package ui

import "github.com/abelbrown/reel/internal/coord"

// OutputMsg carries one session output into the Bubble Tea loop.
type OutputMsg struct {
	Out coord.Output
}

// RouteKind names where the session asked to navigate.
type RouteKind string

const (
	RouteAuth    RouteKind = "auth"
	RouteProfile RouteKind = "profile"
	RouteShare   RouteKind = "share"
	RouteReport  RouteKind = "report"
)

// RouteMsg is sent when the session opens an external flow. Arg is the
// channel id, share text or report link.
type RouteMsg struct {
	Kind RouteKind
	Arg  string
}
