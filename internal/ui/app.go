package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/reel/internal/coord"
	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/otel"
	"github.com/abelbrown/reel/internal/playback"
)

// Sender accepts session inputs. *coord.Session implements it.
type Sender interface {
	Send(coord.Input)
}

type keyMap struct {
	Down    key.Binding
	Up      key.Binding
	Play    key.Binding
	Follow  key.Binding
	Refresh key.Binding
	Share   key.Binding
	Report  key.Binding
	Profile key.Binding
	Debug   key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "next")),
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "prev")),
		Play:    key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "play/pause")),
		Follow:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "follow")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Share:   key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "share")),
		Report:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "report")),
		Profile: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "profile")),
		Debug:   key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "debug")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// AppConfig wires the App to its session.
type AppConfig struct {
	Session Sender
	Ring    *otel.RingBuffer // optional; enables the debug overlay
}

// App is the root Bubble Tea model.
// App does not hold feed state of its own: it mirrors session outputs and
// reports what the viewer sees back as inputs.
type App struct {
	session Sender
	ring    *otel.RingBuffer
	keys    keyMap
	spinner spinner.Model

	items   []feed.Item
	cursor  int
	playing map[string]playback.Action

	loading      bool
	ended        bool
	err          error
	notice       string
	debugVisible bool

	width  int
	height int
	ready  bool
}

// NewApp creates an App that drives cfg.Session.
func NewApp(cfg AppConfig) App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = PlayingMarker
	return App{
		session: cfg.Session,
		ring:    cfg.Ring,
		keys:    defaultKeyMap(),
		spinner: s,
		playing: make(map[string]playback.Action),
		loading: true,
	}
}

// Init announces the view and starts the spinner.
func (a App) Init() tea.Cmd {
	a.send(coord.ViewReady{})
	return a.spinner.Tick
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case OutputMsg:
		return a.applyOutput(msg.Out), nil

	case RouteMsg:
		a.notice = routeNotice(msg)
		return a, nil
	}

	return a, nil
}

func (a App) applyOutput(out coord.Output) App {
	switch o := out.(type) {
	case coord.ItemsChanged:
		a.loading = false
		prev, hadPrev := a.current()
		a.items = o.Items
		if o.Appended {
			return a
		}
		a.cursor = 0
		a.ended = false
		next, ok := a.current()
		switch {
		case hadPrev && ok && prev.ID == next.ID:
		case ok:
			if hadPrev {
				a.send(coord.ItemBecameHidden{ID: prev.ID})
			}
			a.send(coord.ItemBecameVisible{ID: next.ID})
		case hadPrev:
			a.send(coord.ItemBecameHidden{ID: prev.ID})
		}

	case coord.RefreshFinished:
		a.loading = false

	case coord.EndOfFeed:
		a.loading = false
		a.ended = true

	case coord.PlaybackCommand:
		a.playing[o.ItemID] = o.Action

	case coord.SubscriptionChanged:
		for i := range a.items {
			if a.items[i].ChannelID == o.ChannelID {
				a.items[i].Subscribed = o.Subscribed
			}
		}

	case coord.ErrorOccurred:
		if o.Kind == coord.FetchFailed {
			a.loading = false
		}
		a.err = o.Err
	}
	return a
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key dismisses the error and notice bars
	a.err = nil
	a.notice = ""

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Debug):
		a.debugVisible = !a.debugVisible
		return a, nil

	case key.Matches(msg, a.keys.Down):
		if a.cursor < len(a.items)-1 {
			a.move(a.cursor + 1)
		} else if len(a.items) > 0 && !a.ended {
			a.loading = true
			a.send(coord.NearEndOfList{})
		}
		return a, nil

	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.move(a.cursor - 1)
		}
		return a, nil

	case key.Matches(msg, a.keys.Refresh):
		a.loading = true
		a.send(coord.PullToRefresh{})
		return a, nil
	}

	it, ok := a.current()
	if !ok {
		return a, nil
	}
	switch {
	case key.Matches(msg, a.keys.Play):
		a.send(coord.ItemTapped{ID: it.ID})
	case key.Matches(msg, a.keys.Follow):
		a.send(coord.SubscribeTapped{ChannelID: it.ChannelID})
	case key.Matches(msg, a.keys.Share):
		a.send(coord.ShareTapped{ID: it.ID})
	case key.Matches(msg, a.keys.Report):
		a.send(coord.ReportTapped{ID: it.ID})
	case key.Matches(msg, a.keys.Profile):
		a.send(coord.ProfileTapped{ChannelID: it.ChannelID})
	}
	return a, nil
}

// move scrolls to idx, hiding the item that leaves the screen first.
func (a *App) move(idx int) {
	if prev, ok := a.current(); ok {
		a.send(coord.ItemBecameHidden{ID: prev.ID})
	}
	a.cursor = idx
	if next, ok := a.current(); ok {
		a.send(coord.ItemBecameVisible{ID: next.ID})
	}
}

func (a App) current() (feed.Item, bool) {
	if a.cursor < 0 || a.cursor >= len(a.items) {
		return feed.Item{}, false
	}
	return a.items[a.cursor], true
}

func (a App) send(in coord.Input) {
	if a.session != nil {
		a.session.Send(in)
	}
}

func routeNotice(m RouteMsg) string {
	switch m.Kind {
	case RouteAuth:
		return "Sign in to follow channels: set REEL_TOKEN and restart"
	case RouteProfile:
		return fmt.Sprintf("Profile: channel %s", m.Arg)
	case RouteShare:
		return "Share: " + m.Arg
	case RouteReport:
		return "Report: " + m.Arg
	}
	return ""
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.debugVisible {
		return debugOverlay(a.ring, a.width, a.height-1) + "\n" + debugStatusBar(a.width)
	}

	// Subtract status bar (1 line) and the error or notice bar if present
	contentHeight := a.height - 1
	var bar string
	switch {
	case a.err != nil:
		contentHeight--
		bar = ErrorStyle.Width(a.width).Render("Error: " + a.err.Error() + " (press any key to dismiss)")
	case a.notice != "":
		contentHeight--
		bar = NoticeStyle.Width(a.width).Render(a.notice)
	}

	stream := RenderStream(a.items, a.cursor, a.playing, a.ended, a.width, contentHeight)
	statusBar := RenderStatusBar(a.cursor, len(a.items), a.width, a.loading, a.spinner.View())

	return stream + bar + statusBar
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Items returns the current items (for testing).
func (a App) Items() []feed.Item {
	return a.items
}
