// Package playback decides which single feed item may play.
//
// The Coordinator is driven only by visibility and tap events from the
// presentation layer. Each event returns the player commands to issue, in
// order. A stop for the previous item always precedes the start of the next.
package playback

// Action is a player instruction.
type Action string

const (
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionResume Action = "resume"
)

// Command tells the presentation layer what to do with one item's player.
type Command struct {
	ItemID string
	Action Action
}

// Status of the coordinator.
type Status int

const (
	StatusIdle    Status = iota
	StatusPlaying        // active item is playing
	StatusPaused         // active item is loaded but stopped by a tap
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Coordinator is the playback state machine. Not safe for concurrent use;
// events must be applied in arrival order by a single caller.
type Coordinator struct {
	active string
	status Status
}

// NewCoordinator returns an idle coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// OnBecameVisible makes id the active item and starts it. An already-active
// item keeps playing, or resumes if it was paused.
func (c *Coordinator) OnBecameVisible(id string) []Command {
	if id == "" {
		return nil
	}
	if c.status != StatusIdle && c.active == id {
		if c.status == StatusPaused {
			c.status = StatusPlaying
			return []Command{{ItemID: id, Action: ActionResume}}
		}
		return nil
	}

	var cmds []Command
	if c.status != StatusIdle {
		cmds = append(cmds, Command{ItemID: c.active, Action: ActionStop})
	}
	c.active = id
	c.status = StatusPlaying
	return append(cmds, Command{ItemID: id, Action: ActionStart})
}

// OnBecameHidden stops id if it is the active item. Hidden events for any
// other item come from recycled display surfaces and are ignored.
func (c *Coordinator) OnBecameHidden(id string) []Command {
	if c.status == StatusIdle || id != c.active {
		return nil
	}
	c.active = ""
	c.status = StatusIdle
	return []Command{{ItemID: id, Action: ActionStop}}
}

// OnTap pauses or resumes the active item. Tapping any other item behaves
// like that item becoming visible.
func (c *Coordinator) OnTap(id string) []Command {
	if c.status == StatusIdle || id != c.active {
		return c.OnBecameVisible(id)
	}

	switch c.status {
	case StatusPlaying:
		c.status = StatusPaused
		return []Command{{ItemID: id, Action: ActionStop}}
	case StatusPaused:
		c.status = StatusPlaying
		return []Command{{ItemID: id, Action: ActionResume}}
	}
	return nil
}

// Halt stops the active item and returns to idle. Used on session teardown.
func (c *Coordinator) Halt() []Command {
	if c.status == StatusIdle {
		return nil
	}
	id := c.active
	c.active = ""
	c.status = StatusIdle
	return []Command{{ItemID: id, Action: ActionStop}}
}

// Active returns the active item id, if any.
func (c *Coordinator) Active() (string, bool) {
	return c.active, c.status != StatusIdle
}

// Status returns the current status.
func (c *Coordinator) Status() Status {
	return c.status
}
