package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

// eventRecord mirrors otel.Event for JSON decoding.
// We decode from JSONL rather than importing otel to keep this
// subcommand usable even if the event schema evolves.
type eventRecord struct {
	Time      time.Time      `json:"t"`
	Level     string         `json:"level"`
	Kind      string         `json:"kind"`
	Comp      string         `json:"comp"`
	SessionID string         `json:"session_id"`
	ItemID    string         `json:"item"`
	ChannelID string         `json:"channel"`
	Offset    int            `json:"offset"`
	Count     int            `json:"count"`
	DurMs     float64        `json:"dur_ms"`
	Err       string         `json:"err"`
	Msg       string         `json:"msg"`
	Extra     map[string]any `json:"extra"`
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "debug":
		return 0
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

// eventFilter selects events by the events command's flags.
type eventFilter struct {
	kind    string // prefix
	level   string // minimum
	comp    string
	session string
	channel string
}

func (f eventFilter) match(ev eventRecord) bool {
	if f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(f.level) {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.session != "" && !strings.HasPrefix(ev.SessionID, f.session) {
		return false
	}
	if f.channel != "" && ev.ChannelID != f.channel {
		return false
	}
	return true
}

func eventsCmd() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "JSONL event log viewer",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "tail", Value: 50, Usage: "number of recent lines to show"},
			&cli.BoolFlag{Name: "f", Usage: "follow mode (like tail -f)"},
			&cli.StringFlag{Name: "kind", Usage: "filter by event kind prefix (e.g. 'subs')"},
			&cli.StringFlag{Name: "level", Usage: "minimum level: debug, info, warn, error"},
			&cli.StringFlag{Name: "comp", Usage: "filter by component name"},
			&cli.StringFlag{Name: "session", Usage: "filter by session id prefix"},
			&cli.StringFlag{Name: "channel", Usage: "filter by channel id"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON lines"},
		},
		Action: runEvents,
	}
}

func runEvents(c *cli.Context) error {
	dir, err := dataDir()
	if err != nil {
		return err
	}
	logPath := eventLogPath(dir)

	f, err := os.Open(logPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("event log not found at %s; run 'reel play' first to generate events", logPath)
		}
		return err
	}
	defer f.Close()

	filter := eventFilter{
		kind:    c.String("kind"),
		level:   c.String("level"),
		comp:    c.String("comp"),
		session: c.String("session"),
		channel: c.String("channel"),
	}
	raw := c.Bool("json")
	out := c.App.Writer

	lines, err := readTailLines(f, c.Int("tail"), filter.match)
	if err != nil {
		return err
	}
	for _, l := range lines {
		fmt.Fprintln(out, formatEvent(l.ev, l.raw, raw))
	}
	if !c.Bool("f") {
		return nil
	}

	// Follow mode: poll for lines appended after the tail
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				return err
			}
			select {
			case <-c.Context.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		line = trimLine(line)
		if len(line) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(line, &ev) != nil {
			continue
		}
		if filter.match(ev) {
			fmt.Fprintln(out, formatEvent(ev, line, raw))
		}
	}
}

// formatEvent renders one event on a single line.
func formatEvent(ev eventRecord, line []byte, raw bool) string {
	if raw {
		return string(line)
	}
	ts := ev.Time.Format("15:04:05.000")
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}

	parts := []string{fmt.Sprintf("%s %-5s [%-5s] %-20s", ts, lvl, ev.Comp, ev.Kind)}

	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.ItemID != "" {
		parts = append(parts, "item="+ev.ItemID)
	}
	if ev.ChannelID != "" {
		parts = append(parts, "ch="+ev.ChannelID)
	}
	if ev.Offset > 0 {
		parts = append(parts, fmt.Sprintf("off=%d", ev.Offset))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}

	return strings.Join(parts, " ")
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines reads r and returns the last n lines matching the filter.
// Lines that are not valid events are skipped.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) ([]parsedLine, error) {
	scanner := bufio.NewScanner(r)
	// Allow large lines (some events may have big Extra maps)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	if n <= 0 {
		for scanner.Scan() {
		}
		return nil, scanner.Err()
	}
	ring := make([]parsedLine, 0, n)

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if !match(ev) {
			continue
		}
		// Make a copy of raw since scanner reuses the buffer
		rawCopy := make([]byte, len(raw))
		copy(rawCopy, raw)

		if len(ring) < n {
			ring = append(ring, parsedLine{ev: ev, raw: rawCopy})
		} else {
			// Shift left
			copy(ring, ring[1:])
			ring[n-1] = parsedLine{ev: ev, raw: rawCopy}
		}
	}

	return ring, scanner.Err()
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
