package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/playback"
)

// footerText is shown below the last item once paging has stopped.
const footerText = "You're all caught up"

// RenderStream renders the feed list. playing maps an item id to its
// current player action. Returns the rendered string for display.
func RenderStream(items []feed.Item, cursor int, playing map[string]playback.Action, ended bool, width, height int) string {
	if len(items) == 0 {
		return HelpStyle.Render("No clips to display. Press 'r' to refresh.")
	}

	var b strings.Builder
	renderedLines := 0

	// Calculate available height for items (reserve 1 line for status bar)
	availableHeight := height - 1
	if availableHeight < 1 {
		availableHeight = 1
	}

	scrollOffset := calcScrollOffset(len(items), cursor, availableHeight)

	for i := scrollOffset; i < len(items); i++ {
		if renderedLines >= availableHeight {
			break
		}
		line := renderItemLine(items[i], i == cursor, playing[items[i].ID], width)
		b.WriteString(line)
		b.WriteString("\n")
		renderedLines++
	}

	if ended && renderedLines < availableHeight {
		b.WriteString(FooterStyle.Render(footerText))
		b.WriteString("\n")
	}

	return b.String()
}

// calcScrollOffset returns the first visible index that keeps cursor on
// screen.
func calcScrollOffset(total, cursor, availableHeight int) int {
	if total == 0 || cursor < 0 {
		return 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	if cursor >= availableHeight {
		return cursor - availableHeight + 1
	}
	return 0
}

// playGlyph shows the player state of one item.
func playGlyph(action playback.Action) string {
	switch action {
	case playback.ActionStart, playback.ActionResume:
		return "▶"
	case playback.ActionStop:
		return "⏸"
	default:
		return " "
	}
}

// renderItemLine renders a single item line.
func renderItemLine(item feed.Item, selected bool, action playback.Action, width int) string {
	marker := PlayingMarker.Render(playGlyph(action))
	badge := ChannelBadge.Render(item.ChannelName)

	follow := FollowersText.Render(item.Followers)
	if item.Subscribed {
		follow = SubscribedBadge.Render("✓ ") + follow
	}

	// Account for marker, badge, followers and padding
	titleWidth := width - lipgloss.Width(marker) - lipgloss.Width(badge) - lipgloss.Width(follow) - 4
	if titleWidth < 20 {
		titleWidth = 20
	}
	title := truncateRunes(item.Title, titleWidth)

	titleStyle := NormalItem
	if selected {
		titleStyle = SelectedItem
	}

	return fmt.Sprintf("%s %s%s %s", marker, badge, titleStyle.Render(title), follow)
}

// truncateRunes shortens s to at most n runes, marking the cut with "...".
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// RenderStatusBar renders the bottom status bar with key hints and item count.
func RenderStatusBar(cursor, total int, width int, loading bool, spin string) string {
	// Left side: position info or loading indicator
	var position string
	switch {
	case loading:
		position = " " + spin + " Loading... "
	case total == 0:
		position = " 0/0 "
	default:
		position = fmt.Sprintf(" %d/%d ", cursor+1, total)
	}

	keys := []string{
		StatusBarKey.Render("j/k") + StatusBarText.Render(":nav"),
		StatusBarKey.Render("space") + StatusBarText.Render(":play"),
		StatusBarKey.Render("s") + StatusBarText.Render(":follow"),
		StatusBarKey.Render("r") + StatusBarText.Render(":refresh"),
		StatusBarKey.Render("S") + StatusBarText.Render(":share"),
		StatusBarKey.Render("x") + StatusBarText.Render(":report"),
		StatusBarKey.Render("p") + StatusBarText.Render(":profile"),
		StatusBarKey.Render("D") + StatusBarText.Render(":debug"),
		StatusBarKey.Render("q") + StatusBarText.Render(":quit"),
	}
	keyHints := strings.Join(keys, " ")

	// Calculate padding to fill width
	padding := width - lipgloss.Width(position) - lipgloss.Width(keyHints)
	if padding < 0 {
		padding = 0
	}

	bar := position + strings.Repeat(" ", padding) + keyHints
	return StatusBar.Width(width).Render(bar)
}
