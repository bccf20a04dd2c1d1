package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
)

// SelectedItem style for the item under the cursor.
var SelectedItem = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// NormalItem style for other items.
var NormalItem = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// ChannelBadge style for the channel login.
var ChannelBadge = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Background(lipgloss.Color("236")).
	Padding(0, 1).
	MarginRight(1)

// FollowersText style for follower counts.
var FollowersText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// SubscribedBadge marks followed channels.
var SubscribedBadge = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Bold(true)

// PlayingMarker style for the player state glyph.
var PlayingMarker = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// FooterStyle for the end-of-list footer cell.
var FooterStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Italic(true).
	Padding(0, 1)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// NoticeStyle for route notices (share links, auth prompts).
var NoticeStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("240")).
	Padding(0, 1)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// HelpStyle for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// DebugPanel frames the debug overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 2)

// DebugHeaderStyle for section headers in the debug overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)
