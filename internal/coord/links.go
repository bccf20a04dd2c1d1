package coord

import (
	"net/url"
	"strings"

	"github.com/abelbrown/reel/internal/feed"
)

// ShareLink builds the public clip link for an item:
// <base>/<channel login>/clips?clip=<item id>. It needs both a base URL and
// the channel name.
func ShareLink(base string, it feed.Item) (string, bool) {
	base = strings.TrimRight(base, "/")
	if base == "" || it.ChannelName == "" || it.ID == "" {
		return "", false
	}
	q := url.Values{"clip": {it.ID}}
	return base + "/" + url.PathEscape(it.ChannelName) + "/clips?" + q.Encode(), true
}

// ReportLink builds the complaint form link. The form reads its parameters
// from the fragment, so they follow "#?" rather than "?".
func ReportLink(reportURL, channelID string, user UserContext) (string, bool) {
	if reportURL == "" {
		return "", false
	}
	q := url.Values{}
	q.Set("channel_id", channelID)
	if user.Email != "" {
		q.Set("email_user", user.Email)
	}
	if user.UserID != "" {
		q.Set("user_id", user.UserID)
	}
	return reportURL + "#?" + q.Encode(), true
}
