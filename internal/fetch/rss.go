package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/reel/internal/feed"
)

// RSSSource serves short videos from an RSS, Atom or JSON feed. The feed is
// fetched whole on every page request and sliced by offset, so paging stops
// once the feed runs out. Following channels is not supported.
type RSSSource struct {
	url    string
	client *http.Client
}

// NewRSSSource creates a source reading url.
func NewRSSSource(url string, timeout time.Duration) *RSSSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RSSSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// FetchPage returns the feed entries in [Offset, Offset+Limit). Entries
// without a playable url are skipped.
func (s *RSSSource) FetchPage(ctx context.Context, q feed.Query) ([]feed.Item, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "reel/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Method: http.MethodGet, Path: s.url, Code: resp.StatusCode}
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]feed.Item, 0, len(parsed.Items))
	for _, fi := range parsed.Items {
		if it, ok := convertFeedItem(fi, parsed); ok {
			items = append(items, it)
		}
	}

	if q.Offset >= len(items) {
		return nil, nil
	}
	end := len(items)
	if q.Limit > 0 {
		end = min(q.Offset+q.Limit, end)
	}
	return items[q.Offset:end], nil
}

// FetchSubscriptions returns no channels; feeds have no viewer.
func (s *RSSSource) FetchSubscriptions(ctx context.Context, limit, offset int, order string) ([]string, error) {
	return nil, nil
}

// Subscribe is not supported.
func (s *RSSSource) Subscribe(ctx context.Context, channelID string) error {
	return ErrUnsupported
}

// Unsubscribe is not supported.
func (s *RSSSource) Unsubscribe(ctx context.Context, channelID string) error {
	return ErrUnsupported
}

// convertFeedItem maps a feed entry. The media url is the first video
// enclosure, or the entry link when there is none.
func convertFeedItem(fi *gofeed.Item, f *gofeed.Feed) (feed.Item, bool) {
	media := fi.Link
	for _, enc := range fi.Enclosures {
		if strings.HasPrefix(enc.Type, "video/") && enc.URL != "" {
			media = enc.URL
			break
		}
	}
	if media == "" {
		return feed.Item{}, false
	}

	channel := f.Title
	if fi.Author != nil && fi.Author.Name != "" {
		channel = fi.Author.Name
	} else if len(fi.Authors) > 0 && fi.Authors[0].Name != "" {
		channel = fi.Authors[0].Name
	}

	it := feed.Item{
		ID:          generateID(fi),
		Title:       truncate(fi.Title, 200),
		MediaURL:    media,
		ChannelID:   hashString(channel),
		ChannelName: channel,
	}
	if fi.Image != nil {
		it.PreviewURL = fi.Image.URL
	} else if thumb := mediaThumbnail(fi); thumb != "" {
		it.PreviewURL = thumb
	}
	if f.Image != nil {
		it.AvatarURL = f.Image.URL
	}
	return it, true
}

// mediaThumbnail reads <media:thumbnail url="..."> from Media RSS.
func mediaThumbnail(fi *gofeed.Item) string {
	media, ok := fi.Extensions["media"]
	if !ok {
		return ""
	}
	for _, ext := range media["thumbnail"] {
		if u := ext.Attrs["url"]; u != "" {
			return u
		}
	}
	for _, group := range media["group"] {
		for _, ext := range group.Children["thumbnail"] {
			if u := ext.Attrs["url"]; u != "" {
				return u
			}
		}
	}
	return ""
}

// generateID creates a deterministic ID for a feed entry.
// Uses the GUID if available, otherwise hashes the URL.
func generateID(fi *gofeed.Item) string {
	if fi.GUID != "" {
		return hashString(fi.GUID)
	}
	if fi.Link != "" {
		return hashString(fi.Link)
	}
	key := fi.Title
	if fi.PublishedParsed != nil {
		key += fi.PublishedParsed.String()
	}
	return hashString(key)
}

// hashString creates a short hash of a string for use as an ID.
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:8]) // 16 character hex string
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
// Uses rune-aware slicing to avoid breaking UTF-8 characters.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
