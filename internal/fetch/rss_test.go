package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abelbrown/reel/internal/feed"
)

const videoRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Clips</title>
    <image><url>http://example.com/logo.png</url></image>
    <item>
      <title>Clip 1</title>
      <guid>clip-1</guid>
      <link>http://example.com/clip1</link>
      <author>carol@example.com (Carol)</author>
      <enclosure url="http://cdn.example.com/clip1.mp4" type="video/mp4" length="100"/>
      <media:thumbnail url="http://cdn.example.com/clip1.jpg"/>
    </item>
    <item>
      <title>Clip 2</title>
      <link>http://example.com/clip2</link>
    </item>
    <item>
      <title>Clip 3</title>
      <link>http://example.com/clip3</link>
    </item>
  </channel>
</rss>`

func serveRSS(t *testing.T, body string) *RSSSource {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return NewRSSSource(server.URL, 0)
}

func TestRSSSourceFetchPage(t *testing.T) {
	src := serveRSS(t, videoRSS)

	items, err := src.FetchPage(context.Background(), feed.Query{Limit: 10})
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	first := items[0]
	if first.MediaURL != "http://cdn.example.com/clip1.mp4" {
		t.Errorf("media url = %q, want video enclosure", first.MediaURL)
	}
	if first.PreviewURL != "http://cdn.example.com/clip1.jpg" {
		t.Errorf("preview = %q, want media thumbnail", first.PreviewURL)
	}
	if first.AvatarURL != "http://example.com/logo.png" {
		t.Errorf("avatar = %q, want feed image", first.AvatarURL)
	}
	if first.ChannelName == "" || first.ChannelID == "" {
		t.Errorf("first item has no channel: %+v", first)
	}
	if items[1].MediaURL != "http://example.com/clip2" {
		t.Errorf("item without enclosure should play its link, got %q", items[1].MediaURL)
	}
	if items[1].ChannelName != "Clips" {
		t.Errorf("item without author should use feed title, got %q", items[1].ChannelName)
	}
}

func TestRSSSourcePaging(t *testing.T) {
	src := serveRSS(t, videoRSS)
	ctx := context.Background()

	tests := []struct {
		offset, limit int
		want          int
	}{
		{0, 2, 2},
		{2, 2, 1},
		{3, 2, 0},
		{10, 2, 0},
		{1, 0, 2},
	}
	for _, tc := range tests {
		items, err := src.FetchPage(ctx, feed.Query{Offset: tc.offset, Limit: tc.limit})
		if err != nil {
			t.Fatalf("FetchPage(%d,%d): %v", tc.offset, tc.limit, err)
		}
		if len(items) != tc.want {
			t.Errorf("FetchPage(%d,%d) = %d items, want %d", tc.offset, tc.limit, len(items), tc.want)
		}
	}
}

func TestRSSSourceIDsAreDeterministic(t *testing.T) {
	src := serveRSS(t, videoRSS)

	a, _ := src.FetchPage(context.Background(), feed.Query{})
	b, _ := src.FetchPage(context.Background(), feed.Query{})
	if a[0].ID != b[0].ID || a[1].ID != b[1].ID {
		t.Error("IDs should be deterministic for the same entries")
	}
	if a[0].ID == a[1].ID {
		t.Error("different entries should have different IDs")
	}
}

func TestRSSSourceHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewRSSSource(server.URL, 0).FetchPage(context.Background(), feed.Query{})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("err = %v, want 404 StatusError", err)
	}
}

func TestRSSSourceInvalidXML(t *testing.T) {
	src := serveRSS(t, "not valid xml")
	if _, err := src.FetchPage(context.Background(), feed.Query{}); err == nil {
		t.Error("expected error for invalid XML")
	}
}

func TestRSSSourceSubscriptions(t *testing.T) {
	src := NewRSSSource("http://unused", 0)
	ctx := context.Background()

	ids, err := src.FetchSubscriptions(ctx, 100, 0, "ACTIVITY")
	if err != nil || len(ids) != 0 {
		t.Errorf("FetchSubscriptions = %v, %v; want none", ids, err)
	}
	if err := src.Subscribe(ctx, "c"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Subscribe err = %v, want ErrUnsupported", err)
	}
	if err := src.Unsubscribe(ctx, "c"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Unsubscribe err = %v, want ErrUnsupported", err)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hi", 2, "hi"},
		{"hi", 1, "h"},
		{"", 5, ""},
	}

	for _, tc := range tests {
		result := truncate(tc.input, tc.maxLen)
		if result != tc.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.input, tc.maxLen, result, tc.expected)
		}
	}
}
