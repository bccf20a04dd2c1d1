package stub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/fetch"
)

func setupTestServer(t *testing.T, opts Options) (*Server, *fetch.Client) {
	t.Helper()
	cat := setupTestCatalog(t)
	if err := cat.Load(testSeed()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	srv := NewServer(cat, opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := fetch.NewClient(fetch.ClientConfig{BaseURL: ts.URL, Token: opts.Token})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return srv, client
}

func TestServerPagesThroughClient(t *testing.T) {
	_, client := setupTestServer(t, Options{})
	ctx := context.Background()

	first, err := client.FetchPage(ctx, feed.Query{Limit: 2})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if got := feed.IDs(first); !slices.Equal(got, []string{"13", "12"}) {
		t.Errorf("first page = %v", got)
	}
	it := first[0]
	if it.ChannelID != "1" || it.ChannelName != "alice" || it.AvatarURL != "a.png" || it.Followers != "10" {
		t.Errorf("mapped item = %+v", it)
	}

	second, err := client.FetchPage(ctx, feed.Query{Offset: 2, Limit: 2})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if got := feed.IDs(second); !slices.Equal(got, []string{"11"}) {
		t.Errorf("second page = %v", got)
	}

	empty, err := client.FetchPage(ctx, feed.Query{Offset: 3, Limit: 2})
	if err != nil || len(empty) != 0 {
		t.Errorf("past the end = %v, %v", empty, err)
	}
}

func TestServerFollowRoundTrip(t *testing.T) {
	_, client := setupTestServer(t, Options{Token: "tok"})
	ctx := context.Background()

	if err := client.Subscribe(ctx, "1"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	ids, err := client.FetchSubscriptions(ctx, 100, 0, "ACTIVITY")
	if err != nil {
		t.Fatalf("FetchSubscriptions: %v", err)
	}
	if !slices.Equal(ids, []string{"1", "2"}) {
		t.Errorf("followed = %v", ids)
	}

	if err := client.Unsubscribe(ctx, "2"); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	ids, _ = client.FetchSubscriptions(ctx, 100, 0, "ACTIVITY")
	if !slices.Equal(ids, []string{"1"}) {
		t.Errorf("followed after unsubscribe = %v", ids)
	}

	var se *fetch.StatusError
	if err := client.Subscribe(ctx, "404"); !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("unknown channel err = %v, want 404", err)
	}
}

func TestServerRequiresToken(t *testing.T) {
	srv, _ := setupTestServer(t, Options{Token: "tok"})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	anon, _ := fetch.NewClient(fetch.ClientConfig{BaseURL: ts.URL})
	var se *fetch.StatusError
	if err := anon.Subscribe(context.Background(), "1"); !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Errorf("anonymous subscribe err = %v, want 401", err)
	}
	if _, err := anon.FetchPage(context.Background(), feed.Query{}); err != nil {
		t.Errorf("pages should not need a token: %v", err)
	}
}

func TestServerFailureInjection(t *testing.T) {
	srv, client := setupTestServer(t, Options{})
	ctx := context.Background()

	srv.Fail(RoutePage, http.StatusServiceUnavailable, 1)
	var se *fetch.StatusError
	if _, err := client.FetchPage(ctx, feed.Query{}); !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want injected 503", err)
	}
	if _, err := client.FetchPage(ctx, feed.Query{}); err != nil {
		t.Errorf("one-shot failure should clear: %v", err)
	}

	srv.Fail(RouteFollow, http.StatusInternalServerError, -1)
	for range 3 {
		if err := client.Subscribe(ctx, "1"); err == nil {
			t.Fatal("persistent failure should keep failing")
		}
	}
	srv.Heal(RouteFollow)
	if err := client.Subscribe(ctx, "1"); err != nil {
		t.Errorf("after Heal: %v", err)
	}

	if srv.Hits(RoutePage) != 2 || srv.Hits(RouteFollow) != 4 {
		t.Errorf("hits page=%d follow=%d", srv.Hits(RoutePage), srv.Hits(RouteFollow))
	}
}

func TestServerRejectsBadParams(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for _, path := range []string{
		"/api/v2/media-containers?offset=-1",
		"/api/v2/media-containers?limit=abc",
		"/api/v2/profiles/current/followed-channels?limit=0",
	} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", path, resp.StatusCode)
		}
	}
}
