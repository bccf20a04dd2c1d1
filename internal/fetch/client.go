// Package fetch provides the network side of a feed session.
//
// Client talks to the video platform's JSON API. RSSSource reads short
// videos from an RSS or Atom feed instead. Both implement the session's
// network collaborator.
package fetch

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/time/rate"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/abelbrown/reel/internal/logging"
)

// ErrUnsupported is returned by sources that cannot perform an operation,
// such as following a channel on an RSS feed.
var ErrUnsupported = errors.New("fetch: operation not supported by source")

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// Temporary reports whether retrying may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Page query constants. The feed only shows finished public short videos,
// newest first within the chosen ordering.
const (
	DefaultSortKey    = "DATE"
	orderDirection    = "DESC"
	containerType     = "SHORT_VIDEO"
	containerStatus   = "STOPPED"
	containerOnline   = "PUBLIC"
	mediaContainersEP = "/api/v2/media-containers"
	followedEP        = "/api/v2/profiles/current/followed-channels"
)

func followersEP(channelID string) string {
	return "/api/v2/channels/" + url.PathEscape(channelID) + "/followers"
}

// ClientConfig configures a Client. Only BaseURL is required.
type ClientConfig struct {
	BaseURL     string
	Token       string        // API token; empty for anonymous access
	Timeout     time.Duration // per attempt
	MinInterval time.Duration // minimum spacing between requests; zero disables pacing
	MaxRetries  int           // retries after the first attempt for 429 and 5xx
	RetryWait   time.Duration // initial backoff interval
	Locale      string        // BCP 47 tag for follower counts, e.g. "en" or "ru"
}

// Client is the HTTP implementation of the session's network collaborator.
// Safe for concurrent use.
type Client struct {
	base       *url.URL
	token      string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryWait  time.Duration
	printer    *message.Printer
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	wait := cfg.RetryWait
	if wait <= 0 {
		wait = 250 * time.Millisecond
	}

	tag := language.English
	if cfg.Locale != "" {
		if t, err := language.Parse(cfg.Locale); err == nil {
			tag = t
		} else {
			logging.Warn("fetch: unknown locale, using en", "locale", cfg.Locale, "error", err)
		}
	}

	return &Client{
		base:       base,
		token:      cfg.Token,
		http:       &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: max(cfg.MaxRetries, 0),
		retryWait:  wait,
		printer:    message.NewPrinter(tag),
	}, nil
}

// FetchPage returns one page of short videos.
func (c *Client) FetchPage(ctx context.Context, q feed.Query) ([]feed.Item, error) {
	v := url.Values{}
	v.Set("order_type", cmp.Or(q.SortKey, DefaultSortKey))
	v.Set("order_direction", orderDirection)
	v.Set("media_container_type", containerType)
	v.Set("media_container_status", containerStatus)
	v.Set("media_container_online_status", containerOnline)
	v.Set("offset", strconv.Itoa(q.Offset))
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.ChannelID != "" {
		v.Set("channel_id", q.ChannelID)
	}

	var page mediaContainerPage
	if err := c.do(ctx, http.MethodGet, mediaContainersEP, v, &page); err != nil {
		return nil, err
	}
	return toItems(page, c.printer), nil
}

// FetchSubscriptions returns the ids of channels the viewer follows.
func (c *Client) FetchSubscriptions(ctx context.Context, limit, offset int, order string) ([]string, error) {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(limit))
	v.Set("offset", strconv.Itoa(offset))
	if order != "" {
		v.Set("order_type", order)
	}

	var page followedChannelsPage
	if err := c.do(ctx, http.MethodGet, followedEP, v, &page); err != nil {
		return nil, err
	}
	return toChannelIDs(page), nil
}

// Subscribe follows a channel.
func (c *Client) Subscribe(ctx context.Context, channelID string) error {
	return c.do(ctx, http.MethodPut, followersEP(channelID), nil, nil)
}

// Unsubscribe unfollows a channel.
func (c *Client) Unsubscribe(ctx context.Context, channelID string) error {
	return c.do(ctx, http.MethodDelete, followersEP(channelID), nil, nil)
}

// do performs one API call with pacing and retries. out may be nil when
// the body is not needed.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)

	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := c.once(ctx, method, u.String(), path, out)
		if err == nil {
			return nil
		}

		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		logging.Debug("fetch: attempt failed", "method", method, "path", path, "attempt", attempt, "error", err)
		return err
	}

	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) once(ctx context.Context, method, rawURL, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "reel/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
