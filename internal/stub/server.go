package stub

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/abelbrown/reel/internal/logging"
)

// Route names an endpoint for failure injection.
type Route string

const (
	RoutePage          Route = "page"
	RouteSubscriptions Route = "subscriptions"
	RouteFollow        Route = "follow"
)

const defaultPageLimit = 10

// Options configures a Server.
type Options struct {
	Token string        // when set, follow endpoints require "Authorization: Token <token>"
	Delay time.Duration // added to every response
}

type fault struct {
	status int
	times  int // remaining; negative means forever
}

// Server serves a Catalog over HTTP.
type Server struct {
	cat  *Catalog
	opts Options

	mu     sync.Mutex
	faults map[Route]*fault
	hits   map[Route]int
}

// NewServer creates a Server for cat.
func NewServer(cat *Catalog, opts Options) *Server {
	return &Server{
		cat:    cat,
		opts:   opts,
		faults: make(map[Route]*fault),
		hits:   make(map[Route]int),
	}
}

// Fail makes the next times requests to route answer with status. A
// negative times fails until Heal is called.
func (s *Server) Fail(route Route, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = &fault{status: status, times: times}
}

// Heal clears injected failures for route.
func (s *Server) Heal(route Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, route)
}

// Hits returns the number of requests seen for route, failed ones included.
func (s *Server) Hits(route Route) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Handler returns the API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/media-containers", s.route(RoutePage, false, s.handlePage))
	mux.HandleFunc("GET /api/v2/profiles/current/followed-channels", s.route(RouteSubscriptions, true, s.handleFollowed))
	mux.HandleFunc("PUT /api/v2/channels/{id}/followers", s.route(RouteFollow, true, s.handleFollow(true)))
	mux.HandleFunc("DELETE /api/v2/channels/{id}/followers", s.route(RouteFollow, true, s.handleFollow(false)))
	return mux
}

// route wraps h with hit counting, latency, failure injection and auth.
func (s *Server) route(name Route, auth bool, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := s.inject(name)

		if s.opts.Delay > 0 {
			select {
			case <-time.After(s.opts.Delay):
			case <-r.Context().Done():
				return
			}
		}

		switch {
		case status != 0:
			writeError(w, status, "injected failure")
		case auth && s.opts.Token != "" && r.Header.Get("Authorization") != "Token "+s.opts.Token:
			writeError(w, http.StatusUnauthorized, "authentication required")
		default:
			h(w, r)
		}
		logging.Debug("stub: request", "method", r.Method, "path", r.URL.Path, "route", name, "injected", status, "dur", time.Since(start))
	}
}

func (s *Server) inject(name Route) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits[name]++
	f, ok := s.faults[name]
	if !ok {
		return 0
	}
	if f.times > 0 {
		f.times--
		if f.times == 0 {
			delete(s.faults, name)
		}
	}
	return f.status
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, ok1 := intParam(q.Get("offset"), 0)
	limit, ok2 := intParam(q.Get("limit"), defaultPageLimit)
	channel, ok3 := intParam(q.Get("channel_id"), 0)
	if !ok1 || !ok2 || !ok3 || offset < 0 || limit <= 0 {
		writeError(w, http.StatusBadRequest, "bad paging parameters")
		return
	}
	if t := q.Get("media_container_type"); t != "" && t != "SHORT_VIDEO" {
		writeJSON(w, http.StatusOK, resultOf([]mediaContainer{}))
		return
	}

	rows, err := s.cat.Page(q.Get("order_type"), int64(channel), offset, limit)
	if err != nil {
		logging.Error("stub: page query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, resultOf(lo.Map(rows, func(v VideoRow, _ int) mediaContainer {
		return toContainer(v)
	})))
}

func (s *Server) handleFollowed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, ok1 := intParam(q.Get("offset"), 0)
	limit, ok2 := intParam(q.Get("limit"), defaultPageLimit)
	if !ok1 || !ok2 || offset < 0 || limit <= 0 {
		writeError(w, http.StatusBadRequest, "bad paging parameters")
		return
	}

	ids, err := s.cat.Followed(offset, limit)
	if err != nil {
		logging.Error("stub: follows query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, resultOf(lo.Map(ids, func(id int64, _ int) followedChannel {
		return followedChannel{ChannelID: id}
	})))
}

func (s *Server) handleFollow(follow bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad channel id")
			return
		}

		if follow {
			err = s.cat.Follow(id)
		} else {
			err = s.cat.Unfollow(id)
		}
		switch {
		case errors.Is(err, ErrUnknownChannel):
			writeError(w, http.StatusNotFound, err.Error())
		case err != nil:
			logging.Error("stub: follow failed", "channel", id, "error", err)
			writeError(w, http.StatusInternalServerError, "follow failed")
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func intParam(v string, def int) (int, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warn("stub: write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"code": status, "message": msg}})
}
