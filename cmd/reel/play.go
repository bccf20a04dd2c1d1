package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/abelbrown/reel/internal/config"
	"github.com/abelbrown/reel/internal/coord"
	"github.com/abelbrown/reel/internal/fetch"
	"github.com/abelbrown/reel/internal/logging"
	"github.com/abelbrown/reel/internal/metrics"
	"github.com/abelbrown/reel/internal/otel"
	"github.com/abelbrown/reel/internal/ui"
)

// ringSize is how many recent events the debug overlay can show.
const ringSize = 512

func playCmd() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Browse the feed",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-url", Usage: "platform API base URL"},
			&cli.StringFlag{Name: "token", Usage: "API token; enables following channels"},
			&cli.StringFlag{Name: "rss-url", Usage: "read clips from an RSS or Atom feed instead of the API"},
			&cli.StringFlag{Name: "sort", Usage: "sort key: DATE or VIEWERS"},
			&cli.StringFlag{Name: "channel", Usage: "only show clips from this channel id"},
			&cli.IntFlag{Name: "page-size", Usage: "items per page (0 lets the server decide)"},
			&cli.StringFlag{Name: "metrics-listen", Usage: "serve Prometheus metrics on this address"},
			&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"REEL_LOG_LEVEL"}},
			&cli.BoolFlag{Name: "trace", Usage: "log every session input to the event log", EnvVars: []string{"REEL_TRACE"}},
			&cli.BoolFlag{Name: "save", Usage: "write the effective settings back to the config file"},
		},
		Action: runPlay,
	}
}

// applyFlags overrides file and environment settings with flags that were
// set on the command line.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("api-url") {
		cfg.API.BaseURL = c.String("api-url")
		cfg.API.Source = config.SourceAPI
	}
	if c.IsSet("token") {
		cfg.API.Token = c.String("token")
	}
	if c.IsSet("rss-url") {
		cfg.API.RSSURL = c.String("rss-url")
		cfg.API.Source = config.SourceRSS
	}
	if c.IsSet("sort") {
		cfg.Feed.SortKey = c.String("sort")
	}
	if c.IsSet("channel") {
		cfg.Feed.ChannelID = c.String("channel")
	}
	if c.IsSet("page-size") {
		cfg.Feed.PageSize = c.Int("page-size")
	}
	if c.IsSet("metrics-listen") {
		cfg.Metrics.Listen = c.String("metrics-listen")
	}
}

// newNetwork builds the session's transport for the configured source.
// The second result reports whether the viewer can follow channels.
func newNetwork(cfg *config.Config) (coord.Network, bool, error) {
	switch cfg.API.Source {
	case config.SourceRSS:
		return fetch.NewRSSSource(cfg.API.RSSURL, cfg.API.Timeout()), false, nil
	default:
		client, err := fetch.NewClient(fetch.ClientConfig{
			BaseURL:     cfg.API.BaseURL,
			Token:       cfg.API.Token,
			Timeout:     cfg.API.Timeout(),
			MinInterval: cfg.API.MinInterval(),
			MaxRetries:  cfg.API.MaxRetries,
			RetryWait:   cfg.API.RetryWait(),
			Locale:      cfg.API.Locale,
		})
		if err != nil {
			return nil, false, err
		}
		return client, cfg.API.Token != "", nil
	}
}

func runPlay(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if c.Bool("save") {
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
	}

	if c.Bool("trace") {
		otel.SetTraceEnabled(true)
	}

	dir, err := dataDir()
	if err != nil {
		return err
	}
	if err := logging.Init(filepath.Join(dir, "logs"), logging.ParseLevel(c.String("log-level"))); err != nil {
		return err
	}
	defer logging.Close()

	evPath := eventLogPath(dir)
	evFile, err := os.OpenFile(evPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer evFile.Close()

	ring := otel.NewRingBuffer(ringSize)
	events := otel.NewLogger(evFile)
	events.SetRingBuffer(ring)
	defer events.Close()

	m := metrics.New()
	if cfg.Metrics.Listen != "" {
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: m.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("metrics listener stopped", "addr", cfg.Metrics.Listen, "error", err)
			}
		}()
		defer srv.Close()
	}

	net, authed, err := newNetwork(cfg)
	if err != nil {
		return err
	}

	bridge := ui.NewBridge()
	session := coord.NewSession(net, ui.NewRouter(authed, bridge), coord.Options{
		SortKey:      cfg.Feed.SortKey,
		ChannelID:    cfg.Feed.ChannelID,
		PageSize:     cfg.Feed.PageSize,
		ShareBaseURL: cfg.Links.ShareBaseURL,
		ReportURL:    cfg.Links.ReportURL,
		User:         coord.UserContext{Email: cfg.User.Email, UserID: cfg.User.ID},
		Log:          events,
		Metrics:      m,
	})
	session.Register(bridge.Observe)
	logging.Info("session starting", "session", session.ID(), "source", cfg.API.Source, "authed", authed)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	app := ui.NewApp(ui.AppConfig{Session: session, Ring: ring})
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	go bridge.Run(ctx, program.Send)
	session.Start(ctx)

	// Run UI (blocks until quit)
	_, err = program.Run()
	cancel()
	session.Wait()
	logging.Info("session stopped", "session", session.ID(), "dropped_events", events.Dropped())

	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	if err != nil {
		events.Error(otel.KindShutdown, "main", err)
	}
	return err
}
