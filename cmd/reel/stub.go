package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/abelbrown/reel/internal/logging"
	"github.com/abelbrown/reel/internal/stub"
)

func stubCmd() *cli.Command {
	return &cli.Command{
		Name:  "stub",
		Usage: "Serve a local catalog with the platform's API",
		Description: `Loads a seed catalog into SQLite and serves the paging, subscription
		and follow endpoints the player uses. Point "reel play" at it with
		--api-url. Without --seed the built-in catalog is used.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Value: "127.0.0.1:8787", EnvVars: []string{"REEL_STUB_LISTEN"}},
			&cli.StringFlag{Name: "db", Value: ":memory:", Usage: "SQLite database path", EnvVars: []string{"REEL_STUB_DB"}},
			&cli.StringFlag{Name: "seed", Usage: "TOML seed file"},
			&cli.StringFlag{Name: "token", Usage: "require this token on follow endpoints", EnvVars: []string{"REEL_STUB_TOKEN"}},
			&cli.DurationFlag{Name: "delay", Usage: "added to every response"},
			&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"REEL_LOG_LEVEL"}},
		},
		Action: runStub,
	}
}

func runStub(c *cli.Context) error {
	logging.InitWriter(os.Stderr, logging.ParseLevel(c.String("log-level")))

	seed, err := stub.DefaultSeed()
	if path := c.String("seed"); path != "" {
		seed, err = stub.LoadSeed(path)
	}
	if err != nil {
		return err
	}

	cat, err := stub.Open(c.String("db"))
	if err != nil {
		return err
	}
	defer cat.Close()
	if err := cat.Load(seed); err != nil {
		return err
	}

	srv := stub.NewServer(cat, stub.Options{
		Token: c.String("token"),
		Delay: c.Duration("delay"),
	})
	httpSrv := &http.Server{Addr: c.String("listen"), Handler: srv.Handler()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	logging.Info("stub listening", "addr", httpSrv.Addr, "channels", len(seed.Channels), "videos", len(seed.Videos))

	select {
	case err := <-errCh:
		return err
	case <-c.Context.Done():
	}

	logging.Info("stub shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
