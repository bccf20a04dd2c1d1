// Command reel is a terminal player for a short-video feed.
//
// Usage:
//
//	reel play               Browse the feed
//	reel stub               Serve a local catalog with the platform's API
//	reel events             JSONL event log viewer
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func rootApp() *cli.App {
	return &cli.App{
		Name:  "reel",
		Usage: "A terminal player for short-video feeds",
		Description: `Pages through a short-video feed, keeps one clip playing at a time,
		and lets you follow channels with instant feedback.

		Settings come from ~/.reel/config.json (REEL_CONFIG overrides the
		path). Environment variables override the file and flags override
		both:

		REEL_API_URL, REEL_TOKEN, REEL_RSS_URL, REEL_USER_EMAIL, REEL_USER_ID
		`,
		Commands: []*cli.Command{
			playCmd(),
			stubCmd(),
			eventsCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return cli.ShowAppHelp(ctx)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "reel: %v\n", err)
		os.Exit(1)
	}
}
