package cmd

import (
	"context"

	"github.com/urfave/cli/v2"
)

// OnceCommand returns the once command: a single cycle, no scheduler,
// no HTTP server. Useful for cron-style deployments and smoke tests.
func OnceCommand() *cli.Command {
	return &cli.Command{
		Name:   "once",
		Usage:  "Run a single discovery and posting cycle, then exit",
		Action: runOnce,
	}
}

func runOnce(c *cli.Context) error {
	ctx := context.Background()

	rt, err := buildRuntime(ctx, c)
	if err != nil {
		return err
	}
	defer rt.Close()

	return rt.bot.RunCycle(ctx)
}
