package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/aka-Rakesh/Xbot/internal/api"
	"github.com/aka-Rakesh/Xbot/internal/bot"
	"github.com/aka-Rakesh/Xbot/internal/jobqueue"
	"github.com/aka-Rakesh/Xbot/internal/store"
)

// RunCommand returns the run command: scheduler plus HTTP server until
// interrupted.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Run the bot with its scheduler and API server",
		Action: runRun,
	}
}

func runRun(c *cli.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := buildRuntime(ctx, c)
	if err != nil {
		return err
	}
	defer rt.Close()

	stopScheduler, err := startScheduler(ctx, rt)
	if err != nil {
		return err
	}

	server := api.NewServer(rt.bot, rt.store)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(rt.cfg.Server.Listen)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("api server failed")
		}
	}

	// Cancel the run context first so an in-flight cycle's sleeps
	// (inter-post delay, pacing, backoff, cooldown) return promptly.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("api server shutdown failed")
	}
	stopScheduler(shutdownCtx)

	return nil
}

// startScheduler starts the configured scheduling backend and returns
// its stop function.
func startScheduler(ctx context.Context, rt *runtime) (func(context.Context), error) {
	switch rt.cfg.Scheduler.Mode {
	case "river":
		pg, ok := rt.store.(*store.PostgresStore)
		if !ok {
			return nil, fmt.Errorf("river scheduler requires the postgres store")
		}

		queue, err := jobqueue.NewJobQueue(pg.Pool(), rt.bot,
			jobqueue.DefaultQueueConfig(rt.cfg.CycleInterval(), rt.cfg.HousekeepingInterval()))
		if err != nil {
			return nil, err
		}
		if err := queue.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start job queue: %w", err)
		}

		return func(stopCtx context.Context) {
			if err := queue.Stop(stopCtx); err != nil {
				log.Warn().Err(err).Msg("job queue shutdown failed")
			}
		}, nil

	case "ticker":
		sched := bot.NewScheduler(rt.bot, rt.cfg.CycleInterval(), rt.cfg.HousekeepingInterval())
		sched.Start()
		return func(context.Context) { sched.Stop() }, nil

	default:
		return nil, fmt.Errorf("unsupported scheduler mode %q", rt.cfg.Scheduler.Mode)
	}
}
