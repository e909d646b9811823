package bot

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Scheduler drives the bot on fixed intervals without an external job
// queue. It is the fallback for sqlite deployments; Postgres
// deployments use the job queue instead.
type Scheduler struct {
	bot                  *Bot
	cycleInterval        time.Duration
	housekeepingInterval time.Duration
	initialDelay         time.Duration
	stopCh               chan struct{}
	doneCh               chan struct{}
	cancel               context.CancelFunc
	started              bool
}

func NewScheduler(b *Bot, cycleInterval, housekeepingInterval time.Duration) *Scheduler {
	// Floors: a zero or sub-minute interval would hot-loop the ticker.
	if cycleInterval < time.Minute {
		cycleInterval = time.Minute
	}
	if housekeepingInterval <= 0 {
		housekeepingInterval = 24 * time.Hour
	}
	return &Scheduler{
		bot:                  b,
		cycleInterval:        cycleInterval,
		housekeepingInterval: housekeepingInterval,
		initialDelay:         5 * time.Second,
		stopCh:               make(chan struct{}),
		doneCh:               make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	if s.started {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.loop(ctx)
}

// Stop cancels the in-flight cycle, if any, and waits for the loop to
// exit. Cycle sleeps (inter-post delays, pacing, backoff, cooldown) are
// all context-aware, so shutdown is prompt.
func (s *Scheduler) Stop() {
	if !s.started {
		return
	}
	close(s.stopCh)
	s.cancel()
	<-s.doneCh
}

func (s *Scheduler) loop(ctx context.Context) {
	initial := time.NewTimer(s.initialDelay)
	cycle := time.NewTicker(s.cycleInterval)
	housekeeping := time.NewTicker(s.housekeepingInterval)
	defer func() {
		initial.Stop()
		cycle.Stop()
		housekeeping.Stop()
		close(s.doneCh)
	}()

	for {
		select {
		case <-s.stopCh:
			return
		case <-initial.C:
			s.runCycle(ctx)
		case <-cycle.C:
			s.runCycle(ctx)
		case <-housekeeping.C:
			// Own goroutine so a slow credential check never delays
			// the next cycle tick.
			go s.bot.Housekeeping(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if err := s.bot.TryRunCycle(ctx); err != nil {
		switch {
		case errors.Is(err, ErrCycleRunning):
			log.Warn().Msg("previous cycle still running, skipping tick")
		case errors.Is(err, context.Canceled):
			log.Info().Msg("cycle interrupted by shutdown")
		default:
			log.Error().Err(err).Msg("cycle failed")
		}
	}
}
