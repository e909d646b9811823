// Package bot is the orchestrator: it runs the discovery cycle that
// turns site listings into posted threads and durable records.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aka-Rakesh/Xbot/internal/config"
	"github.com/aka-Rakesh/Xbot/internal/logging"
	"github.com/aka-Rakesh/Xbot/internal/poster"
	"github.com/aka-Rakesh/Xbot/internal/retry"
	"github.com/aka-Rakesh/Xbot/internal/store"
	"github.com/aka-Rakesh/Xbot/pkg/models"
)

// ErrCycleRunning is returned by TryRunCycle when a cycle is already
// in flight.
var ErrCycleRunning = fmt.Errorf("a cycle is already running")

// Discovery yields the current opportunity listings, in site order.
type Discovery interface {
	Discover(ctx context.Context) ([]models.Opportunity, error)
}

// ContentGenerator produces a thread for an opportunity, empty when
// nothing usable could be generated.
type ContentGenerator interface {
	GenerateThread(ctx context.Context, opp models.Opportunity) []string
}

// ThreadPoster publishes a thread and reports what was posted.
type ThreadPoster interface {
	PostThread(ctx context.Context, thread []string) (*poster.PostResult, error)
	VerifyCredentials(ctx context.Context) error
}

// Bot wires discovery, generation, posting and storage into the cycle.
// Cycles are strictly sequential: a mutex rejects overlapping runs.
type Bot struct {
	cfg       *config.Config
	store     store.Store
	discovery Discovery
	generator ContentGenerator
	poster    ThreadPoster

	// RetryConfig governs the posting retry loop. Defaults to
	// retry.DefaultRetryConfig; tests shrink the delays.
	RetryConfig retry.RetryConfig

	mu sync.Mutex
}

// New builds a Bot from its collaborators.
func New(cfg *config.Config, st store.Store, discovery Discovery, gen ContentGenerator, tp ThreadPoster) *Bot {
	return &Bot{
		cfg:         cfg,
		store:       st,
		discovery:   discovery,
		generator:   gen,
		poster:      tp,
		RetryConfig: retry.DefaultRetryConfig(),
	}
}

// TryRunCycle runs a cycle unless one is already in flight, in which
// case it returns ErrCycleRunning without blocking. Schedulers and the
// manual trigger share this guard.
func (b *Bot) TryRunCycle(ctx context.Context) error {
	if !b.mu.TryLock() {
		return ErrCycleRunning
	}
	defer b.mu.Unlock()

	return b.runCycle(ctx)
}

// StartCycleAsync begins a cycle in the background, or returns
// ErrCycleRunning when one is already in flight. The manual HTTP
// trigger uses this so the request returns immediately.
func (b *Bot) StartCycleAsync(ctx context.Context) error {
	if !b.mu.TryLock() {
		return ErrCycleRunning
	}

	go func() {
		defer b.mu.Unlock()
		if err := b.runCycle(ctx); err != nil {
			log.Error().Err(err).Msg("manually triggered cycle failed")
		}
	}()

	return nil
}

// RunCycle runs a full cycle, waiting for any in-flight cycle to
// finish first.
func (b *Bot) RunCycle(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.runCycle(ctx)
}

func (b *Bot) runCycle(ctx context.Context) error {
	cycleID := uuid.NewString()[:8]

	logger, err := logging.StartCycleLogging(cycleID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create cycle logger, continuing without file log")
	} else {
		defer logger.Close()
	}

	log.Info().Str("cycle_id", cycleID).Msg("cycle started")

	// Quota gate. Runs before discovery so an exhausted day costs no
	// site traffic.
	posted := b.store.CountPostsToday(ctx)
	remaining := b.cfg.Bot.MaxPostsPerDay - posted
	if remaining <= 0 {
		log.Info().Int("posted_today", posted).Msg("daily quota reached, skipping cycle")
		if logger != nil {
			logger.Log("Daily quota reached (%d posted), nothing to do", posted)
		}
		return nil
	}

	opportunities, err := b.discovery.Discover(ctx)
	if err != nil {
		if logger != nil {
			logger.LogError("discovery", err)
		}
		return fmt.Errorf("discovery failed: %w", err)
	}

	fresh := b.filterNew(ctx, opportunities, remaining)

	log.Info().
		Str("cycle_id", cycleID).
		Int("discovered", len(opportunities)).
		Int("new", len(fresh)).
		Int("budget", remaining).
		Msg("discovery complete")
	if logger != nil {
		logger.Log("Discovered %d items, %d new within budget %d", len(opportunities), len(fresh), remaining)
	}

	for i, opp := range fresh {
		b.processOne(ctx, opp, logger)

		if i < len(fresh)-1 {
			if err := sleepCtx(ctx, b.cfg.InterPostDelay()); err != nil {
				return err
			}
		}
	}

	log.Info().Str("cycle_id", cycleID).Msg("cycle finished")
	return nil
}

// filterNew drops already-seen opportunities, preserves site order and
// truncates to the remaining daily budget.
func (b *Bot) filterNew(ctx context.Context, opportunities []models.Opportunity, budget int) []models.Opportunity {
	var fresh []models.Opportunity
	for _, opp := range opportunities {
		if b.store.IsSeen(ctx, opp.ID) {
			continue
		}
		fresh = append(fresh, opp)
		if len(fresh) == budget {
			break
		}
	}
	return fresh
}

// processOne handles a single opportunity end to end. Failures are
// contained: an error or panic here never takes down the cycle.
func (b *Bot) processOne(ctx context.Context, opp models.Opportunity, logger *logging.CycleLogger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("opportunity_id", opp.ID).Msg("panic while processing opportunity")
			if logger != nil {
				logger.LogError("processing "+opp.ID, fmt.Errorf("panic: %v", r))
			}
		}
	}()

	if logger != nil {
		logger.LogSection("Processing " + opp.ID)
		logger.Log("Title: %s", opp.Title)
	}

	thread := b.generator.GenerateThread(ctx, opp)
	if len(thread) == 0 {
		// Leaving the item unmarked lets a later cycle retry it once a
		// generation backend recovers.
		log.Warn().Str("opportunity_id", opp.ID).Msg("no thread generated, leaving unseen for retry")
		return
	}

	// The retry wraps the whole PostThread call. A retried call can
	// re-post the root if the first attempt partially succeeded; the
	// idempotency key on the root is attached but not enforced
	// platform-side, so this path is not at-most-once.
	var posted *poster.PostResult
	result := retry.RetryWithBackoff(ctx, b.RetryConfig, func() error {
		r, err := b.poster.PostThread(ctx, thread)
		if err != nil {
			return err
		}
		posted = r
		return nil
	}, logger)

	// The item is marked seen whether or not posting succeeded. A
	// repeatedly failing item must not wedge the pipeline.
	if err := b.store.MarkSeen(ctx, opp); err != nil {
		log.Error().Err(err).Str("opportunity_id", opp.ID).Msg("failed to mark opportunity seen")
	}

	if !result.Success {
		log.Error().
			Err(result.LastError).
			Str("opportunity_id", opp.ID).
			Int("attempts", result.Attempts).
			Msg("posting failed after retries")
		return
	}

	rec := models.PostRecord{
		OpportunityID: opp.ID,
		ContentType:   models.ContentTypeBounty,
		PostedAt:      posted.PostedAt,
		RootMessageID: posted.RootMessageID,
		MessageIDs:    posted.MessageIDs,
	}
	if err := b.store.RecordPost(ctx, rec); err != nil {
		// The thread is live; the record write is not retried or the
		// retry could double-post. The item still counts as handled.
		log.Error().Err(err).Str("opportunity_id", opp.ID).Msg("failed to record post")
		return
	}

	log.Info().Str("opportunity_id", opp.ID).Int("attempts", result.Attempts).Msg("opportunity posted")
}

// Housekeeping verifies connectivity and logs activity statistics. It
// runs on its own schedule and never blocks the main cycle.
func (b *Bot) Housekeeping(ctx context.Context) {
	if err := b.poster.VerifyCredentials(ctx); err != nil {
		log.Error().Err(err).Msg("housekeeping: credential check failed")
	} else {
		log.Info().Msg("housekeeping: credentials verified")
	}

	if err := b.store.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("housekeeping: store ping failed")
	}

	recent := b.store.RecentPosts(ctx, 24*time.Hour, "")
	totalMessages := 0
	for _, p := range recent {
		totalMessages += len(p.MessageIDs)
	}

	log.Info().
		Int("threads_24h", len(recent)).
		Int("messages_24h", totalMessages).
		Int("posted_today", b.store.CountPostsToday(ctx)).
		Msg("housekeeping: activity summary")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
