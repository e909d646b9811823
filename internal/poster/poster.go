// Package poster publishes message threads to the platform with
// spacing, pacing, and rate-limit handling.
package poster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/aka-Rakesh/Xbot/internal/logging"
)

// PostResult describes a successfully posted thread. MessageIDs holds
// only the messages that actually went out; ThreadLength may be less
// than the requested thread when replies failed mid-way.
type PostResult struct {
	RootMessageID string
	MessageIDs    []string
	ThreadLength  int
	PostedAt      time.Time
}

// ThreadPoster posts threads through a Transport. A limiter enforces
// the minimum spacing between consecutive thread posts across cycles.
type ThreadPoster struct {
	transport Transport
	limiter   *rate.Limiter
	pacing    time.Duration
	cooldown  time.Duration
}

// New builds a ThreadPoster. minInterval is the spacing between thread
// posts, pacing the delay between messages within one thread, cooldown
// the wait applied after the platform reports rate limiting.
func New(transport Transport, minInterval, pacing, cooldown time.Duration) *ThreadPoster {
	return &ThreadPoster{
		transport: transport,
		limiter:   rate.NewLimiter(rate.Every(minInterval), 1),
		pacing:    pacing,
		cooldown:  cooldown,
	}
}

// PostThread posts the thread: root first, then each message as a
// reply to the last successfully posted one. A root failure aborts the
// whole thread. A reply failure is logged and skipped; the reply
// cursor stays on the previous message so the chain remains connected.
func (p *ThreadPoster) PostThread(ctx context.Context, thread []string) (*PostResult, error) {
	if len(thread) == 0 {
		return nil, fmt.Errorf("thread cannot be empty")
	}

	logger := logging.GetCurrentLogger()

	// The spacing token is only spent on a successful root. A failed
	// attempt refunds it so a retry is paced by backoff alone instead
	// of stacking a fresh spacing wait on top.
	reservation := p.limiter.Reserve()
	if err := sleepCtx(ctx, reservation.Delay()); err != nil {
		reservation.Cancel()
		return nil, fmt.Errorf("post spacing wait interrupted: %w", err)
	}

	if logger != nil {
		logger.Log("Posting thread with %d messages", len(thread))
	}

	rootID, err := p.postOne(ctx, thread[0], "")
	if err != nil {
		reservation.Cancel()
		return nil, fmt.Errorf("failed to post thread root: %w", err)
	}

	messageIDs := []string{rootID}
	replyTo := rootID

	for i, text := range thread[1:] {
		if err := sleepCtx(ctx, p.pacing); err != nil {
			return nil, err
		}

		id, err := p.postOne(ctx, text, replyTo)
		if err != nil {
			log.Error().Err(err).Int("position", i+2).Msg("failed to post thread reply, continuing")
			if logger != nil {
				logger.LogError(fmt.Sprintf("reply %d of %d", i+2, len(thread)), err)
			}
			continue
		}

		messageIDs = append(messageIDs, id)
		replyTo = id
	}

	result := &PostResult{
		RootMessageID: rootID,
		MessageIDs:    messageIDs,
		ThreadLength:  len(messageIDs),
		PostedAt:      time.Now(),
	}

	log.Info().
		Str("root_message_id", rootID).
		Int("thread_length", result.ThreadLength).
		Msg("thread posted")

	return result, nil
}

// postOne posts a single message. When the platform reports rate
// limiting the poster cools down before returning the error, so the
// caller's next attempt starts after the window has passed.
func (p *ThreadPoster) postOne(ctx context.Context, text, replyTo string) (string, error) {
	id, err := p.transport.Post(ctx, text, replyTo)
	if err == nil {
		return id, nil
	}

	if errors.Is(err, ErrRateLimited) {
		log.Warn().Dur("cooldown", p.cooldown).Msg("rate limit hit, cooling down")
		if sleepErr := sleepCtx(ctx, p.cooldown); sleepErr != nil {
			return "", sleepErr
		}
	}

	return "", err
}

// VerifyCredentials delegates to the transport.
func (p *ThreadPoster) VerifyCredentials(ctx context.Context) error {
	return p.transport.VerifyCredentials(ctx)
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
