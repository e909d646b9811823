// Package generator turns discovered opportunities into platform-ready
// message threads. Strategies are tried in order; the first one that
// yields at least one valid message wins. Generation never fails the
// cycle: when every strategy comes up empty the result is an empty
// thread and the caller skips the opportunity.
package generator

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/aka-Rakesh/Xbot/internal/logging"
	"github.com/aka-Rakesh/Xbot/pkg/models"
)

// Strategy is one way of producing a thread for an opportunity.
type Strategy interface {
	Name() string
	GenerateThread(ctx context.Context, opp models.Opportunity) ([]string, error)
}

// Generator runs an ordered strategy chain and validates the output.
type Generator struct {
	strategies       []Strategy
	maxMessageLength int
	maxThreadLength  int
}

// New builds a Generator. Strategies are consulted in the order given.
func New(maxMessageLength, maxThreadLength int, strategies ...Strategy) *Generator {
	return &Generator{
		strategies:       strategies,
		maxMessageLength: maxMessageLength,
		maxThreadLength:  maxThreadLength,
	}
}

// GenerateThread returns the validated thread for the opportunity, or
// an empty slice when no strategy produced anything usable. It never
// returns an error; strategy failures are logged and the chain moves on.
func (g *Generator) GenerateThread(ctx context.Context, opp models.Opportunity) []string {
	logger := logging.GetCurrentLogger()

	for _, strategy := range g.strategies {
		thread, err := strategy.GenerateThread(ctx, opp)
		if err != nil {
			if logger != nil {
				logger.LogError("strategy "+strategy.Name(), err)
			}
			log.Warn().Err(err).
				Str("strategy", strategy.Name()).
				Str("opportunity_id", opp.ID).
				Msg("generation strategy failed, trying next")
			continue
		}

		validated := g.validate(thread, strategy.Name(), opp.ID)
		if len(validated) > 0 {
			if logger != nil {
				logger.Log("Strategy %s produced %d messages for %s", strategy.Name(), len(validated), opp.ID)
			}
			return validated
		}

		log.Warn().
			Str("strategy", strategy.Name()).
			Str("opportunity_id", opp.ID).
			Msg("strategy produced no valid messages, trying next")
	}

	log.Warn().Str("opportunity_id", opp.ID).Msg("all generation strategies failed")
	return nil
}

// validate drops invalid messages and caps the thread length, keeping
// the earliest messages.
func (g *Generator) validate(thread []string, strategyName, oppID string) []string {
	var valid []string
	for _, msg := range thread {
		if !ValidMessage(msg, g.maxMessageLength) {
			log.Debug().
				Str("strategy", strategyName).
				Str("opportunity_id", oppID).
				Msg("dropping message that failed validation")
			continue
		}
		valid = append(valid, msg)
	}

	if len(valid) > g.maxThreadLength {
		valid = valid[:g.maxThreadLength]
	}

	return valid
}
