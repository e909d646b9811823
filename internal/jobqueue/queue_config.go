/*
Package jobqueue configuration - tunable parameters for the River queue.

# Queue layout

Two queues, both deliberately narrow:

  - "cycle": runs the discovery/posting cycle. MaxWorkers is pinned to 1
    and must stay there: the pipeline is sequential by contract, and a
    second concurrent cycle would race the daily quota check and the
    post spacing limiter.
  - "housekeeping": connectivity checks and activity stats. Also a
    single worker; the jobs are cheap and there is never more than one
    pending.

## Retry behavior

Cycle jobs get very few queue-level retries. The cycle already carries
its own per-opportunity retry with backoff, so a failed job usually
means discovery is down; the next periodic run covers it. Piling queue
retries on top would just hammer the site.

## Scheduling

Both jobs are periodic, driven by River's periodic job support, with
intervals taken from the bot configuration. RunOnStart is set for the
cycle so a restart does not wait a full interval before the first run.
*/
package jobqueue

import (
	"time"

	"github.com/riverqueue/river"
)

// QueueCycle and QueueHousekeeping are the River queue names.
const (
	QueueCycle        = "cycle"
	QueueHousekeeping = "housekeeping"
)

// QueueConfig holds the tunable parameters for the job queue.
type QueueConfig struct {
	// CycleInterval is how often a discovery cycle is scheduled.
	CycleInterval time.Duration

	// HousekeepingInterval is how often housekeeping runs.
	HousekeepingInterval time.Duration

	// CycleMaxRetries is the queue-level retry budget for a failed
	// cycle job. Keep this small; see the package comment.
	CycleMaxRetries int

	// JobTimeout bounds a single cycle run. A cycle that posts the full
	// daily quota with inter-post delays still fits comfortably.
	JobTimeout time.Duration
}

// DefaultQueueConfig returns the default queue tuning.
func DefaultQueueConfig(cycleInterval, housekeepingInterval time.Duration) *QueueConfig {
	return &QueueConfig{
		CycleInterval:        cycleInterval,
		HousekeepingInterval: housekeepingInterval,
		CycleMaxRetries:      2,
		JobTimeout:           30 * time.Minute,
	}
}

// RiverQueueConfig converts our config to River's queue configuration
// format. Worker counts are intentionally not configurable.
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		QueueCycle: {
			MaxWorkers: 1, // sequential by contract, do not raise
		},
		QueueHousekeeping: {
			MaxWorkers: 1,
		},
	}
}
