/*
Package jobqueue schedules bot cycles and housekeeping through a
River-based job queue on Postgres.

For configuration options and tuning parameters, see queue_config.go.
*/
package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/aka-Rakesh/Xbot/internal/bot"
)

// CycleJobArgs triggers one discovery/posting cycle.
type CycleJobArgs struct{}

// Kind returns the job kind for River.
func (CycleJobArgs) Kind() string { return "bounty_cycle" }

func (CycleJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueCycle}
}

// HousekeepingJobArgs triggers a housekeeping pass.
type HousekeepingJobArgs struct{}

// Kind returns the job kind for River.
func (HousekeepingJobArgs) Kind() string { return "housekeeping" }

func (HousekeepingJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueHousekeeping}
}

// CycleWorker runs bot cycles.
type CycleWorker struct {
	river.WorkerDefaults[CycleJobArgs]
	bot *bot.Bot
}

// Work runs one cycle. An overlapping cycle is not an error worth a
// queue retry: the running cycle is already doing the work.
func (w *CycleWorker) Work(ctx context.Context, job *river.Job[CycleJobArgs]) error {
	err := w.bot.TryRunCycle(ctx)
	if errors.Is(err, bot.ErrCycleRunning) {
		log.Warn().Msg("cycle job skipped, previous cycle still running")
		return nil
	}
	return err
}

// HousekeepingWorker runs housekeeping passes.
type HousekeepingWorker struct {
	river.WorkerDefaults[HousekeepingJobArgs]
	bot *bot.Bot
}

func (w *HousekeepingWorker) Work(ctx context.Context, job *river.Job[HousekeepingJobArgs]) error {
	w.bot.Housekeeping(ctx)
	return nil
}

// JobQueue manages the River client and its periodic jobs.
type JobQueue struct {
	client *river.Client[pgx.Tx]
	config *QueueConfig
}

// NewJobQueue creates the queue on an existing pool. The pool is
// shared with the Postgres store; the caller owns its lifetime.
func NewJobQueue(pool *pgxpool.Pool, b *bot.Bot, config *QueueConfig) (*JobQueue, error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, &CycleWorker{bot: b})
	river.AddWorker(workers, &HousekeepingWorker{bot: b})

	periodicJobs := []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(config.CycleInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return CycleJobArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
		river.NewPeriodicJob(
			river.PeriodicInterval(config.HousekeepingInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return HousekeepingJobArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: false},
		),
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:       config.RiverQueueConfig(),
		Workers:      workers,
		PeriodicJobs: periodicJobs,
		MaxAttempts:  config.CycleMaxRetries + 1,
		JobTimeout:   config.JobTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{client: client, config: config}, nil
}

// Start starts the queue workers and periodic scheduling.
func (jq *JobQueue) Start(ctx context.Context) error {
	log.Info().
		Dur("cycle_interval", jq.config.CycleInterval).
		Dur("housekeeping_interval", jq.config.HousekeepingInterval).
		Msg("job queue starting")
	return jq.client.Start(ctx)
}

// Stop stops the queue workers, waiting for in-flight jobs.
func (jq *JobQueue) Stop(ctx context.Context) error {
	return jq.client.Stop(ctx)
}

// QueueCycleJob inserts an immediate cycle job, used by the manual
// trigger paths.
func (jq *JobQueue) QueueCycleJob(ctx context.Context) error {
	_, err := jq.client.Insert(ctx, CycleJobArgs{}, nil)
	if err != nil {
		return fmt.Errorf("failed to queue cycle job: %w", err)
	}
	return nil
}
