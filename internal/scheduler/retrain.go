// Package scheduler runs periodic model retraining.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/techcompare/specmatch/internal/domain"
	"github.com/techcompare/specmatch/internal/usecase"
)

// Trainer retrains the model from the current catalog
type Trainer interface {
	Train(ctx context.Context) (*usecase.TrainedModelSet, error)
}

// Parser accepts standard 5-field cron expressions and descriptors such as @daily
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule validates a cron expression
func ParseSchedule(spec string) (cron.Schedule, error) {
	sched, err := Parser.Parse(strings.TrimSpace(spec))
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return sched, nil
}

// Retrainer triggers Trainer.Train on a cron schedule
type Retrainer struct {
	cron    *cron.Cron
	trainer Trainer
	timeout time.Duration
	logger  zerolog.Logger

	mu      sync.Mutex
	entry   cron.EntryID
	started bool
}

// NewRetrainer creates a retrainer for schedule. Each run is bounded by timeout.
func NewRetrainer(schedule string, trainer Trainer, timeout time.Duration, logger zerolog.Logger) (*Retrainer, error) {
	if _, err := ParseSchedule(schedule); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	r := &Retrainer{
		cron:    cron.New(cron.WithParser(Parser)),
		trainer: trainer,
		timeout: timeout,
		logger:  logger.With().Str("component", "scheduler").Logger(),
	}
	id, err := r.cron.AddFunc(strings.TrimSpace(schedule), r.RunOnce)
	if err != nil {
		return nil, fmt.Errorf("register retraining job: %w", err)
	}
	r.entry = id
	return r, nil
}

// Start begins running the schedule in the background
func (r *Retrainer) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.cron.Start()
	r.logger.Info().Time("next_run", r.Next()).Msg("retraining scheduled")
}

// Stop halts the schedule and waits for a running job to finish or ctx to expire
func (r *Retrainer) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}
	r.started = false
	select {
	case <-r.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next scheduled run
func (r *Retrainer) Next() time.Time {
	return r.cron.Entry(r.entry).Next
}

// RunOnce trains immediately. A run that collides with one already in flight is skipped.
func (r *Retrainer) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	started := time.Now()
	set, err := r.trainer.Train(ctx)
	switch {
	case errors.Is(err, domain.ErrTrainingInProgress):
		r.logger.Info().Msg("scheduled retraining skipped, training already in progress")
	case err != nil:
		r.logger.Error().Err(err).Msg("scheduled retraining failed")
	default:
		r.logger.Info().
			Str("epoch", set.EpochID).
			Str("best_model", set.BestModel).
			Dur("duration", time.Since(started)).
			Msg("scheduled retraining complete")
	}
}
