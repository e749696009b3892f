package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jobdeck/automata/pkg/models"
	"github.com/jobdeck/automata/pkg/persistence"
)

// DefaultStaleAfter is how long a pending execution without a resume point
// may sit before the sweeper treats it as dropped and requeues it.
const DefaultStaleAfter = 5 * time.Minute

// Sweeper periodically picks up pending executions: delayed runs whose
// resume time has passed, and stale pending logs whose dispatch was lost.
// Claim atomicity makes the sweep safe to run alongside live workers and
// other sweeper replicas.
type Sweeper struct {
	persistence persistence.Persistence
	engine      *Engine
	logger      *slog.Logger
	staleAfter  time.Duration
	cron        *cron.Cron
	now         func() time.Time
}

func NewSweeper(persist persistence.Persistence, engine *Engine, logger *slog.Logger, staleAfter time.Duration) *Sweeper {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	return &Sweeper{
		persistence: persist,
		engine:      engine,
		logger:      logger.With("module", "sweeper"),
		staleAfter:  staleAfter,
		now:         time.Now,
	}
}

// Start schedules Sweep on the given cron expression (e.g. "@every 30s")
// and runs until Stop is called.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	s.cron = cron.New()

	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error("Sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.logger.Info("Sweeper started", "schedule", schedule, "stale_after", s.staleAfter)

	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}

	<-s.cron.Stop().Done()
	s.logger.Info("Sweeper stopped")
}

// Sweep runs one pass over the due pending executions.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.now().UTC()

	due, err := s.persistence.PendingExecutions(ctx, now, now.Add(-s.staleAfter))
	if err != nil {
		return fmt.Errorf("failed to list pending executions: %w", err)
	}

	if len(due) == 0 {
		return nil
	}

	s.logger.Info("Sweeping pending executions", "count", len(due))

	for _, log := range due {
		s.sweepOne(ctx, log)
	}

	return nil
}

func (s *Sweeper) sweepOne(ctx context.Context, log *models.ExecutionLog) {
	err := s.engine.RunExecution(ctx, log.ID)
	if err != nil {
		s.logger.Error("Failed to run swept execution", "execution_id", log.ID, "error", err)
	}
}
