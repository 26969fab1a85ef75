package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers a rotation of every purpose on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	rotation RotationUseCase
	logger   *slog.Logger
}

// NewScheduler parses spec, a standard five field cron expression or a descriptor such
// as "@weekly", and binds it to rotation.
func NewScheduler(spec string, rotation RotationUseCase, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		rotation: rotation,
		logger:   logger,
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid key rotation schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("key rotation scheduler started",
		slog.Time("next_run", s.cron.Entries()[0].Next),
	)
}

// Stop halts the scheduler and returns a context done once a running job returned.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) run() {
	statuses, err := s.rotation.TriggerAll(context.Background())
	if err != nil {
		s.logger.Error("scheduled key rotation failed", slog.Any("error", err))
		return
	}

	for _, status := range statuses {
		s.logger.Info("scheduled key rotation triggered", slog.String("purpose", string(status.Purpose)))
	}
}
