package consumer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/scheduler"
)

// DoseGenerator the expander operations driven by the runner and the event consumers
type DoseGenerator interface {
	EnsureDosesGenerated(ctx context.Context, profileID string, windowDays int, force bool) (*scheduler.Result, error)
	Regenerate(ctx context.Context, profileID, medicationID string) (*scheduler.Result, error)
	SweepMissed(ctx context.Context, profileID string, grace time.Duration) (int64, error)
}

// ProfileLister lists users that have something to expand
type ProfileLister interface {
	ListProfilesWithActiveSchedules(ctx context.Context) ([]string, error)
}

// RunnerConfig periodic generation settings
type RunnerConfig struct {
	Interval    time.Duration
	BatchSize   int
	WindowDays  int
	MissedGrace time.Duration
}

// GenerationRunner periodically keeps every user's dose window filled and
// sweeps overdue doses to missed
type GenerationRunner struct {
	profiles  ProfileLister
	generator DoseGenerator
	cfg       RunnerConfig
	logger    *zap.Logger
}

func NewGenerationRunner(profiles ProfileLister, generator DoseGenerator, cfg RunnerConfig, logger *zap.Logger) *GenerationRunner {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &GenerationRunner{profiles: profiles, generator: generator, cfg: cfg, logger: logger}
}

// Start runs one pass immediately, then every Interval until ctx is done
func (r *GenerationRunner) Start(ctx context.Context) error {
	r.logger.Info("Generation runner started",
		zap.Duration("interval", r.cfg.Interval),
		zap.Int("batch_size", r.cfg.BatchSize),
	)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error("Failed to run generation on startup", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Generation runner stopped")
			return nil
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error("Failed to run generation", zap.Error(err))
			}
		}
	}
}

// RunOnce one pass over every user with active schedules
func (r *GenerationRunner) RunOnce(ctx context.Context) error {
	profiles, err := r.profiles.ListProfilesWithActiveSchedules(ctx)
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	r.logger.Debug("Running dose generation", zap.Int("profile_count", len(profiles)))

	for i := 0; i < len(profiles); i += r.cfg.BatchSize {
		end := i + r.cfg.BatchSize
		if end > len(profiles) {
			end = len(profiles)
		}
		if err := r.runBatch(ctx, profiles[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *GenerationRunner) runBatch(ctx context.Context, profiles []string) error {
	for _, profileID := range profiles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := r.generator.EnsureDosesGenerated(ctx, profileID, r.cfg.WindowDays, false); err != nil {
			r.logger.Error("Failed to generate doses",
				zap.String("user_id", profileID),
				zap.Error(err),
			)
		}
		if r.cfg.MissedGrace > 0 {
			if _, err := r.generator.SweepMissed(ctx, profileID, r.cfg.MissedGrace); err != nil {
				r.logger.Error("Failed to sweep missed doses",
					zap.String("user_id", profileID),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}
