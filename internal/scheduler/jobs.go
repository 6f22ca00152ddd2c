package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	SweepJobName    = "booking-stale-pending-sweep"
	RolloverJobName = "booking-day-rollover"
)

// BookingMaintainer is the part of the booking lifecycle driven by the clock.
type BookingMaintainer interface {
	SweepStale(ctx context.Context) (int, error)
	CompletePlayed(ctx context.Context) (int, error)
}

type JobConfig struct {
	SweepCron    string
	RolloverCron string
	// Timeout bounds one run of either job.
	Timeout time.Duration
}

// RegisterBookingJobs schedules the stale pending sweep and the day rollover.
func RegisterBookingJobs(s *Service, bookings BookingMaintainer, cfg JobConfig) error {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}

	if _, err := s.AddJob(SweepJobName, cfg.SweepCron, runner(SweepJobName, cfg.Timeout, bookings.SweepStale)); err != nil {
		return fmt.Errorf("add sweep job: %w", err)
	}
	if _, err := s.AddJob(RolloverJobName, cfg.RolloverCron, runner(RolloverJobName, cfg.Timeout, bookings.CompletePlayed)); err != nil {
		return fmt.Errorf("add rollover job: %w", err)
	}
	return nil
}

func runner(name string, timeout time.Duration, fn func(ctx context.Context) (int, error)) func() {
	return func() {
		logger := log.With().Str("job_name", name).Logger()
		ctx, cancel := context.WithTimeout(logger.WithContext(context.Background()), timeout)
		defer cancel()

		n, err := fn(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Scheduler job failed")
			return
		}
		if n > 0 {
			logger.Info().Int("affected", n).Msg("Scheduler job applied")
		}
	}
}
