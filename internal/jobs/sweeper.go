package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"raid-service/internal/coordinator"
)

// Sweeper runs the proactive background sweeps: friend-gate timeout
// kicks and queue ticket TTL expiry. Both are also applied lazily by
// the coordinator, so a missed run never breaks an invariant.
type Sweeper struct {
	roster  *coordinator.Roster
	matcher *coordinator.Matcher
	logger  *zap.Logger
	cron    *cron.Cron
}

// NewSweeper constructs a Sweeper.
func NewSweeper(roster *coordinator.Roster, matcher *coordinator.Matcher, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		roster:  roster,
		matcher: matcher,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start schedules the sweeps and starts the scheduler.
func (s *Sweeper) Start(interval time.Duration) error {
	spec := fmt.Sprintf("@every %s", interval)

	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()

		kicked, err := s.roster.SweepExpiredGates(ctx)
		if err != nil {
			s.logger.Error("gate sweep failed", zap.Error(err))
			return
		}
		if kicked > 0 {
			s.logger.Info("gate sweep kicked members", zap.Int("count", kicked))
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()

		if _, err := s.matcher.ExpireStaleTickets(ctx); err != nil {
			s.logger.Error("ticket expiry sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
