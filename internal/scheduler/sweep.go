package scheduler

import (
	"context"
	"time"

	"fm_servicios_backend/platform/logger"

	"github.com/robfig/cron/v3"
)

// StaleExpirer expires gateway transactions left open longer than olderThan.
type StaleExpirer interface {
	ExpireStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// Sweep runs the stale transaction expiry on a cron spec with seconds.
type Sweep struct {
	cron    *cron.Cron
	expirer StaleExpirer
	ttl     time.Duration
	log     *logger.Logger
}

func NewSweep(spec string, ttl time.Duration, expirer StaleExpirer, log *logger.Logger) (*Sweep, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)
	s := &Sweep{cron: c, expirer: expirer, ttl: ttl, log: log}
	if _, err := c.AddFunc(spec, func() { s.runOnce(context.Background()) }); err != nil {
		return nil, err
	}
	return s, nil
}

// Run starts the cron and blocks until ctx is done, then waits for a
// running sweep to finish.
func (s *Sweep) Run(ctx context.Context) error {
	s.log.Info("stale payment sweep started", "ttl", s.ttl)
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info("stale payment sweep stopped")
	return nil
}

func (s *Sweep) runOnce(ctx context.Context) {
	n, err := s.expirer.ExpireStale(ctx, s.ttl)
	if err != nil {
		s.log.Error("stale payment sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("stale payment transactions expired", "count", n)
	}
}
