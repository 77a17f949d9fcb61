// Package scheduler runs the periodic digest aggregation on a cron cadence.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobby4fischer/pettrack/internal/service"
)

// DigestScheduler triggers DigestService.RunOnce on a cron schedule.
type DigestScheduler struct {
	cron    *cron.Cron
	digests service.DigestService
	logger  *slog.Logger
}

// NewDigestScheduler validates spec and registers the digest job. The
// schedule runs in UTC regardless of host timezone.
func NewDigestScheduler(spec string, digests service.DigestService, logger *slog.Logger) (*DigestScheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DigestScheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		digests: digests,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid digest schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *DigestScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sent, err := s.digests.RunOnce(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("digest_run_failed", "error", err)
		return
	}
	s.logger.Info("digest_run", "sent", sent)
}

// Start launches the cron loop in its own goroutine.
func (s *DigestScheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job to finish.
func (s *DigestScheduler) Stop() {
	<-s.cron.Stop().Done()
}
