// Package worker schedules the background pipeline: periodic profile
// dispatch, hourly pruning and the daily digest.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/tbruni/weekendfly/config"
	"github.com/tbruni/weekendfly/db"
	"github.com/tbruni/weekendfly/engine"
	"github.com/tbruni/weekendfly/pkg/logger"
)

const scanLogRetention = 7 * 24 * time.Hour

// Scheduler drives the engine on cron schedules. Dispatch fans due profiles
// out over a bounded worker pool; prune keeps the tables small; digest sends
// the daily per-profile summary.
type Scheduler struct {
	db           *db.DB
	orchestrator *engine.Orchestrator
	notifier     *engine.Notifier
	cfg          config.WorkerConfig
	staleness    time.Duration

	cron *cron.Cron
	wg   sync.WaitGroup
}

// NewScheduler creates a scheduler. The digest hour comes from cfg.
func NewScheduler(database *db.DB, orchestrator *engine.Orchestrator, notifier *engine.Notifier,
	cfg config.WorkerConfig, scanCfg config.ScanConfig) *Scheduler {
	return &Scheduler{
		db:           database,
		orchestrator: orchestrator,
		notifier:     notifier,
		cfg:          cfg,
		staleness:    scanCfg.FlightStaleness,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger{}),
		)),
	}
}

// Start registers the jobs and starts the cron loop. An immediate dispatch
// runs in the background so a fresh deployment does not idle until the next
// five-minute tick.
func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		run  func(context.Context)
	}{
		{"*/5 * * * *", "dispatch", s.dispatch},
		{"0 * * * *", "prune", s.prune},
		{fmt.Sprintf("0 %d * * *", s.cfg.DigestHour), "digest", s.digest},
	}
	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() {
			s.track(job.name, job.run)
		}); err != nil {
			return fmt.Errorf("failed to schedule %s job: %w", job.name, err)
		}
		logger.Info("scheduled job", "job", job.name, "spec", job.spec)
	}

	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatch(context.Background())
	}()

	logger.Info("scheduler started", "max_workers", s.cfg.MaxWorkers, "update_interval", s.cfg.UpdateInterval)
	return nil
}

// Stop halts the cron loop and waits for in-flight work up to the configured
// shutdown timeout.
func (s *Scheduler) Stop() {
	// The returned context completes once cron-fired jobs have returned;
	// waiting on it covers jobs that fired but have not reached track yet.
	cronCtx := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("scheduler stopped")
	case <-time.After(s.cfg.ShutdownTimeout):
		logger.Warn("scheduler shutdown timed out", "timeout", s.cfg.ShutdownTimeout)
	}
}

func (s *Scheduler) track(name string, run func(context.Context)) {
	s.wg.Add(1)
	defer s.wg.Done()

	start := time.Now()
	run(context.Background())
	logger.Debug("job finished", "job", name, "duration", time.Since(start).Round(time.Millisecond))
}

// dispatch runs one orchestration per due profile on a bounded pool. A
// failing profile is logged and does not disturb its siblings.
func (s *Scheduler) dispatch(ctx context.Context) {
	due, err := s.db.Store().DueProfiles(ctx, time.Now().Add(-s.cfg.UpdateInterval))
	if err != nil {
		logger.Error(err, "failed to list due profiles")
		return
	}
	if len(due) == 0 {
		return
	}
	logger.Info("dispatching due profiles", "count", len(due))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxWorkers)
	for _, profile := range due {
		profile := profile
		g.Go(func() error {
			if err := s.orchestrator.RunProfile(gctx, profile.ID); err != nil {
				logger.Error(err, "profile run failed", "profile_id", profile.ID)
			}
			return nil
		})
	}
	g.Wait()
}

func (s *Scheduler) prune(ctx context.Context) {
	store := s.db.Store()
	now := time.Now()

	flights, err := store.PruneStaleFlights(ctx, now.Add(-s.staleness))
	if err != nil {
		logger.Error(err, "failed to prune stale flights")
	}
	deals, err := store.PruneOrphanDeals(ctx)
	if err != nil {
		logger.Error(err, "failed to prune orphan deals")
	}
	scans, err := store.PruneScanLog(ctx, now.Add(-scanLogRetention))
	if err != nil {
		logger.Error(err, "failed to prune scan log")
	}
	if flights+deals+scans > 0 {
		logger.Info("prune complete", "flights", flights, "deals", deals, "scan_entries", scans)
	}
}

func (s *Scheduler) digest(ctx context.Context) {
	profiles, err := s.db.Store().ActiveProfiles(ctx)
	if err != nil {
		logger.Error(err, "failed to list profiles for digest")
		return
	}
	for _, profile := range profiles {
		n, err := s.notifier.Digest(ctx, s.db.Store(), profile)
		if err != nil {
			logger.Error(err, "digest failed", "profile_id", profile.ID)
			continue
		}
		if n > 0 {
			logger.Info("digest sent", "profile_id", profile.ID, "destinations", n)
		}
	}
}

// cronLogger adapts pkg/logger to the cron logging interface.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error(err, msg, keysAndValues...)
}
