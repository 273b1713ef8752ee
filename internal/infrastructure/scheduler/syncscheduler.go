// Package scheduler runs the periodic pull-reconciliation loop that backs
// up webhook push delivery.
package scheduler

import (
	"context"
	"sync"
	"time"

	syncUsecases "github.com/petgourmet/ledgersync/internal/application/sync/usecases"
	"github.com/petgourmet/ledgersync/internal/shared/biztime"
	"github.com/petgourmet/ledgersync/internal/shared/config"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

// SyncRunner drives one pull-reconciliation batch.
type SyncRunner interface {
	Execute(ctx context.Context, cmd syncUsecases.RunSyncCommand) (*syncUsecases.SyncReport, error)
}

// AdvisoryLocker keeps two instances from running the same sweep at once.
type AdvisoryLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

const (
	syncLockKey = "sync:run"
	// healthHistorySize bounds the run history kept for the health endpoint.
	healthHistorySize = 20
)

// RunRecord is one completed (or skipped) sync run, kept for health checks.
type RunRecord struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`
	Updated    int       `json:"updated"`
	Errors     int       `json:"errors"`
	Skipped    bool      `json:"skipped,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type SyncScheduler struct {
	runSyncUC SyncRunner
	locker    AdvisoryLocker // optional; nil in single-instance setups
	cfg       config.SyncConfig
	logger    logger.Interface

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.RWMutex
	history []RunRecord
}

func NewSyncScheduler(runSyncUC SyncRunner, locker AdvisoryLocker, cfg config.SyncConfig, logger logger.Interface) *SyncScheduler {
	return &SyncScheduler{
		runSyncUC: runSyncUC,
		locker:    locker,
		cfg:       cfg,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

func (s *SyncScheduler) Start(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	s.logger.Infow("starting sync scheduler", "interval", interval, "batch_limit", s.cfg.BatchLimit)

	s.wg.Add(1)
	go s.run(ctx, interval)
}

func (s *SyncScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	s.logger.Infow("sync scheduler stopped")
}

func (s *SyncScheduler) run(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()

	// Run immediately on start so a restart does not wait a full interval.
	s.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SyncScheduler) runOnce(ctx context.Context) {
	record := RunRecord{StartedAt: biztime.NowUTC()}

	if s.locker != nil {
		ttl := s.cfg.Interval
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		acquired, err := s.locker.TryLock(ctx, syncLockKey, ttl)
		if err != nil {
			s.logger.Warnw("failed to acquire sync lock, running anyway", "error", err)
		} else if !acquired {
			s.logger.Debugw("sync run held by another instance, skipping")
			record.Skipped = true
			record.FinishedAt = biztime.NowUTC()
			s.record(record)
			return
		} else {
			defer func() {
				if err := s.locker.Unlock(context.WithoutCancel(ctx), syncLockKey); err != nil {
					s.logger.Warnw("failed to release sync lock", "error", err)
				}
			}()
		}
	}

	report, err := s.runSyncUC.Execute(ctx, syncUsecases.RunSyncCommand{
		MaxAge:      s.cfg.MaxAge,
		Limit:       s.cfg.BatchLimit,
		ItemTimeout: s.cfg.ItemTimeout,
	})

	record.FinishedAt = biztime.NowUTC()
	if err != nil {
		s.logger.Errorw("sync run failed", "error", err)
		record.Error = err.Error()
	} else {
		record.Processed = report.Processed
		record.Updated = report.Updated
		record.Errors = report.Errors
	}
	s.record(record)
}

func (s *SyncScheduler) record(r RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, r)
	if len(s.history) > healthHistorySize {
		s.history = s.history[len(s.history)-healthHistorySize:]
	}
}

// History returns the most recent runs, newest last.
func (s *SyncScheduler) History() []RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RunRecord, len(s.history))
	copy(out, s.history)
	return out
}

// LastRun returns the most recent run record, if any.
func (s *SyncScheduler) LastRun() (RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return RunRecord{}, false
	}
	return s.history[len(s.history)-1], true
}
