// Package repair runs the periodic view-count rebuild next to live traffic.
package repair

import (
	"context"
	"sync"
	"time"

	"github.com/zfogg/sidechain/views/internal/logger"
	"github.com/zfogg/sidechain/views/internal/metrics"
	"github.com/zfogg/sidechain/views/internal/views"
	"go.uber.org/zap"
)

// Recomputer rebuilds every user's counts from the ledger
type Recomputer interface {
	RecomputeAll(ctx context.Context, concurrency int) (views.RepairSummary, error)
}

var _ Recomputer = (*views.Aggregator)(nil)

// Service handles periodic aggregate repair
type Service struct {
	recomputer  Recomputer
	interval    time.Duration
	concurrency int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a repair service. An interval of zero disables the loop;
// RunOnce still works.
func NewService(recomputer Recomputer, interval time.Duration, concurrency int) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		recomputer:  recomputer,
		interval:    interval,
		concurrency: concurrency,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins the periodic repair process
func (s *Service) Start() {
	if s.interval <= 0 {
		logger.Log.Info("Aggregate repair disabled")
		return
	}
	logger.Log.Info("Starting aggregate repair service",
		zap.Duration("interval", s.interval),
		zap.Int("concurrency", s.concurrency),
	)
	s.wg.Add(1)
	go s.run()
}

// Stop cancels any run in progress and waits for the loop to exit
func (s *Service) Stop() {
	logger.Log.Info("Stopping aggregate repair service")
	s.cancel()
	s.wg.Wait()
}

func (s *Service) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.RunOnce(s.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}

// RunOnce rebuilds all aggregates and records metrics for the run
func (s *Service) RunOnce(ctx context.Context) (views.RepairSummary, error) {
	summary, err := s.recomputer.RecomputeAll(ctx, s.concurrency)
	metrics.RecordRepairRun(summary.UsersFixed, summary.Failures, summary.UsersScanned, summary.Duration)

	if err != nil {
		logger.Log.Error("Aggregate repair run failed",
			zap.Int("users_scanned", summary.UsersScanned),
			zap.Error(err),
		)
		return summary, err
	}

	fields := []zap.Field{
		zap.Int("users_scanned", summary.UsersScanned),
		zap.Int("users_fixed", summary.UsersFixed),
		zap.Int("failures", summary.Failures),
		zap.Duration("duration", summary.Duration),
	}
	if summary.UsersFixed > 0 || summary.Failures > 0 {
		logger.Log.Warn("Aggregate repair found drift", fields...)
	} else {
		logger.Log.Info("Aggregate repair complete", fields...)
	}
	return summary, nil
}
