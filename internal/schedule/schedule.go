// Package schedule runs the periodic batch refreshes.
package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cellar-valuation/internal/reconcile"
)

// Runner executes a batch job for every user.
type Runner interface {
	RunAll(ctx context.Context, job reconcile.Job) (reconcile.BatchResult, error)
}

// Scheduler triggers jobs on cron specs. A job that is still running when
// its next tick fires skips that tick.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner

	mu      sync.Mutex
	ctx     context.Context
	running map[reconcile.Job]*atomic.Bool
	wg      sync.WaitGroup
}

// New creates a Scheduler with no jobs.
func New(runner Runner) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		runner:  runner,
		ctx:     context.Background(),
		running: make(map[reconcile.Job]*atomic.Bool),
	}
}

// Add registers job on spec, which accepts cron expressions and
// descriptors such as @weekly.
func (s *Scheduler) Add(spec string, job reconcile.Job) error {
	if !job.Valid() {
		return eris.Errorf("schedule: unknown job %q", job)
	}
	if _, err := cron.Parse(spec); err != nil {
		return eris.Wrapf(err, "schedule: parse spec %q for %s", spec, job)
	}

	s.mu.Lock()
	if _, ok := s.running[job]; !ok {
		s.running[job] = &atomic.Bool{}
	}
	s.mu.Unlock()

	err := s.cron.AddFunc(spec, func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		s.Trigger(ctx, job)
	})
	return eris.Wrapf(err, "schedule: add %s", job)
}

// Trigger runs job now unless a run of the same job is in progress. It
// reports whether the job ran.
func (s *Scheduler) Trigger(ctx context.Context, job reconcile.Job) bool {
	s.mu.Lock()
	flag, ok := s.running[job]
	if !ok {
		flag = &atomic.Bool{}
		s.running[job] = flag
	}
	s.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	if !flag.CompareAndSwap(false, true) {
		zap.L().Warn("schedule: previous run still active, skipping", zap.String("job", string(job)))
		return false
	}
	s.wg.Add(1)
	defer func() {
		flag.Store(false)
		s.wg.Done()
	}()

	start := time.Now()
	zap.L().Info("schedule: job started", zap.String("job", string(job)))
	res, err := s.runner.RunAll(ctx, job)
	if err != nil {
		zap.L().Error("schedule: job failed", zap.String("job", string(job)), zap.Error(err))
	}
	zap.L().Info("schedule: job finished",
		zap.String("job", string(job)),
		zap.Int("processed", res.Processed),
		zap.Int("errors", res.Errors),
		zap.Duration("elapsed", time.Since(start)),
	)
	return true
}

// Run starts the cron loop and blocks until ctx is done, then waits for
// in-flight jobs to observe the cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	zap.L().Info("schedule: started", zap.Int("entries", len(s.cron.Entries())))
	<-ctx.Done()
	s.cron.Stop()
	s.wg.Wait()
	zap.L().Info("schedule: stopped")
	return nil
}
