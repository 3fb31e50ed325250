package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cellar-valuation/internal/model"
)

// DefaultDelay is the pause between items in a batch.
const DefaultDelay = 5 * time.Second

// Job names a batch refresh.
type Job string

const (
	JobValuations   Job = "valuations"
	JobCriticScores Job = "critic_scores"
)

// Valid reports whether j is a known job.
func (j Job) Valid() bool {
	return j == JobValuations || j == JobCriticScores
}

// BatchResult counts the outcome of a batch. Every attempted item counts
// toward Processed.
type BatchResult struct {
	Job         Job `json:"job"`
	Total       int `json:"total"`
	Processed   int `json:"processed"`
	Matched     int `json:"matched"`
	NeedsReview int `json:"needs_review"`
	NoMatch     int `json:"no_match"`
	Fetched     int `json:"fetched"`
	Errors      int `json:"errors"`
}

func (r *BatchResult) add(o BatchResult) {
	r.Total += o.Total
	r.Processed += o.Processed
	r.Matched += o.Matched
	r.NeedsReview += o.NeedsReview
	r.NoMatch += o.NoMatch
	r.Fetched += o.Fetched
	r.Errors += o.Errors
}

// Runner refreshes stale pairs one at a time.
type Runner struct {
	svc   *Service
	delay time.Duration
}

// NewRunner creates a Runner that waits delay between items. A negative
// delay selects DefaultDelay; zero disables waiting.
func NewRunner(svc *Service, delay time.Duration) *Runner {
	if delay < 0 {
		delay = DefaultDelay
	}
	return &Runner{svc: svc, delay: delay}
}

// RunValuations refreshes every stale valuation of userID.
func (r *Runner) RunValuations(ctx context.Context, userID int64) (BatchResult, error) {
	return r.Run(ctx, JobValuations, userID)
}

// RunCriticScores refreshes every stale critic score set of userID.
func (r *Runner) RunCriticScores(ctx context.Context, userID int64) (BatchResult, error) {
	return r.Run(ctx, JobCriticScores, userID)
}

// Run executes job for one user. Item failures are counted, not returned;
// the error is non-nil only when the work list cannot be built or ctx is
// done.
func (r *Runner) Run(ctx context.Context, job Job, userID int64) (BatchResult, error) {
	res := BatchResult{Job: job}

	var (
		pairs []model.Pair
		err   error
	)
	switch job {
	case JobValuations:
		pairs, err = r.svc.NeedsValuation(ctx, userID)
	case JobCriticScores:
		pairs, err = r.svc.NeedsCriticScores(ctx, userID)
	default:
		return res, eris.Errorf("reconcile: unknown job %q", job)
	}
	if err != nil {
		return res, err
	}

	res.Total = len(pairs)
	log := zap.L().With(zap.String("job", string(job)), zap.Int64("user_id", userID))
	log.Info("reconcile: batch started", zap.Int("total", res.Total))
	start := time.Now()

	for i, p := range pairs {
		if i > 0 {
			if err := sleep(ctx, r.delay); err != nil {
				log.Warn("reconcile: batch interrupted", zap.Int("processed", res.Processed))
				return res, err
			}
		} else if err := ctx.Err(); err != nil {
			return res, err
		}

		res.Processed++
		switch job {
		case JobValuations:
			r.valuation(ctx, log, userID, p, &res)
		case JobCriticScores:
			r.criticScores(ctx, log, userID, p, &res)
		}
	}

	log.Info("reconcile: batch finished",
		zap.Int("processed", res.Processed),
		zap.Int("matched", res.Matched),
		zap.Int("needs_review", res.NeedsReview),
		zap.Int("no_match", res.NoMatch),
		zap.Int("fetched", res.Fetched),
		zap.Int("errors", res.Errors),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (r *Runner) valuation(ctx context.Context, log *zap.Logger, userID int64, p model.Pair, res *BatchResult) {
	v, err := recovered(func() (*model.Valuation, error) {
		return r.svc.FetchValuation(ctx, p.WineID, p.Vintage, userID)
	})
	if err != nil {
		res.Errors++
		log.Error("reconcile: valuation failed", zap.String("pair", p.String()), zap.Error(err))
		return
	}
	switch v.Status {
	case model.StatusMatched:
		res.Matched++
	case model.StatusNeedsReview:
		res.NeedsReview++
	case model.StatusPending, model.StatusNoMatch:
		res.NoMatch++
	}
}

func (r *Runner) criticScores(ctx context.Context, log *zap.Logger, userID int64, p model.Pair, res *BatchResult) {
	_, err := recovered(func() ([]model.CriticScore, error) {
		return r.svc.FetchCriticScores(ctx, p.WineID, p.Vintage, userID)
	})
	switch {
	case err == nil:
		res.Fetched++
	case errors.Is(err, ErrNoCriticScores), errors.Is(err, ErrLowConfidence):
		res.NoMatch++
		log.Debug("reconcile: no usable critic scores", zap.String("pair", p.String()), zap.Error(err))
	default:
		res.Errors++
		log.Error("reconcile: critic scores failed", zap.String("pair", p.String()), zap.Error(err))
	}
}

// RunAll executes job for every user in turn.
func (r *Runner) RunAll(ctx context.Context, job Job) (BatchResult, error) {
	total := BatchResult{Job: job}
	if !job.Valid() {
		return total, eris.Errorf("reconcile: unknown job %q", job)
	}
	users, err := r.svc.store.ListUserIDs(ctx)
	if err != nil {
		return total, eris.Wrap(err, "reconcile: list users")
	}

	for i, userID := range users {
		if i > 0 {
			if err := sleep(ctx, r.delay); err != nil {
				return total, err
			}
		}
		res, err := r.Run(ctx, job, userID)
		total.add(res)
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		if err != nil {
			total.Errors++
			zap.L().Error("reconcile: user batch failed",
				zap.String("job", string(job)),
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
		}
	}
	return total, nil
}

// recovered runs fn, converting a panic into an error.
func recovered[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = eris.Errorf("reconcile: panic: %v", p)
		}
	}()
	return fn()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
