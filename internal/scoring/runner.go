package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxConcurrent = 4
	DefaultTimeout       = 30 * time.Second
)

// ErrEvaluatorPanic is returned when the evaluator panics.
var ErrEvaluatorPanic = errors.New("evaluator panicked")

// Runner invokes an Evaluator on its own goroutine so the calling request
// only waits on a channel. Concurrent evaluations are bounded, and
// concurrent requests for the same symbol share one evaluation.
type Runner struct {
	eval    Evaluator
	sem     *semaphore.Weighted
	group   singleflight.Group
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner creates a Runner. Non-positive limits fall back to defaults.
func NewRunner(eval Evaluator, maxConcurrent int64, timeout time.Duration, logger *slog.Logger) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		eval:    eval,
		sem:     semaphore.NewWeighted(maxConcurrent),
		timeout: timeout,
		logger:  logger,
	}
}

// Evaluate scores symbol and waits for the result or for ctx to end.
// An evaluation already in flight keeps running for the other waiters
// when one caller gives up.
func (r *Runner) Evaluate(ctx context.Context, symbol string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	ch := r.group.DoChan(symbol, func() (any, error) {
		evalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		if err := r.sem.Acquire(evalCtx, 1); err != nil {
			return Result{}, fmt.Errorf("wait for evaluation slot: %w", err)
		}
		defer r.sem.Release(1)

		return r.invoke(evalCtx, symbol)
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		if res.Shared {
			r.logger.Debug("evaluation shared", "symbol", symbol)
		}
		return res.Val.(Result).clone(), nil
	}
}

func (r *Runner) invoke(ctx context.Context, symbol string) (result Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrEvaluatorPanic, p)
		}
	}()

	start := time.Now()
	result, err = r.eval.Evaluate(ctx, symbol)
	r.logger.Debug("evaluation finished", "symbol", symbol, "duration", time.Since(start), "error", err)
	return result, err
}
