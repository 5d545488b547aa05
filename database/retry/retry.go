// Package retry provides retry policies and a bounded retry loop for
// database commands.
package retry

import "context"

// Strategy decides whether a failed action should run again. Strategies may
// block (sleeping, reconnecting) and are always called from the retry loop.
type Strategy interface {
	ShouldRetry(ctx context.Context, err error, retryCount int) bool
}

// StrategyFunc adapts a function to Strategy
type StrategyFunc func(ctx context.Context, err error, retryCount int) bool

// ShouldRetry calls f
func (f StrategyFunc) ShouldRetry(ctx context.Context, err error, retryCount int) bool {
	return f(ctx, err, retryCount)
}

// Never is a strategy that never retries
var Never Strategy = StrategyFunc(func(context.Context, error, int) bool { return false })

// Chain tries strategies in order and retries as soon as one agrees
func Chain(strategies ...Strategy) Strategy {
	return StrategyFunc(func(ctx context.Context, err error, retryCount int) bool {
		for _, s := range strategies {
			if s != nil && s.ShouldRetry(ctx, err, retryCount) {
				return true
			}
		}
		return false
	})
}

// CommandRetry runs an action with one strategy and a bounded number of
// retries after the first attempt.
type CommandRetry struct {
	strategy   Strategy
	maxRetries int
}

// NewCommandRetry creates a retry loop. A nil strategy never retries.
func NewCommandRetry(strategy Strategy, maxRetries int) *CommandRetry {
	if strategy == nil {
		strategy = Never
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &CommandRetry{strategy: strategy, maxRetries: maxRetries}
}

// Strategy returns the configured strategy
func (r *CommandRetry) Strategy() Strategy { return r.strategy }

// MaxRetries returns the retry bound
func (r *CommandRetry) MaxRetries() int { return r.maxRetries }

// Run executes action until it succeeds, the strategy declines or the retry
// bound is exceeded. The last error is returned unchanged.
func (r *CommandRetry) Run(ctx context.Context, action func(ctx context.Context) error) error {
	_, err := Run(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, action(ctx)
	})
	return err
}

// Run is CommandRetry.Run for actions with a result
func Run[T any](ctx context.Context, r *CommandRetry, action func(ctx context.Context) (T, error)) (T, error) {
	retryCount := 0
	for {
		result, err := action(ctx)
		if err == nil {
			return result, nil
		}
		if !r.strategy.ShouldRetry(ctx, err, retryCount) {
			return result, err
		}
		retryCount++
		if retryCount > r.maxRetries {
			return result, err
		}
	}
}
