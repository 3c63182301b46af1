package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Policy controls how Do spaces out attempts. Zero-value fields fall back
// to the defaults from DefaultPolicy.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Factor      float64
	Jitter      float64
	Retryable   []error
	Logger      *zap.Logger
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Factor:      2.0,
		Jitter:      0.2,
		Logger:      zap.NewNop(),
	}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Factor <= 1 {
		p.Factor = def.Factor
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return p
}

// Do runs operation up to MaxAttempts times with exponential backoff and
// jitter between attempts. Context cancellation aborts both waiting and
// further attempts.
func Do(ctx context.Context, p Policy, operation func() error) error {
	p = p.normalized()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			if attempt > 1 {
				p.Logger.Info("operation recovered",
					zap.Int("attempt", attempt))
			}
			return nil
		}
		lastErr = err

		if !p.shouldRetry(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := p.backoff(attempt)
		p.Logger.Warn("operation failed, backing off",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// DoWithResult is Do for operations that also return a value.
func DoWithResult[T any](ctx context.Context, p Policy, operation func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func() error {
		var opErr error
		result, opErr = operation()
		return opErr
	})
	return result, err
}

func (p Policy) shouldRetry(err error) bool {
	if len(p.Retryable) == 0 {
		return true
	}
	for _, target := range p.Retryable {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (p Policy) backoff(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Factor, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * p.Jitter * d
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
