package failover

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vietddude/rpcwatch/internal/infra/rpc/provider"
)

// RetryConfig defines retry behavior for Do.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     5,
	InitialDelay:    200 * time.Millisecond,
	MaxDelay:        5 * time.Second,
	BackoffMultiple: 2.0,
}

// Do runs fn against the manager's current handle until it succeeds, the
// attempts run out or ctx is done. Failures are reported for the handle
// they came from, so repeated failures move the manager to the next
// endpoint. Protocol errors count toward failover like any other failure but
// are returned without a retry.
func Do(ctx context.Context, m *Manager, cfg RetryConfig, fn func(context.Context, provider.Handle) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultRetryConfig
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		h := m.Provider()
		if h == nil || m.isClosed() {
			return ErrClosed
		}

		err := fn(ctx, h)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.ReportErrorFor(h, err)
		if Classify(err) == KindProtocol {
			return err
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffDelay(attempt, cfg)):
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

func backoffDelay(attempt int, cfg RetryConfig) time.Duration {
	multiple := cfg.BackoffMultiple
	if multiple < 1 {
		multiple = 1
	}
	delay := float64(cfg.InitialDelay) * math.Pow(multiple, float64(attempt))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}
