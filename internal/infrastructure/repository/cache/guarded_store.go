package cache

import (
	"context"
	"errors"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/perf-import/internal/domain/kv"
	"github.com/riskibarqy/perf-import/internal/platform/logging"
	"github.com/riskibarqy/perf-import/internal/platform/resilience"
)

const defaultStoreTimeout = 500 * time.Millisecond

// GuardedStore bounds every call to the wrapped store with a timeout and a
// circuit breaker. Any failure surfaces as kv.ErrUnavailable.
type GuardedStore struct {
	next    kv.Store
	timeout time.Duration
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger
}

func NewGuardedStore(next kv.Store, timeout time.Duration, breaker resilience.CircuitBreakerConfig, logger *logging.Logger) *GuardedStore {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	breaker = breaker.Normalized()
	logger.Debug("kv store guard configured", append([]any{"timeout", timeout.String()}, breaker.LogArgs()...)...)
	return &GuardedStore{
		next:    next,
		timeout: timeout,
		breaker: resilience.NewCircuitBreaker(breaker),
		logger:  logger,
	}
}

func (s *GuardedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value []byte
		found bool
	)
	err := s.call(ctx, "get", key, func(ctx context.Context) error {
		var err error
		value, found, err = s.next.Get(ctx, key)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

func (s *GuardedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.call(ctx, "set", key, func(ctx context.Context) error {
		return s.next.Set(ctx, key, value, ttl)
	})
}

func (s *GuardedStore) Exists(ctx context.Context, key string) (bool, error) {
	var found bool
	err := s.call(ctx, "exists", key, func(ctx context.Context) error {
		var err error
		found, err = s.next.Exists(ctx, key)
		return err
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (s *GuardedStore) Delete(ctx context.Context, key string) error {
	return s.call(ctx, "delete", key, func(ctx context.Context) error {
		return s.next.Delete(ctx, key)
	})
}

func (s *GuardedStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	var deleted int
	err := s.call(ctx, "delete_prefix", prefix, func(ctx context.Context) error {
		var err error
		deleted, err = s.next.DeleteByPrefix(ctx, prefix)
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// Healthy is false while the breaker is open.
func (s *GuardedStore) Healthy(ctx context.Context) bool {
	if s.breaker.State() == resilience.CircuitStateOpen {
		return false
	}
	return s.next.Healthy(ctx)
}

func (s *GuardedStore) BreakerStats() resilience.Stats {
	return s.breaker.Stats()
}

func (s *GuardedStore) call(ctx context.Context, op, key string, fn func(context.Context) error) error {
	err := s.breaker.Execute(func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- fn(callCtx)
		}()

		select {
		case err := <-done:
			return err
		case <-callCtx.Done():
			return callCtx.Err()
		}
	}, func(err error) bool {
		// The caller giving up says nothing about the store.
		return errors.Is(err, context.Canceled) && ctx.Err() != nil
	})
	if err == nil {
		return nil
	}

	s.logger.DebugContext(ctx, "kv store call failed", "op", op, "key", key, "error", err)
	return crerr.Mark(crerr.Wrapf(err, "kv %s %q", op, key), kv.ErrUnavailable)
}
