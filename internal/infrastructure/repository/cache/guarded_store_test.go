package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/perf-import/internal/domain/kv"
	basecache "github.com/riskibarqy/perf-import/internal/platform/cache"
	"github.com/riskibarqy/perf-import/internal/platform/logging"
	"github.com/riskibarqy/perf-import/internal/platform/resilience"
)

var _ kv.Store = (*GuardedStore)(nil)

type brokenStore struct {
	delay time.Duration
	err   error
	calls int
}

func (s *brokenStore) wait(ctx context.Context) error {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func (s *brokenStore) Get(ctx context.Context, _ string) ([]byte, bool, error) {
	return nil, false, s.wait(ctx)
}

func (s *brokenStore) Set(ctx context.Context, _ string, _ []byte, _ time.Duration) error {
	return s.wait(ctx)
}

func (s *brokenStore) Exists(ctx context.Context, _ string) (bool, error) {
	return false, s.wait(ctx)
}

func (s *brokenStore) Delete(ctx context.Context, _ string) error {
	return s.wait(ctx)
}

func (s *brokenStore) DeleteByPrefix(ctx context.Context, _ string) (int, error) {
	return 0, s.wait(ctx)
}

func (s *brokenStore) Healthy(context.Context) bool { return true }

func TestGuardedStore_Passthrough(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewGuardedStore(basecache.NewStore(), time.Second, resilience.DefaultCircuitBreakerConfig(), logging.NewNop())

	if err := store.Set(ctx, "perfmap:t1:fp:abc", []byte("{}"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := store.Get(ctx, "perfmap:t1:fp:abc")
	if err != nil || !ok || string(value) != "{}" {
		t.Fatalf("get: got=%q ok=%v err=%v", value, ok, err)
	}
	if exists, _ := store.Exists(ctx, "perfmap:t1:fp:abc"); !exists {
		t.Fatalf("expected key to exist")
	}
	deleted, err := store.DeleteByPrefix(ctx, "perfmap:t1:")
	if err != nil || deleted != 1 {
		t.Fatalf("delete: got=%d err=%v", deleted, err)
	}
	if !store.Healthy(ctx) {
		t.Fatalf("expected healthy store")
	}
}

func TestGuardedStore_TimeoutMarksUnavailable(t *testing.T) {
	t.Parallel()

	slow := &brokenStore{delay: time.Second}
	store := NewGuardedStore(slow, 20*time.Millisecond, resilience.DefaultCircuitBreakerConfig(), logging.NewNop())

	_, _, err := store.Get(context.Background(), "team_players:t1")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !crerr.Is(err, kv.ErrUnavailable) {
		t.Fatalf("expected kv.ErrUnavailable mark, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded cause, got %v", err)
	}
}

func TestGuardedStore_OpensBreaker(t *testing.T) {
	t.Parallel()

	failing := &brokenStore{err: errors.New("connection refused")}
	store := NewGuardedStore(failing, time.Second, resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	}, logging.NewNop())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := store.Set(ctx, "k", []byte("v"), 0); !crerr.Is(err, kv.ErrUnavailable) {
			t.Fatalf("call %d: expected unavailable, got %v", i, err)
		}
	}

	err := store.Set(ctx, "k", []byte("v"), 0)
	if !crerr.Is(err, resilience.ErrCircuitOpen) || !crerr.Is(err, kv.ErrUnavailable) {
		t.Fatalf("expected open breaker error, got %v", err)
	}
	if failing.calls != 2 {
		t.Fatalf("open breaker must not reach the store: calls=%d", failing.calls)
	}
	if store.Healthy(ctx) {
		t.Fatalf("expected unhealthy while breaker is open")
	}
	if got := store.BreakerStats().State; got != resilience.CircuitStateOpen {
		t.Fatalf("breaker state: got=%s want=%s", got, resilience.CircuitStateOpen)
	}
}

func TestGuardedStore_CallerCancelDoesNotTrip(t *testing.T) {
	t.Parallel()

	slow := &brokenStore{delay: time.Second}
	store := NewGuardedStore(slow, time.Second, resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	}, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Exists(ctx, "k"); err == nil {
		t.Fatalf("expected cancellation error")
	}
	if got := store.BreakerStats().State; got != resilience.CircuitStateClosed {
		t.Fatalf("breaker state after caller cancel: got=%s want=closed", got)
	}
}
