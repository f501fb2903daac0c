package resilience_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/household-hub-bfa/internal/infra/resilience"

	"go.uber.org/zap"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_StopsOnPermanent(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return &resilience.Permanent{Err: errors.New("rejected")}
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_ZeroBackoff(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return errors.New("boom")
	})

	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: 1 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return errors.New("error")
	})

	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := bh.Acquire(ctx); err == nil {
		t.Fatal("expected timeout on third acquire")
	}

	bh.Release()

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}

func TestGuard_MutationsRunOnce(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxConcurrency: 4}
	g := resilience.NewGuard(resilience.NewCircuitBreaker("test", zap.NewNop()), cfg)

	var calls int32
	err := g.Do(context.Background(), false, func() error {
		atomic.AddInt32(&calls, 1)
		return errors.New("backend down")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestGuard_ReadsAreRetried(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 4}
	g := resilience.NewGuard(resilience.NewCircuitBreaker("test", zap.NewNop()), cfg)

	var calls int32
	err := g.Do(context.Background(), true, func() error {
		if atomic.AddInt32(&calls, 1) < 2 {
			return errors.New("flaky")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestGuard_UnwrapsPermanent(t *testing.T) {
	cfg := resilience.Config{MaxConcurrency: 1}
	g := resilience.NewGuard(resilience.NewCircuitBreaker("test", zap.NewNop()), cfg)

	sentinel := errors.New("status 0")
	err := g.Do(context.Background(), true, func() error {
		return &resilience.Permanent{Err: sentinel}
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	var perm *resilience.Permanent
	if errors.As(err, &perm) {
		t.Error("expected Permanent wrapper to be removed")
	}
}

func TestGuard_OpensAfterFailures(t *testing.T) {
	cfg := resilience.Config{MaxConcurrency: 1}
	g := resilience.NewGuard(resilience.NewCircuitBreaker("test", zap.NewNop()), cfg)

	for i := 0; i < 5; i++ {
		_ = g.Do(context.Background(), false, func() error { return errors.New("down") })
	}

	err := g.Do(context.Background(), false, func() error { return nil })
	if !errors.Is(err, resilience.ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
}
