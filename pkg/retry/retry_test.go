package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewTokenBucket(t *testing.T) {
	tests := []struct {
		name    string
		opType  OperationType
		config  *Config
		wantErr bool
	}{
		{name: "default ref-lock config", opType: OpRefLock, config: nil, wantErr: false},
		{name: "default step-retry config", opType: OpStepRetry, config: nil, wantErr: false},
		{
			name:   "custom config",
			opType: OpRefLock,
			config: &Config{Rate: 10, Burst: 10, Interval: time.Second, MaxRetries: 2,
				InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffMultiplier: 2.0},
			wantErr: false,
		},
		{
			name:    "invalid rate",
			opType:  OpRefLock,
			config:  &Config{Rate: 0, Burst: 10, Interval: time.Second, BackoffMultiplier: 1},
			wantErr: true,
		},
		{
			name:    "invalid backoff multiplier",
			opType:  OpRefLock,
			config:  &Config{Rate: 1, Burst: 1, Interval: time.Second, BackoffMultiplier: 0.5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenBucket(tt.opType, tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewTokenBucket() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenBucketAllowExhaustsBurst(t *testing.T) {
	tb, err := NewTokenBucket(OpRefLock, &Config{
		Rate: 1, Burst: 2, Interval: time.Hour, BackoffMultiplier: 1,
	})
	if err != nil {
		t.Fatalf("NewTokenBucket() error: %v", err)
	}

	if !tb.Allow() || !tb.Allow() {
		t.Fatal("expected the first two requests within burst to be allowed")
	}
	if tb.Allow() {
		t.Fatal("expected the third request to be denied once burst is exhausted")
	}

	stats := tb.Stats()
	if stats.AllowedRequests != 2 || stats.DeniedRequests != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestTokenBucketWaitRespectsContextCancellation(t *testing.T) {
	tb, err := NewTokenBucket(OpRefLock, &Config{
		Rate: 1, Burst: 1, Interval: time.Hour, BackoffMultiplier: 1,
	})
	if err != nil {
		t.Fatalf("NewTokenBucket() error: %v", err)
	}
	tb.Allow() // exhaust the single token

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := tb.Wait(ctx); !errors.Is(err, ErrContextCanceled) {
		t.Fatalf("expected ErrContextCanceled, got %v", err)
	}
}

func TestExecuteWithRetrySucceedsAfterContention(t *testing.T) {
	tb, err := NewTokenBucket(OpRefLock, &Config{
		Rate: 1000, Burst: 1000, Interval: time.Second, MaxRetries: 3,
		InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, BackoffMultiplier: 2,
	})
	if err != nil {
		t.Fatalf("NewTokenBucket() error: %v", err)
	}

	errContention := errors.New("ref lock contended")
	attempts := 0
	err = tb.ExecuteWithRetry(context.Background(), func(e error) bool { return errors.Is(e, errContention) }, func() error {
		attempts++
		if attempts < 3 {
			return errContention
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithRetry() error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}

	stats := tb.Stats()
	if stats.SuccessfulRetries != 1 {
		t.Fatalf("expected one successful retry recorded, got %d", stats.SuccessfulRetries)
	}
}

func TestExecuteWithRetryPropagatesNonRetryableError(t *testing.T) {
	tb, err := NewTokenBucket(OpRefLock, &Config{
		Rate: 10, Burst: 10, Interval: time.Second, MaxRetries: 3,
		InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, BackoffMultiplier: 2,
	})
	if err != nil {
		t.Fatalf("NewTokenBucket() error: %v", err)
	}

	errFatal := errors.New("malformed query")
	attempts := 0
	err = tb.ExecuteWithRetry(context.Background(), func(error) bool { return false }, func() error {
		attempts++
		return errFatal
	})
	if !errors.Is(err, errFatal) {
		t.Fatalf("expected errFatal to propagate unwrapped, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one attempt for a non-retryable error, got %d", attempts)
	}
}

func TestGroupGetOrCreateReusesLimiter(t *testing.T) {
	g := NewGroup()
	a, err := g.GetOrCreate(OpQueueEnqueue)
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	b, err := g.GetOrCreate(OpQueueEnqueue)
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	if a != b {
		t.Fatal("expected GetOrCreate to return the same limiter instance for the same operation type")
	}
}
