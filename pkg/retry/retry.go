// Package retry provides bounded-retry infrastructure: one token-bucket
// limiter per operation type, with default settings for Git ref locks,
// workflow step retries, hook queue enqueues and HTTP step requests.
// In this module only the HTTP step handler calls it (Wait with
// OpHTTPRequest); ref-lock acquisition, step `onError: retry(n,
// backoffMs)` and queue admission do not go through this package.
// It implements a token bucket with exponential backoff,
// the same shape as the rate limiter this package replaces, repointed
// at our own retryable operations instead of GitHub API calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gitvan-dev/gitvan/pkg/logger"
)

var log = logger.New("retry:limiter")

// Common errors returned by the limiter.
var (
	ErrRateLimitExceeded = errors.New("retry budget exceeded")
	ErrContextCanceled   = errors.New("context canceled while waiting for retry budget")
	ErrInvalidConfig     = errors.New("invalid retry limiter configuration")
)

// OperationType identifies a class of retryable operation, each with
// its own token bucket and backoff schedule.
type OperationType string

const (
	// OpRefLock is acquiring a Git ref lock for receipt writes (spec §7).
	OpRefLock OperationType = "ref-lock"
	// OpStepRetry is a workflow step's own onError: retry(n, backoffMs).
	OpStepRetry OperationType = "step-retry"
	// OpQueueEnqueue is admitting a fired hook onto the bounded worker pool.
	OpQueueEnqueue OperationType = "queue-enqueue"
	// OpHTTPRequest is the HTTP step handler's outbound request.
	OpHTTPRequest OperationType = "http-request"
)

// Config holds configuration for one operation type's limiter.
type Config struct {
	Rate              float64
	Burst             int
	Interval          time.Duration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultConfigs provides sensible defaults per operation type.
var DefaultConfigs = map[OperationType]Config{
	OpRefLock: {
		Rate:              20,
		Burst:             20,
		Interval:          time.Minute,
		MaxRetries:        5,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
	},
	OpStepRetry: {
		Rate:              100,
		Burst:             100,
		Interval:          time.Minute,
		MaxRetries:        3,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	},
	OpQueueEnqueue: {
		Rate:              200,
		Burst:             200,
		Interval:          time.Minute,
		MaxRetries:        1,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
	},
	OpHTTPRequest: {
		Rate:              60,
		Burst:             60,
		Interval:          time.Minute,
		MaxRetries:        3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        time.Minute,
		BackoffMultiplier: 2.0,
	},
}

// Stats holds usage statistics for one limiter.
type Stats struct {
	mu                sync.RWMutex
	AllowedRequests   int64
	DeniedRequests    int64
	WaitingRequests   int64
	TotalWaitTime     time.Duration
	RetryAttempts     int64
	SuccessfulRetries int64
	FailedRetries     int64
}

// Clone returns a copy of the stats.
func (s *Stats) Clone() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		AllowedRequests:   s.AllowedRequests,
		DeniedRequests:    s.DeniedRequests,
		WaitingRequests:   s.WaitingRequests,
		TotalWaitTime:     s.TotalWaitTime,
		RetryAttempts:     s.RetryAttempts,
		SuccessfulRetries: s.SuccessfulRetries,
		FailedRetries:     s.FailedRetries,
	}
}

// TokenBucket implements a token bucket limiter for one operation type.
type TokenBucket struct {
	mu            sync.Mutex
	config        Config
	operationType OperationType
	tokens        float64
	lastRefill    time.Time
	stats         Stats
}

// NewTokenBucket creates a limiter for opType, using DefaultConfigs
// unless config is provided.
func NewTokenBucket(opType OperationType, config *Config) (*TokenBucket, error) {
	cfg := DefaultConfigs[opType]
	if config != nil {
		cfg = *config
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	log.Printf("creating limiter: operation=%s, rate=%.2f, burst=%d, interval=%v",
		opType, cfg.Rate, cfg.Burst, cfg.Interval)

	return &TokenBucket{
		config:        cfg,
		operationType: opType,
		tokens:        float64(cfg.Burst),
		lastRefill:    time.Now(),
	}, nil
}

func validateConfig(cfg Config) error {
	if cfg.Rate <= 0 {
		return fmt.Errorf("rate must be positive, got %.2f", cfg.Rate)
	}
	if cfg.Burst <= 0 {
		return fmt.Errorf("burst must be positive, got %d", cfg.Burst)
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", cfg.Interval)
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got %d", cfg.MaxRetries)
	}
	if cfg.BackoffMultiplier < 1.0 {
		return fmt.Errorf("backoff multiplier must be >= 1.0, got %.2f", cfg.BackoffMultiplier)
	}
	return nil
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	tokensToAdd := (elapsed.Seconds() / tb.config.Interval.Seconds()) * tb.config.Rate
	tb.tokens = math.Min(float64(tb.config.Burst), tb.tokens+tokensToAdd)
	tb.lastRefill = now
}

// Allow checks if a request is allowed and consumes a token if so.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens >= 1 {
		tb.tokens--
		tb.stats.mu.Lock()
		tb.stats.AllowedRequests++
		tb.stats.mu.Unlock()
		return true
	}

	tb.stats.mu.Lock()
	tb.stats.DeniedRequests++
	tb.stats.mu.Unlock()
	return false
}

// Wait blocks until a token is available or ctx is canceled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	tb.stats.mu.Lock()
	tb.stats.WaitingRequests++
	tb.stats.mu.Unlock()
	defer func() {
		tb.stats.mu.Lock()
		tb.stats.WaitingRequests--
		tb.stats.mu.Unlock()
	}()

	startWait := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ErrContextCanceled
		default:
			if tb.Allow() {
				tb.stats.mu.Lock()
				tb.stats.TotalWaitTime += time.Since(startWait)
				tb.stats.mu.Unlock()
				return nil
			}

			waitTime := tb.timeUntilNextToken()
			if waitTime > 0 {
				select {
				case <-ctx.Done():
					return ErrContextCanceled
				case <-time.After(waitTime):
				}
			}
		}
	}
}

func (tb *TokenBucket) timeUntilNextToken() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.tokens >= 1 {
		return 0
	}
	tokensNeeded := 1.0 - tb.tokens
	secondsNeeded := (tokensNeeded / tb.config.Rate) * tb.config.Interval.Seconds()
	return time.Duration(secondsNeeded * float64(time.Second))
}

// Backoff calculates the backoff duration for a given retry attempt.
func (tb *TokenBucket) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return tb.config.InitialBackoff
	}
	backoff := float64(tb.config.InitialBackoff) * math.Pow(tb.config.BackoffMultiplier, float64(attempt))
	if backoff > float64(tb.config.MaxBackoff) {
		return tb.config.MaxBackoff
	}
	return time.Duration(backoff)
}

// Stats returns a copy of the limiter's statistics.
func (tb *TokenBucket) Stats() Stats { return tb.stats.Clone() }

// OperationType returns the operation type this limiter is for.
func (tb *TokenBucket) OperationType() OperationType { return tb.operationType }

// ExecuteWithRetry executes fn, retrying with exponential backoff
// while fn returns ErrRateLimitExceeded or a contention-shaped error
// (e.g. gitbackend.ErrLockContended), up to config.MaxRetries times.
func (tb *TokenBucket) ExecuteWithRetry(ctx context.Context, isRetryable func(error) bool, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= tb.config.MaxRetries; attempt++ {
		if err := tb.Wait(ctx); err != nil {
			return err
		}

		if err := fn(); err != nil {
			lastErr = err

			if errors.Is(err, ErrRateLimitExceeded) || (isRetryable != nil && isRetryable(err)) {
				tb.stats.mu.Lock()
				tb.stats.RetryAttempts++
				tb.stats.mu.Unlock()

				if attempt < tb.config.MaxRetries {
					backoff := tb.Backoff(attempt)
					log.Printf("contention, backing off: operation=%s, attempt=%d, backoff=%v, error=%v",
						tb.operationType, attempt+1, backoff, err)

					select {
					case <-ctx.Done():
						return ErrContextCanceled
					case <-time.After(backoff):
						continue
					}
				}

				tb.stats.mu.Lock()
				tb.stats.FailedRetries++
				tb.stats.mu.Unlock()
				return fmt.Errorf("retry budget exhausted after %d attempts: %w", attempt+1, err)
			}

			return err
		}

		if attempt > 0 {
			tb.stats.mu.Lock()
			tb.stats.SuccessfulRetries++
			tb.stats.mu.Unlock()
			log.Printf("succeeded after retry: operation=%s, attempt=%d", tb.operationType, attempt+1)
		}
		return nil
	}

	tb.stats.mu.Lock()
	tb.stats.FailedRetries++
	tb.stats.mu.Unlock()
	return lastErr
}

// Group manages one limiter per operation type, created on demand.
type Group struct {
	mu       sync.RWMutex
	limiters map[OperationType]*TokenBucket
}

// NewGroup creates an empty limiter group.
func NewGroup() *Group {
	return &Group{limiters: make(map[OperationType]*TokenBucket)}
}

// GetOrCreate returns the limiter for opType, creating it with
// DefaultConfigs on first use.
func (g *Group) GetOrCreate(opType OperationType) (*TokenBucket, error) {
	g.mu.RLock()
	limiter, exists := g.limiters[opType]
	g.mu.RUnlock()
	if exists {
		return limiter, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if limiter, exists = g.limiters[opType]; exists {
		return limiter, nil
	}

	limiter, err := NewTokenBucket(opType, nil)
	if err != nil {
		return nil, err
	}
	g.limiters[opType] = limiter
	return limiter, nil
}

// AllStats returns statistics for every limiter created so far.
func (g *Group) AllStats() map[OperationType]Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make(map[OperationType]Stats)
	for opType, limiter := range g.limiters {
		result[opType] = limiter.Stats()
	}
	return result
}

// DefaultGroup is the process-wide limiter group behind the
// package-level Wait and ExecuteWithRetry.
var DefaultGroup = NewGroup()

// Wait waits for a token from the default group's limiter for opType.
func Wait(ctx context.Context, opType OperationType) error {
	limiter, err := DefaultGroup.GetOrCreate(opType)
	if err != nil {
		log.Printf("failed to get limiter: %v", err)
		return nil
	}
	return limiter.Wait(ctx)
}

// ExecuteWithRetry executes fn under the default group's limiter for opType.
func ExecuteWithRetry(ctx context.Context, opType OperationType, isRetryable func(error) bool, fn func() error) error {
	limiter, err := DefaultGroup.GetOrCreate(opType)
	if err != nil {
		log.Printf("failed to get limiter: %v", err)
		return fn()
	}
	return limiter.ExecuteWithRetry(ctx, isRetryable, fn)
}
