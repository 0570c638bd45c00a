package core

// limiter.go bounds how many file parses run at once.
//
// Imports arriving over the API each acquire a slot before reading their
// file. When all slots are taken a request waits up to maxWait and then
// fails with ErrTooManyParses. WaitForDrain lets shutdown wait for the
// parses in flight.

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyParses is returned when no slot frees up within the wait time.
var ErrTooManyParses = errors.New("too many concurrent imports, please try again later")

const (
	DefaultMaxConcurrentParses = 4
	DefaultMaxWaitTime         = 30 * time.Second
)

// ParseLimiter bounds concurrent file parses with a weighted semaphore.
type ParseLimiter struct {
	sem     *semaphore.Weighted
	size    int
	maxWait time.Duration

	mu     sync.Mutex
	active int
	idle   chan struct{} // closed while active == 0
}

// NewParseLimiter allows at most maxConcurrent parses at once. Non-positive
// arguments select the defaults.
func NewParseLimiter(maxConcurrent int, maxWait time.Duration) *ParseLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentParses
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	idle := make(chan struct{})
	close(idle)
	return &ParseLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		size:    maxConcurrent,
		maxWait: maxWait,
		idle:    idle,
	}
}

// Acquire takes a slot, waiting at most the limiter's wait time.
// The caller must call Release when done.
func (l *ParseLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyParses
	}
	l.started()
	return nil
}

// TryAcquire takes a slot without blocking.
func (l *ParseLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.started()
	return true
}

func (l *ParseLimiter) started() {
	l.mu.Lock()
	if l.active == 0 {
		l.idle = make(chan struct{})
	}
	l.active++
	l.mu.Unlock()
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *ParseLimiter) Release() {
	l.mu.Lock()
	l.active--
	if l.active == 0 {
		close(l.idle)
	}
	l.mu.Unlock()
	l.sem.Release(1)
}

// ActiveCount returns the number of parses in flight.
func (l *ParseLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *ParseLimiter) MaxConcurrent() int { return l.size }

func (l *ParseLimiter) Available() int { return l.size - l.ActiveCount() }

// WaitForDrain blocks until no parse is in flight or ctx is done.
func (l *ParseLimiter) WaitForDrain(ctx context.Context) error {
	l.mu.Lock()
	idle := l.idle
	l.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LimiterStatus is a snapshot of the limiter for the status endpoint.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

func (l *ParseLimiter) Status() LimiterStatus {
	n := l.ActiveCount()
	return LimiterStatus{Active: n, Available: l.size - n, MaxConcurrent: l.size}
}
