// Package ratelimit paces outbound provider calls and backs off after
// rate-limit signals. One Limiter is shared by every loop talking to the same
// provider account.
package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Clock abstracts time so pacing can be tested without sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Config controls pacing and backoff.
type Config struct {
	Window             time.Duration
	ProactiveThreshold int
	MinGap             time.Duration
	MaxProactiveDelay  time.Duration
	BackoffLadder      []time.Duration
}

// DefaultConfig returns the standard 60 second window with a threshold of 25
// calls and a 2s..60s backoff ladder.
func DefaultConfig() Config {
	return Config{
		Window:             60 * time.Second,
		ProactiveThreshold: 25,
		MinGap:             250 * time.Millisecond,
		MaxProactiveDelay:  5 * time.Second,
		BackoffLadder: []time.Duration{
			2 * time.Second,
			5 * time.Second,
			10 * time.Second,
			20 * time.Second,
			30 * time.Second,
			60 * time.Second,
		},
	}
}

// Reason says why a wait was imposed.
type Reason string

const (
	ReasonCooldown  Reason = "cooldown"
	ReasonProactive Reason = "proactive"
	ReasonMinGap    Reason = "min_gap"
)

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithLogger sets the logger used for wait and backoff notices.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// WithWaitObserver registers a callback invoked before every imposed wait.
func WithWaitObserver(fn func(reason Reason, d time.Duration)) Option {
	return func(l *Limiter) { l.onWait = fn }
}

// Limiter holds the sliding window, backoff level and hard cooldown.
// All state changes happen under mu.
type Limiter struct {
	cfg    Config
	clock  Clock
	logger *slog.Logger
	onWait func(Reason, time.Duration)

	mu             sync.Mutex
	calls          []time.Time
	lastCall       time.Time
	backoffLevel   int
	nextAllowedAt  time.Time
	proactiveWaits int64
	totalWaited    time.Duration
}

// New creates a Limiter. Zero fields in cfg fall back to DefaultConfig.
func New(cfg Config, opts ...Option) *Limiter {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.ProactiveThreshold <= 0 {
		cfg.ProactiveThreshold = def.ProactiveThreshold
	}
	if cfg.MaxProactiveDelay <= 0 {
		cfg.MaxProactiveDelay = def.MaxProactiveDelay
	}
	if len(cfg.BackoffLadder) == 0 {
		cfg.BackoffLadder = def.BackoffLadder
	}

	l := &Limiter{
		cfg:    cfg,
		clock:  realClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Wait blocks until a provider call may start and records it in the window.
// It returns how long it waited. The wait is abandoned when ctx is done.
func (l *Limiter) Wait(ctx context.Context) (time.Duration, error) {
	var waited time.Duration
	paced := false

	for {
		if err := ctx.Err(); err != nil {
			return waited, err
		}

		l.mu.Lock()
		now := l.clock.Now()
		l.prune(now)
		delay, reason := l.delay(now, paced)
		if delay <= 0 {
			l.calls = append(l.calls, now)
			l.lastCall = now
			l.totalWaited += waited
			l.mu.Unlock()
			return waited, nil
		}
		if reason == ReasonProactive {
			l.proactiveWaits++
			paced = true
		}
		l.mu.Unlock()

		if reason != ReasonMinGap {
			l.logger.Info("rate limiter delaying call", "reason", string(reason), "wait", delay)
		}
		if l.onWait != nil {
			l.onWait(reason, delay)
		}

		select {
		case <-ctx.Done():
			return waited, ctx.Err()
		case <-l.clock.After(delay):
		}
		waited += delay
	}
}

// delay must be called with mu held.
func (l *Limiter) delay(now time.Time, paced bool) (time.Duration, Reason) {
	if now.Before(l.nextAllowedAt) {
		return l.nextAllowedAt.Sub(now), ReasonCooldown
	}

	if !paced && len(l.calls) >= l.cfg.ProactiveThreshold && len(l.calls) > 1 {
		span := l.calls[len(l.calls)-1].Sub(l.calls[0])
		avgGap := span / time.Duration(len(l.calls)-1)
		desired := l.cfg.Window / time.Duration(l.cfg.ProactiveThreshold)
		if avgGap < desired {
			d := min(desired-now.Sub(l.lastCall), l.cfg.MaxProactiveDelay)
			if d > 0 {
				return d, ReasonProactive
			}
		}
	}

	if !l.lastCall.IsZero() {
		if d := l.cfg.MinGap - now.Sub(l.lastCall); d > 0 {
			return d, ReasonMinGap
		}
	}
	return 0, ""
}

func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.cfg.Window)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}

// ReportSuccess resets the backoff level.
func (l *Limiter) ReportSuccess() {
	l.mu.Lock()
	l.backoffLevel = 0
	l.mu.Unlock()
}

// HandleError records a rate-limit failure and returns the recommended wait.
// A retry-after hint carried by err wins over the backoff ladder. Either way
// no call is permitted before the returned duration has elapsed.
func (l *Limiter) HandleError(err error) time.Duration {
	hint := RetryAfter(err)

	l.mu.Lock()
	defer l.mu.Unlock()

	wait := hint
	if wait <= 0 {
		wait = l.cfg.BackoffLadder[min(l.backoffLevel, len(l.cfg.BackoffLadder)-1)]
	}
	if l.backoffLevel < len(l.cfg.BackoffLadder)-1 {
		l.backoffLevel++
	}

	until := l.clock.Now().Add(wait)
	if until.After(l.nextAllowedAt) {
		l.nextAllowedAt = until
	}
	l.logger.Warn("rate limited by provider", "wait", wait, "backoff_level", l.backoffLevel, "hinted", hint > 0)
	return wait
}

// Stats is a snapshot of limiter state.
type Stats struct {
	WindowCount       int
	BackoffLevel      int
	CooldownRemaining time.Duration
	ProactiveWaits    int64
	TotalWaited       time.Duration
}

// Stats returns the current state.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.prune(now)
	var cooldown time.Duration
	if now.Before(l.nextAllowedAt) {
		cooldown = l.nextAllowedAt.Sub(now)
	}
	return Stats{
		WindowCount:       len(l.calls),
		BackoffLevel:      l.backoffLevel,
		CooldownRemaining: cooldown,
		ProactiveWaits:    l.proactiveWaits,
		TotalWaited:       l.totalWaited,
	}
}

var retryAfterPattern = regexp.MustCompile(`(?i)(?:retry[- _]after|try again in|retry in)["':=\s]*(\d+(?:\.\d+)?)\s*(ms|milliseconds?|s|sec|seconds?|m|min|minutes?)?\b`)

// RetryAfter extracts a retry-after hint from err. Errors may carry one via a
// RetryAfter() method; otherwise the message is searched. Zero means no hint.
func RetryAfter(err error) time.Duration {
	if err == nil {
		return 0
	}
	var hinted interface{ RetryAfter() time.Duration }
	if errors.As(err, &hinted) {
		if d := hinted.RetryAfter(); d > 0 {
			return d
		}
	}

	m := retryAfterPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	v, perr := strconv.ParseFloat(m[1], 64)
	if perr != nil || v <= 0 {
		return 0
	}
	unit := time.Second
	switch u := strings.ToLower(m[2]); {
	case strings.HasPrefix(u, "ms"), strings.HasPrefix(u, "milli"):
		unit = time.Millisecond
	case u == "m", strings.HasPrefix(u, "min"):
		unit = time.Minute
	}
	return time.Duration(v * float64(unit))
}
