package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Cyclone1070/agentcore/internal/provider"
	"github.com/Cyclone1070/agentcore/internal/ratelimit"
	"github.com/Cyclone1070/agentcore/internal/workflow"
)

// ErrNoResponse is returned when a provider returns neither a response nor an error.
var ErrNoResponse = errors.New("provider returned no response")

// RunError is returned when a run stops on an unrecoverable provider failure.
type RunError struct {
	Kind     provider.ErrorKind
	Attempts int
	Err      error
}

func (e *RunError) Error() string {
	switch e.Kind {
	case provider.KindCreditExhausted:
		return fmt.Sprintf("provider credits exhausted: %v. Add credits to the account or switch API key/provider, then run again", e.Err)
	case provider.KindRateLimit:
		return fmt.Sprintf("still rate limited after %d attempts: %v", e.Attempts, e.Err)
	case provider.KindTransient:
		return fmt.Sprintf("provider unavailable after %d attempts: %v", e.Attempts, e.Err)
	default:
		return fmt.Sprintf("provider call failed: %v", e.Err)
	}
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// complete calls the provider through the rate limiter, retrying rate limits
// and transient failures a bounded number of times. Credit exhaustion and
// permanent failures are returned at once.
func (l *Loop) complete(r *run, msgs []provider.Message) (*provider.Response, error) {
	transient, limited := 0, 0
	for {
		if l.limiter != nil {
			if _, err := l.limiter.Wait(r.ctx); err != nil {
				return nil, errAbort
			}
		}

		resp, err := l.provider.CompleteWithTools(r.ctx, msgs, l.cfg.SystemPrompt, r.decls)
		if err == nil {
			if resp == nil {
				return nil, &RunError{Kind: provider.KindPermanent, Attempts: transient + limited + 1, Err: ErrNoResponse}
			}
			if l.limiter != nil {
				l.limiter.ReportSuccess()
			}
			return resp, nil
		}

		if r.token.Aborted() || r.ctx.Err() != nil {
			return nil, errAbort
		}

		kind := provider.Classify(err)
		switch kind {
		case provider.KindCancelled:
			return nil, errAbort
		case provider.KindCreditExhausted:
			return nil, &RunError{Kind: kind, Attempts: transient + limited + 1, Err: err}
		case provider.KindRateLimit:
			limited++
			if limited > l.cfg.RateLimitRetries {
				return nil, &RunError{Kind: kind, Attempts: limited, Err: err}
			}
			wait := l.backoff(err)
			l.logger.Warn("provider rate limited, backing off", "attempt", limited, "wait", wait, "error", err)
			l.emit(workflow.NoticeEvent{Kind: workflow.NoticeRateLimit, Message: fmt.Sprintf("rate limited, retrying in %s", wait), Wait: wait})
			if l.limiter == nil {
				if err := sleep(r.ctx, wait); err != nil {
					return nil, errAbort
				}
			}
		case provider.KindTransient:
			transient++
			if transient > l.cfg.TransientRetries {
				return nil, &RunError{Kind: kind, Attempts: transient, Err: err}
			}
			l.logger.Warn("provider call failed, retrying", "attempt", transient, "wait", l.cfg.RetryDelay, "error", err)
			l.emit(workflow.NoticeEvent{Kind: workflow.NoticeRetry, Message: fmt.Sprintf("provider error, retrying (%d/%d)", transient, l.cfg.TransientRetries), Wait: l.cfg.RetryDelay})
			if err := sleep(r.ctx, l.cfg.RetryDelay); err != nil {
				return nil, errAbort
			}
		default:
			return nil, &RunError{Kind: kind, Attempts: transient + limited + 1, Err: err}
		}
	}
}

// backoff records a rate limit with the limiter, which then holds the next
// Wait. Without a limiter the server's hint or the retry delay is used.
func (l *Loop) backoff(err error) time.Duration {
	if l.limiter != nil {
		return l.limiter.HandleError(err)
	}
	if d := ratelimit.RetryAfter(err); d > 0 {
		return d
	}
	return l.cfg.RetryDelay
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
