// Package interrupt lets an operator pause, resume and abort a running agent
// loop. Pausing only holds the loop at its next step boundary; aborting also
// cancels the token's context so in-flight provider calls unblock at once.
package interrupt

import (
	"context"
	"errors"
	"sync"
)

// ErrAborted is returned by CheckPause once the token has been aborted.
var ErrAborted = errors.New("run aborted")

// Token is the state shared between a controller and one run.
// Once aborted it stays aborted.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	paused  bool
	aborted bool
	resume  chan struct{}
}

// NewToken creates a live token whose context is derived from parent.
func NewToken(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{ctx: ctx, cancel: cancel}
}

// Context is cancelled when the token is aborted or its parent is done.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Pause makes the next CheckPause block. No effect once aborted.
func (t *Token) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.aborted || t.paused {
		return
	}
	t.paused = true
	t.resume = make(chan struct{})
}

// Resume releases anyone blocked in CheckPause.
func (t *Token) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.paused {
		return
	}
	t.paused = false
	close(t.resume)
	t.resume = nil
}

// Abort is idempotent. It clears the pause, releases the pending waiter and
// cancels the token's context.
func (t *Token) Abort() {
	t.mu.Lock()
	if t.aborted {
		t.mu.Unlock()
		return
	}
	t.aborted = true
	if t.paused {
		t.paused = false
		close(t.resume)
		t.resume = nil
	}
	t.mu.Unlock()
	t.cancel()
}

// Aborted reports whether Abort was called or the parent context ended.
func (t *Token) Aborted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aborted || t.ctx.Err() != nil
}

// Paused reports whether the token is currently paused.
func (t *Token) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// CheckPause returns immediately when running, blocks while paused and
// returns ErrAborted if the token is or becomes aborted. ctx bounds the wait.
func (t *Token) CheckPause(ctx context.Context) error {
	for {
		t.mu.Lock()
		if t.aborted || t.ctx.Err() != nil {
			t.mu.Unlock()
			return ErrAborted
		}
		if !t.paused {
			t.mu.Unlock()
			return nil
		}
		wait := t.resume
		t.mu.Unlock()

		select {
		case <-wait:
		case <-t.ctx.Done():
			return ErrAborted
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Controller is the operator-facing side. It hands out one token per run.
type Controller struct {
	parent context.Context

	mu    sync.Mutex
	token *Token
}

// NewController creates a controller with a fresh token.
func NewController(parent context.Context) *Controller {
	return &Controller{parent: parent, token: NewToken(parent)}
}

// Token returns the current token.
func (c *Controller) Token() *Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Controller) Pause()  { c.Token().Pause() }
func (c *Controller) Resume() { c.Token().Resume() }
func (c *Controller) Abort()  { c.Token().Abort() }

// Reset aborts the current token if it is still live and installs a fresh one
// for the next run.
func (c *Controller) Reset() *Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token.Abort()
	c.token = NewToken(c.parent)
	return c.token
}
