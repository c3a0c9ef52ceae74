package client

import (
	"context"
	"sync"
)

type refreshResult struct {
	accessToken string
	err         error
}

// Coalescer collapses concurrent refresh attempts into one rotation. The
// first caller becomes the leader and performs the refresh; callers arriving
// while it runs queue up and receive the leader's outcome. This matters
// because each refresh consumes the stored token: two independent refreshes
// with the same token would look like reuse and burn the session.
type Coalescer struct {
	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult

	// lastToken is the access token produced by the most recent successful
	// rotation. A caller whose stale token predates it gets lastToken back
	// without triggering another rotation.
	lastToken string

	refreshFn func(ctx context.Context) (string, error)
}

// NewCoalescer wraps refreshFn, which performs one actual rotation and
// returns the new access token.
func NewCoalescer(refreshFn func(ctx context.Context) (string, error)) *Coalescer {
	return &Coalescer{refreshFn: refreshFn}
}

// Refresh returns a fresh access token. staleAccess is the token the caller
// just saw rejected; if a rotation already replaced it, the replacement is
// returned immediately. Pass "" to force a rotation.
//
// Waiters honor their own context: a caller whose deadline expires stops
// waiting, but the rotation itself continues.
func (c *Coalescer) Refresh(ctx context.Context, staleAccess string) (string, error) {
	c.mu.Lock()
	if staleAccess != "" && c.lastToken != "" && c.lastToken != staleAccess {
		token := c.lastToken
		c.mu.Unlock()
		return token, nil
	}
	if c.refreshing {
		ch := make(chan refreshResult, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		select {
		case res := <-ch:
			return res.accessToken, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	token, err := c.refreshFn(ctx)

	c.mu.Lock()
	if err == nil {
		c.lastToken = token
	}
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	// Buffered channels: delivery cannot block on a waiter that gave up.
	for _, ch := range waiters {
		ch <- refreshResult{accessToken: token, err: err}
	}
	return token, err
}
