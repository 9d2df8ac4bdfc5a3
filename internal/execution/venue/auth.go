package venue

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// credentialRefresher funnels concurrent Authenticate callers through one
// in-flight refresh, per spec.md §4.10's single-flight requirement and
// the Design Notes' "Credential single-flight" pattern. Embedding this in
// each venue client keeps the refresh-coalescing logic in one place
// instead of three copies of a sync.Once-per-refresh dance.
type credentialRefresher struct {
	group singleflight.Group

	mu        sync.RWMutex
	expiresAt time.Time
}

// refreshIfNeeded calls refresh at most once across concurrent callers
// when the credential is missing or within skew of expiry. fn must be
// idempotent-safe to call repeatedly on a cold cache.
func (c *credentialRefresher) refreshIfNeeded(ctx context.Context, skew time.Duration, refresh func(ctx context.Context) (time.Time, error)) error {
	c.mu.RLock()
	fresh := !c.expiresAt.IsZero() && time.Now().Add(skew).Before(c.expiresAt)
	c.mu.RUnlock()
	if fresh {
		return nil
	}

	_, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		// Re-check after winning the singleflight race: another caller may
		// have refreshed while we were waiting to be scheduled.
		c.mu.RLock()
		stillFresh := !c.expiresAt.IsZero() && time.Now().Add(skew).Before(c.expiresAt)
		c.mu.RUnlock()
		if stillFresh {
			return nil, nil
		}

		expiresAt, refreshErr := refresh(ctx)
		if refreshErr != nil {
			return nil, refreshErr
		}
		c.mu.Lock()
		c.expiresAt = expiresAt
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

// forceExpire clears the cached expiry so the next call re-authenticates,
// used after an AuthError (401) to force a fresh credential before retry.
func (c *credentialRefresher) forceExpire() {
	c.mu.Lock()
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}
