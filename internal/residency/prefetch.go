package residency

import "context"

// Prefetch downloads and verifies key into the disk cache without loading it
// into device memory. Returns the cache path and whether a download ran
// (false when the cache already held the artifact). Serialized with
// acquisitions on the same key.
func (c *Controller) Prefetch(ctx context.Context, key string) (string, bool, error) {
	rec := c.getOrCreate(key)

	select {
	case rec.serial <- struct{}{}:
	case <-ctx.Done():
		return "", false, classifyCtxErr(ctx, key, "prefetch")
	}
	defer func() { <-rec.serial }()

	c.mu.Lock()
	if rec.diskPath != "" {
		path := rec.diskPath
		c.mu.Unlock()
		return path, false, nil
	}
	prev := rec.state
	if prev != StateAbsent {
		c.mu.Unlock()
		return "", false, ErrInvariantViolation("prefetch of " + key + " found mid-transition state " + string(prev))
	}
	rec.state = StateFetching
	c.mu.Unlock()

	if err := c.fetch(ctx, rec); err != nil {
		return "", false, err
	}
	c.setState(rec, StateAbsent)

	c.mu.RLock()
	path := rec.diskPath
	c.mu.RUnlock()
	return path, true, nil
}
