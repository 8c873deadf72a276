package residency

import (
	"context"
	"errors"
	"time"
)

// Acquire drives key to RESIDENT and returns a reference-counted Lease.
// Concurrent acquisitions for the same key are serialized by a per-key
// token; callers for different keys proceed independently. All failures
// surface as typed outcomes (fetch, load, capacity, timeout).
func (c *Controller) Acquire(ctx context.Context, key string) (*Lease, error) {
	return c.acquire(ctx, key, false)
}

// AcquireFresh first discards an idle resident copy of key so the load runs
// again from the disk cache. A copy held by outstanding leases is not
// discarded; the existing residency is reused instead.
func (c *Controller) AcquireFresh(ctx context.Context, key string) (*Lease, error) {
	return c.acquire(ctx, key, true)
}

func (c *Controller) acquire(ctx context.Context, key string, fresh bool) (*Lease, error) {
	start := c.clock()
	rec := c.getOrCreate(key)
	c.publish("acquire_start", key, nil)

	// Per-key serialization token. Waiters that abandon their request here
	// never touch the record.
	select {
	case rec.serial <- struct{}{}:
	case <-ctx.Done():
		return nil, classifyCtxErr(ctx, key, "acquire")
	}
	defer func() { <-rec.serial }()

	if fresh {
		c.discardIdleResident(rec)
	}

	c.mu.Lock()
	switch rec.state {
	case StateResident:
		rec.refCount++
		rec.lastAccess = c.clock()
		lease := c.newLeaseLocked(rec)
		c.mu.Unlock()
		return lease, nil
	case StateAbsent:
	default:
		// The serialization token guarantees no other transition is in
		// flight for this key: fetch, load and eviction all run with the
		// token held. Anything but ABSENT/RESIDENT here is a bug.
		st := rec.state
		c.mu.Unlock()
		return nil, ErrInvariantViolation("acquire of " + key + " found mid-transition state " + string(st))
	}
	needFetch := rec.diskPath == ""
	if needFetch {
		rec.state = StateFetching
	}
	c.mu.Unlock()

	if needFetch {
		if err := c.fetch(ctx, rec); err != nil {
			return nil, err
		}
	}

	required := rec.footprint
	if required == 0 {
		// unknown estimate: never bypass the capacity check entirely
		required = 1
	}
	if err := c.reserveForLoad(rec, required); err != nil {
		c.setState(rec, StateAbsent)
		c.publish("acquire_capacity_fail", key, map[string]any{"error": err.Error()})
		return nil, err
	}

	lease, err := c.load(ctx, rec)
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("model", key).Dur("dur", c.clock().Sub(start)).Msg("acquire ready")
	c.publish("acquire_ready", key, map[string]any{"dur_ms": int(c.clock().Sub(start) / time.Millisecond)})
	return lease, nil
}

// fetch delegates to the coordinator; on success the verified disk path and
// declared size land on the record. The record returns to ABSENT on every
// failure so a later acquisition can retry cleanly.
func (c *Controller) fetch(ctx context.Context, rec *record) error {
	c.publish("fetch_start", rec.key, nil)
	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	path, size, err := c.fetcher.Fetch(fctx, rec.key)
	if err != nil {
		c.setState(rec, StateAbsent)
		c.publish("fetch_fail", rec.key, map[string]any{"error": err.Error()})
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return classifyCtxErr(ctx, rec.key, "fetch")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout(rec.key, "fetch")
		}
		return err
	}

	c.mu.Lock()
	rec.diskPath = path
	if !rec.pinned && size > 0 {
		rec.footprint = size
	}
	if rec.fetchSeq == 0 {
		rec.fetchSeq = c.fetchSeq.Add(1)
	}
	c.mu.Unlock()
	fetchesTotalCounter.Inc()
	c.publish("fetch_done", rec.key, map[string]any{"bytes": size})
	return nil
}

// load places the model into device memory and commits it as RESIDENT with
// ref_count 1. The measured footprint pins the record on first success.
func (c *Controller) load(ctx context.Context, rec *record) (*Lease, error) {
	c.publish("load_start", rec.key, nil)
	lctx, cancel := context.WithTimeout(ctx, c.loadTimeout)
	defer cancel()

	handle, err := c.runtime.Load(lctx, rec.key, rec.diskPath)
	if err != nil {
		c.mu.Lock()
		rec.state = StateAbsent
		if isDiskSideLoadFailure(err) {
			// corrupt weights: drop the cache reference so the next
			// acquisition re-fetches
			rec.diskPath = ""
		}
		c.updateResidencyGaugesLocked()
		c.mu.Unlock()
		c.publish("load_fail", rec.key, map[string]any{"error": err.Error()})
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, classifyCtxErr(ctx, rec.key, "load")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout(rec.key, "load")
		}
		if IsLoadFailed(err) {
			return nil, err
		}
		return nil, ErrLoadFailed(rec.key, err.Error())
	}

	c.mu.Lock()
	rec.handle = handle
	if m := handle.FootprintBytes(); m > 0 && !rec.pinned {
		rec.footprint = m
		rec.pinned = true
	}
	rec.state = StateResident
	rec.refCount = 1
	rec.lastAccess = c.clock()
	c.updateResidencyGaugesLocked()
	lease := c.newLeaseLocked(rec)
	c.mu.Unlock()

	c.loadsTotal.Add(1)
	loadsTotalCounter.Inc()
	c.publish("load_ready", rec.key, map[string]any{"footprint_bytes": rec.footprint})
	return lease, nil
}

func (c *Controller) setState(rec *record, s State) {
	c.mu.Lock()
	rec.state = s
	c.updateResidencyGaugesLocked()
	c.mu.Unlock()
}

// classifyCtxErr distinguishes a bounded-wait violation from a caller that
// simply went away.
func classifyCtxErr(ctx context.Context, key, op string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout(key, op)
	}
	return ctx.Err()
}
