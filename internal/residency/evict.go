package residency

// reserveForLoad makes the capacity-check-then-commit sequence atomic with
// respect to other keys' concurrent evictions: under planMu it checks the
// threshold, evicts LRU victims as needed, and reserves the load by moving
// rec to LOADING. It fails fast with InsufficientCapacity instead of
// waiting on other keys' in-flight acquisitions.
func (c *Controller) reserveForLoad(rec *record, required uint64) error {
	c.planMu.Lock()
	defer c.planMu.Unlock()
	usable := c.usableBytes()
	for {
		c.mu.Lock()
		projected := c.projectedBytesLocked() + required
		if projected <= usable {
			rec.state = StateLoading
			c.updateResidencyGaugesLocked()
			c.mu.Unlock()
			return nil
		}
		shortfall := projected - usable
		snap := c.candidatesLocked()
		c.mu.Unlock()

		victims, ok := selectVictims(shortfall, snap)
		if !ok {
			var freeable uint64
			for _, cand := range snap {
				freeable += cand.footprint
			}
			available := usable + freeable
			if projected-required < available {
				available -= projected - required
			} else {
				available = 0
			}
			return ErrInsufficientCapacity(rec.key, required, available)
		}
		c.executeEviction(victims)
		// Victims that raced into a new lease were skipped; loop with a
		// fresh snapshot.
	}
}

// executeEviction evicts the selected victims, re-verifying immediately
// before release that each still has no outstanding leases. Returns the
// number actually evicted.
//
// Each victim's serialization token is held across the EVICTING window, so
// a concurrent acquisition of the same key waits for the eviction to finish
// instead of observing a mid-transition state. A victim whose token is
// already taken has an acquisition in flight and is skipped like a raced
// lease.
func (c *Controller) executeEviction(victims []victimCandidate) int {
	evicted := 0
	for _, v := range victims {
		c.mu.RLock()
		rec := c.records[v.key]
		c.mu.RUnlock()
		if rec == nil {
			continue
		}
		select {
		case rec.serial <- struct{}{}:
		default:
			c.publish("evict_skip", v.key, nil)
			continue
		}

		c.mu.Lock()
		if rec.state != StateResident || rec.refCount != 0 {
			// a lease raced in between selection and execution
			c.mu.Unlock()
			<-rec.serial
			c.publish("evict_skip", v.key, nil)
			continue
		}
		rec.state = StateEvicting
		handle := rec.handle
		rec.handle = nil
		c.mu.Unlock()

		c.runtime.Release(handle)

		c.mu.Lock()
		// device memory freed; disk cache and disk path retained
		rec.state = StateAbsent
		c.updateResidencyGaugesLocked()
		c.mu.Unlock()
		<-rec.serial

		evicted++
		c.evictionsTotal.Add(1)
		evictionsTotalCounter.Inc()
		c.log.Info().Str("model", v.key).Uint64("freed_bytes", v.footprint).Msg("evicted")
		c.publish("evict", v.key, map[string]any{"freed_bytes": v.footprint})
	}
	return evicted
}

// discardIdleResident evicts rec in place when it is resident and idle.
// Used by AcquireFresh under the per-key token.
func (c *Controller) discardIdleResident(rec *record) {
	c.mu.Lock()
	if rec.state != StateResident || rec.refCount != 0 {
		c.mu.Unlock()
		return
	}
	rec.state = StateEvicting
	handle := rec.handle
	rec.handle = nil
	c.mu.Unlock()

	c.runtime.Release(handle)

	c.mu.Lock()
	rec.state = StateAbsent
	c.updateResidencyGaugesLocked()
	c.mu.Unlock()

	c.evictionsTotal.Add(1)
	evictionsTotalCounter.Inc()
	c.publish("evict", rec.key, map[string]any{"reason": "force_reload"})
}

// Purge unconditionally evicts every resident model with no outstanding
// leases and returns the count. Manual reclamation, distinct from the lazy
// threshold-triggered eviction in the acquire path.
func (c *Controller) Purge() int {
	c.planMu.Lock()
	defer c.planMu.Unlock()

	c.mu.Lock()
	snap := c.candidatesLocked()
	c.mu.Unlock()

	n := c.executeEviction(snap)
	c.log.Info().Int("evicted", n).Msg("purge complete")
	c.publish("purge", "", map[string]any{"evicted": n})
	return n
}
