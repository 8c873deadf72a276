package residency

// TotalCapacity returns the device memory budget in bytes.
func (c *Controller) TotalCapacity() uint64 { return c.total }

// Committed returns device memory occupied by resident models. It is derived
// by summing resident footprints rather than tracked separately, so it
// cannot drift from the table.
func (c *Controller) Committed() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.residentBytesLocked()
}

// Available returns total minus committed.
func (c *Controller) Available() uint64 {
	committed := c.Committed()
	if committed >= c.total {
		return 0
	}
	return c.total - committed
}

// UsagePercent returns committed/total in percent, 0 when capacity is unknown.
func (c *Controller) UsagePercent() float64 {
	if c.total == 0 {
		return 0
	}
	return float64(c.Committed()) / float64(c.total) * 100
}

// residentBytesLocked sums footprints of RESIDENT records. Caller holds c.mu.
func (c *Controller) residentBytesLocked() uint64 {
	var sum uint64
	for _, rec := range c.records {
		if rec.state == StateResident {
			sum += rec.footprint
		}
	}
	return sum
}

// projectedBytesLocked additionally counts LOADING reservations so two plans
// cannot double-book the same headroom. Caller holds c.mu.
func (c *Controller) projectedBytesLocked() uint64 {
	var sum uint64
	for _, rec := range c.records {
		if rec.state == StateResident || rec.state == StateLoading {
			sum += rec.footprint
		}
	}
	return sum
}

// usableBytes is the proactive-eviction ceiling: threshold * total. The gap
// to total leaves headroom for allocator fragmentation in the device runtime.
func (c *Controller) usableBytes() uint64 {
	return uint64(c.threshold * float64(c.total))
}
