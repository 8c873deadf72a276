package residency

import (
	"sort"
	"time"
)

// victimCandidate is a point-in-time view of one eviction-eligible record.
type victimCandidate struct {
	key        string
	footprint  uint64
	lastAccess time.Time
	fetchSeq   uint64
}

// candidatesLocked snapshots records with state RESIDENT and no outstanding
// leases. Caller holds c.mu.
func (c *Controller) candidatesLocked() []victimCandidate {
	var out []victimCandidate
	for _, rec := range c.records {
		if rec.state == StateResident && rec.refCount == 0 {
			out = append(out, victimCandidate{
				key:        rec.key,
				footprint:  rec.footprint,
				lastAccess: rec.lastAccess,
				fetchSeq:   rec.fetchSeq,
			})
		}
	}
	return out
}

// selectVictims picks a minimal LRU-ordered set of candidates whose combined
// footprint covers shortfall bytes. Ties on last access break by first-fetch
// order so eviction order is reproducible. Returns ok=false when the pool is
// exhausted before the shortfall is met; the caller must then fail the
// acquisition rather than partially evict.
//
// Pure function over the snapshot: no locks, no mutation. The controller
// applies the result under its own serialization and re-verifies each victim
// at execution time.
func selectVictims(shortfall uint64, candidates []victimCandidate) ([]victimCandidate, bool) {
	if shortfall == 0 {
		return nil, true
	}
	sorted := make([]victimCandidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].lastAccess.Equal(sorted[j].lastAccess) {
			return sorted[i].lastAccess.Before(sorted[j].lastAccess)
		}
		return sorted[i].fetchSeq < sorted[j].fetchSeq
	})
	var freed uint64
	for i, cand := range sorted {
		freed += cand.footprint
		if freed >= shortfall {
			return sorted[:i+1], true
		}
	}
	return nil, false
}
