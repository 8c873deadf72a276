package residency

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Lease is a reference-counted handle guaranteeing its model stays resident
// until released. Releasing is non-blocking and never triggers eviction;
// room is reclaimed lazily by a later acquisition that needs it.
type Lease struct {
	c        *Controller
	key      string
	id       string
	diskPath string
	released atomic.Bool
}

// newLeaseLocked builds a Lease for rec. Caller holds c.mu and has already
// bumped rec.refCount.
func (c *Controller) newLeaseLocked(rec *record) *Lease {
	return &Lease{c: c, key: rec.key, id: uuid.NewString(), diskPath: rec.diskPath}
}

// Key returns the model key this lease pins.
func (l *Lease) Key() string { return l.key }

// ID returns the unique lease id.
func (l *Lease) ID() string { return l.id }

// DiskPath returns the on-disk location of the model weights.
func (l *Lease) DiskPath() string { return l.diskPath }

// Release decrements the model's reference count. Releasing a lease twice
// or underflowing the count is an InvariantViolation: a concurrency bug,
// not a user-facing condition.
func (l *Lease) Release() error {
	if !l.released.CompareAndSwap(false, true) {
		return ErrInvariantViolation("lease " + l.id + " for " + l.key + " released twice")
	}
	c := l.c
	c.mu.Lock()
	rec := c.records[l.key]
	if rec == nil || rec.refCount <= 0 {
		c.mu.Unlock()
		return ErrInvariantViolation("ref count underflow for " + l.key)
	}
	rec.refCount--
	c.mu.Unlock()
	return nil
}
