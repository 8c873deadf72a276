package residency

import (
	"context"
	"time"
)

// State represents the residency lifecycle of one model.
type State string

const (
	StateAbsent   State = "absent"
	StateFetching State = "fetching"
	StateLoading  State = "loading"
	StateResident State = "resident"
	StateEvicting State = "evicting"
)

// record is the authoritative entry for one model key. Records are created
// lazily on first reference and never deleted; after eviction the record
// remains as a disk-cache placeholder.
type record struct {
	key string

	// serial is the per-key serialization token (size 1). No two
	// acquisitions for the same key execute their transition concurrently.
	serial chan struct{}

	state      State
	footprint  uint64 // declared estimate until pinned by a measured load
	pinned     bool
	lastAccess time.Time
	refCount   int
	diskPath   string // survives eviction; empty means never fetched
	fetchSeq   uint64 // first-fetch order, tie-break for eviction
	handle     DeviceHandle
}

// Fetcher is the seam to the download coordinator. Fetch must return a
// verified on-disk path without network I/O when the cache already holds
// the model.
type Fetcher interface {
	Fetch(ctx context.Context, key string) (diskPath string, size uint64, err error)
	Active() []string
}
