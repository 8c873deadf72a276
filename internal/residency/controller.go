package residency

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Controller owns the residency table and is the only component permitted
// to mutate record state. One instance per process; collaborators receive
// it by reference, never through ambient state.
type Controller struct {
	mu      sync.RWMutex
	records map[string]*record

	// planMu makes the capacity-check -> evict -> reserve sequence atomic
	// with respect to other keys' concurrent evictions. Eviction execution
	// never blocks on another key's in-flight acquisition, so no lock
	// ordering cycle exists with the per-key tokens.
	planMu sync.Mutex

	runtime   DeviceRuntime
	fetcher   Fetcher
	total     uint64
	threshold float64

	fetchTimeout time.Duration
	loadTimeout  time.Duration

	fetchSeq       atomic.Uint64
	loadsTotal     atomic.Uint64
	evictionsTotal atomic.Uint64

	log       zerolog.Logger
	publisher EventPublisher
	startTime time.Time
	clock     func() time.Time
}

// getOrCreate returns the record for key, creating it lazily on first
// reference. Exactly one record exists per key at any time.
func (c *Controller) getOrCreate(key string) *record {
	c.mu.RLock()
	rec, ok := c.records[key]
	c.mu.RUnlock()
	if ok {
		return rec
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok = c.records[key]; ok {
		return rec
	}
	rec = &record{
		key:    key,
		serial: make(chan struct{}, 1),
		state:  StateAbsent,
	}
	c.records[key] = rec
	return rec
}

// Ready reports whether the controller has a usable capacity budget.
func (c *Controller) Ready() bool {
	return c.total > 0
}

func (c *Controller) publish(name, key string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	c.publisher.Publish(Event{Name: name, Key: key, Fields: fields})
}
