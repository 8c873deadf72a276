package residency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeHandle struct{ bytes uint64 }

func (h fakeHandle) FootprintBytes() uint64 { return h.bytes }

// fakeRuntime is a deterministic DeviceRuntime for tests.
type fakeRuntime struct {
	capacity uint64
	probeErr error

	mu           sync.Mutex
	loads        int
	releases     int
	loadErr      error
	loadDelay    time.Duration
	releaseDelay time.Duration
	footprints   map[string]uint64 // measured bytes per key; 0 means 1
}

func (r *fakeRuntime) ProbeCapacity() (uint64, error) { return r.capacity, r.probeErr }

func (r *fakeRuntime) Load(ctx context.Context, key, diskPath string) (DeviceHandle, error) {
	r.mu.Lock()
	delay := r.loadDelay
	err := r.loadErr
	b := r.footprints[key]
	r.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.loads++
	r.mu.Unlock()
	if b == 0 {
		b = 1
	}
	return fakeHandle{bytes: b}, nil
}

func (r *fakeRuntime) Release(DeviceHandle) {
	r.mu.Lock()
	delay := r.releaseDelay
	r.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	r.mu.Lock()
	r.releases++
	r.mu.Unlock()
}

func (r *fakeRuntime) loadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

// fakeFetcher is a deterministic Fetcher for tests.
type fakeFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	sizes map[string]uint64
	errs  map[string]error
	delay time.Duration
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: map[string]int{}, sizes: map[string]uint64{}, errs: map[string]error{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, key string) (string, uint64, error) {
	f.mu.Lock()
	f.calls[key]++
	delay := f.delay
	err := f.errs[key]
	size := f.sizes[key]
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", 0, ctx.Err()
		}
	}
	if err != nil {
		return "", 0, err
	}
	return "/cache/" + key, size, nil
}

func (f *fakeFetcher) Active() []string { return nil }

func (f *fakeFetcher) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func newTestController(t *testing.T, capacity uint64, rt *fakeRuntime, ff *fakeFetcher) *Controller {
	t.Helper()
	if rt == nil {
		rt = &fakeRuntime{capacity: capacity, footprints: map[string]uint64{}}
	}
	if ff == nil {
		ff = newFakeFetcher()
	}
	return NewWithConfig(ControllerConfig{
		Runtime:           rt,
		Fetcher:           ff,
		ThresholdFraction: 0.9,
		Logger:            zerolog.Nop(),
	})
}

// seedResident installs a pinned resident record directly, bypassing the
// acquire path, for eviction-policy scenarios.
func seedResident(c *Controller, key string, footprint uint64, last time.Time, seq uint64, refs int) {
	rec := c.getOrCreate(key)
	c.mu.Lock()
	rec.state = StateResident
	rec.footprint = footprint
	rec.pinned = true
	rec.lastAccess = last
	rec.fetchSeq = seq
	rec.refCount = refs
	rec.diskPath = "/cache/" + key
	rec.handle = fakeHandle{bytes: footprint}
	c.mu.Unlock()
}

func stateOf(c *Controller, key string) State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if rec := c.records[key]; rec != nil {
		return rec.state
	}
	return ""
}

func refCountOf(c *Controller, key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if rec := c.records[key]; rec != nil {
		return rec.refCount
	}
	return 0
}
