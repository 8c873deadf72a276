// Package e2e exercises the whole daemon in-process: HTTP surface, manager,
// residency controller, fetch coordinator and sqlite cache index, with only
// the model registry and the device runtime replaced by test doubles.
package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"damod/internal/cacheindex"
	"damod/internal/engine"
	"damod/internal/httpapi"
	"damod/internal/manager"
	"damod/internal/registry"
	"damod/internal/residency"
	"damod/pkg/types"
)

// fileRuntime loads weights from disk and reports a fixed small capacity so
// eviction paths are reachable with tiny test blobs.
type fileRuntime struct{ capacity uint64 }

type fileHandle struct{ bytes uint64 }

func (h fileHandle) FootprintBytes() uint64 { return h.bytes }

func (r *fileRuntime) ProbeCapacity() (uint64, error) { return r.capacity, nil }

func (r *fileRuntime) Load(ctx context.Context, key, diskPath string) (residency.DeviceHandle, error) {
	fi, err := os.Stat(diskPath)
	if err != nil || fi.Size() == 0 {
		return nil, residency.ErrCorruptWeights(key, "unreadable weights")
	}
	return fileHandle{bytes: uint64(fi.Size())}, nil
}

func (r *fileRuntime) Release(residency.DeviceHandle) {}

type testDaemon struct {
	srv *httptest.Server
}

// newTestDaemon stands up the full stack: blob server, static resolver,
// coordinator over a sqlite index, controller with capacityBytes of "device"
// memory, manager and HTTP mux.
func newTestDaemon(t *testing.T, capacityBytes uint64, blobs map[string][]byte) *testDaemon {
	t.Helper()

	blobSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Base(r.URL.Path)
		b, ok := blobs[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(b)
	}))
	t.Cleanup(blobSrv.Close)

	manifests := make(map[string]registry.Manifest, len(blobs))
	for name, b := range blobs {
		sum := sha256.Sum256(b)
		manifests["acme/"+name] = registry.Manifest{
			URL:      blobSrv.URL + "/" + name,
			Size:     uint64(len(b)),
			Checksum: hex.EncodeToString(sum[:]),
		}
	}

	dir := t.TempDir()
	index, err := cacheindex.Open(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })

	coord, err := registry.NewCoordinator(registry.NewStaticResolver(manifests), dir, index, zerolog.Nop())
	if err != nil {
		t.Fatalf("coordinator: %v", err)
	}

	ctrl := residency.NewWithConfig(residency.ControllerConfig{
		Runtime: &fileRuntime{capacity: capacityBytes},
		Fetcher: coord,
		Logger:  zerolog.Nop(),
	})
	mgr := manager.New(ctrl, engine.NewRegistry(), zerolog.Nop())

	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return &testDaemon{srv: srv}
}

func (d *testDaemon) post(t *testing.T, path, body string) (int, []byte) {
	t.Helper()
	resp, err := http.Post(d.srv.URL+path, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.Bytes()
}

func (d *testDaemon) status(t *testing.T) types.StatusResponse {
	t.Helper()
	resp, err := http.Get(d.srv.URL + "/v1/models/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer resp.Body.Close()
	var s types.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return s
}

func modelState(s types.StatusResponse, id string) (types.ModelStatus, bool) {
	for _, m := range s.Models {
		if m.ModelID == id {
			return m, true
		}
	}
	return types.ModelStatus{}, false
}

func TestLifecycleOverHTTP(t *testing.T) {
	d := newTestDaemon(t, 10, map[string][]byte{
		"alpha.bin": bytes.Repeat([]byte("a"), 6),
		"beta.bin":  bytes.Repeat([]byte("b"), 5),
	})

	// execute fetches, loads and runs in one request
	code, body := d.post(t, "/v1/execute/text", `{"model_id":"acme/alpha.bin","input":"hi"}`)
	if code != http.StatusOK {
		t.Fatalf("execute alpha: status=%d body=%s", code, body)
	}
	var exec types.ExecuteResponse
	if err := json.Unmarshal(body, &exec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if exec.ModelID != "acme/alpha.bin" || exec.TaskType != "text" {
		t.Fatalf("unexpected response: %+v", exec)
	}
	if exec.MemoryUsagePercent != 60 {
		t.Fatalf("usage=%v want 60", exec.MemoryUsagePercent)
	}

	// prefetch only touches the disk cache
	code, body = d.post(t, "/v1/models/fetch", `{"model_id":"acme/beta.bin"}`)
	if code != http.StatusOK {
		t.Fatalf("fetch beta: status=%d body=%s", code, body)
	}
	s := d.status(t)
	if m, ok := modelState(s, "acme/beta.bin"); !ok || m.State != "absent" || !m.Cached {
		t.Fatalf("beta after fetch: %+v", m)
	}
	if s.LoadsTotal != 1 {
		t.Fatalf("loads=%d want 1 (fetch must not load)", s.LoadsTotal)
	}

	// loading beta (5) next to alpha (6) exceeds the 0.9*10 threshold, so
	// alpha is evicted as the LRU idle resident
	code, body = d.post(t, "/v1/execute/image", `{"model_id":"acme/beta.bin","input":"x"}`)
	if code != http.StatusOK {
		t.Fatalf("execute beta: status=%d body=%s", code, body)
	}
	s = d.status(t)
	if m, _ := modelState(s, "acme/alpha.bin"); m.State != "absent" || !m.Cached {
		t.Fatalf("alpha after eviction: %+v", m)
	}
	if m, _ := modelState(s, "acme/beta.bin"); m.State != "resident" {
		t.Fatalf("beta not resident: %+v", m)
	}
	if s.EvictionsTotal != 1 || s.CommittedBytes != 5 {
		t.Fatalf("evictions=%d committed=%d", s.EvictionsTotal, s.CommittedBytes)
	}

	// re-running alpha reloads from the disk cache without a second download
	code, _ = d.post(t, "/v1/execute/text", `{"model_id":"acme/alpha.bin","input":"again"}`)
	if code != http.StatusOK {
		t.Fatalf("re-execute alpha: status=%d", code)
	}

	// purge leaves only disk placeholders behind
	code, body = d.post(t, "/v1/models/purge", "")
	if code != http.StatusOK {
		t.Fatalf("purge: status=%d", code)
	}
	var purge types.PurgeResponse
	if err := json.Unmarshal(body, &purge); err != nil {
		t.Fatalf("decode purge: %v", err)
	}
	if purge.Evicted == 0 {
		t.Fatalf("purge evicted nothing: %+v", purge)
	}
	if s = d.status(t); s.CommittedBytes != 0 {
		t.Fatalf("committed=%d after purge", s.CommittedBytes)
	}
}

func TestErrorSurfaceOverHTTP(t *testing.T) {
	d := newTestDaemon(t, 10, map[string][]byte{
		"alpha.bin": bytes.Repeat([]byte("a"), 6),
	})

	code, _ := d.post(t, "/v1/execute/telepathy", `{"model_id":"acme/alpha.bin"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("unknown task: status=%d want 400", code)
	}

	code, body := d.post(t, "/v1/execute/text", `{"model_id":"acme/unknown"}`)
	if code != http.StatusNotFound {
		t.Fatalf("unknown model: status=%d body=%s", code, body)
	}
	var er types.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if er.Code != http.StatusNotFound || er.Error == "" {
		t.Fatalf("unexpected error payload: %+v", er)
	}

	code, _ = d.post(t, "/v1/models/fetch", `{"model_id":"acme/unknown"}`)
	if code != http.StatusNotFound {
		t.Fatalf("fetch unknown model: status=%d", code)
	}
}

func TestOversizedModelRejectedWith507(t *testing.T) {
	d := newTestDaemon(t, 4, map[string][]byte{
		"big.bin": bytes.Repeat([]byte("x"), 64),
	})

	code, body := d.post(t, "/v1/execute/text", `{"model_id":"acme/big.bin"}`)
	if code != http.StatusInsufficientStorage {
		t.Fatalf("status=%d body=%s want 507", code, body)
	}
}
