package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"damod/internal/cacheindex"
	"damod/internal/common/fsutil"
)

const defaultDownloadTimeout = 10 * time.Minute

type fetchOp struct {
	done chan struct{}
	path string
	size uint64
	err  error
}

// Coordinator downloads model weights into the disk cache with at most one
// in-flight download per key. Joiners that abandon their wait do not cancel
// the shared download; it completes for any remaining joiners.
type Coordinator struct {
	resolver Resolver
	cacheDir string
	index    *cacheindex.Index
	client   *http.Client
	log      zerolog.Logger

	downloadTimeout time.Duration

	mu       sync.Mutex
	inflight map[string]*fetchOp
}

// NewCoordinator builds a Coordinator over the given resolver, cache
// directory and persisted index.
func NewCoordinator(resolver Resolver, cacheDir string, index *cacheindex.Index, log zerolog.Logger) (*Coordinator, error) {
	if err := fsutil.EnsureDir(cacheDir); err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}
	return &Coordinator{
		resolver:        resolver,
		cacheDir:        cacheDir,
		index:           index,
		client:          &http.Client{},
		log:             log,
		downloadTimeout: defaultDownloadTimeout,
		inflight:        make(map[string]*fetchOp),
	}, nil
}

// SetDownloadTimeout bounds the shared download operation (not the join).
func (c *Coordinator) SetDownloadTimeout(d time.Duration) {
	if d > 0 {
		c.downloadTimeout = d
	}
}

// diskPathFor maps a key like "acme/tiny@v2" to a stable cache filename.
func (c *Coordinator) diskPathFor(key string) string {
	safe := strings.ReplaceAll(key, "/", "--")
	return filepath.Join(c.cacheDir, safe)
}

// Cached reports whether key has validated weights on disk, without any
// network I/O. Validation covers both the recorded size and the sha256 of
// the bytes actually on disk, so weights corrupted in place are treated as
// a miss and re-downloaded.
func (c *Coordinator) Cached(ctx context.Context, key string) (string, uint64, bool) {
	entry, ok, err := c.index.Get(ctx, key)
	if err != nil || !ok {
		return "", 0, false
	}
	fi, err := os.Stat(entry.DiskPath)
	if err != nil || fi.IsDir() {
		return "", 0, false
	}
	if entry.Size > 0 && uint64(fi.Size()) != entry.Size {
		// stale or truncated; drop the row so the next fetch re-downloads
		_ = c.index.Delete(ctx, key)
		return "", 0, false
	}
	if entry.Checksum != "" {
		sum, err := fileChecksum(entry.DiskPath)
		if err != nil || !strings.EqualFold(sum, entry.Checksum) {
			c.log.Warn().Str("model", key).Str("path", entry.DiskPath).
				Msg("cached weights failed checksum validation")
			_ = c.index.Delete(ctx, key)
			return "", 0, false
		}
	}
	return entry.DiskPath, uint64(fi.Size()), true
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Active returns the keys with a download currently in flight, sorted.
func (c *Coordinator) Active() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.inflight))
	for k := range c.inflight {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Fetch ensures key's weights are present and verified on disk, returning
// the disk path and size. A second caller for the same key joins the
// in-flight download rather than starting a duplicate. Cancellation of ctx
// abandons only this caller's wait.
func (c *Coordinator) Fetch(ctx context.Context, key string) (string, uint64, error) {
	if path, size, ok := c.Cached(ctx, key); ok {
		c.log.Debug().Str("model", key).Str("path", path).Msg("fetch cache hit")
		return path, size, nil
	}

	c.mu.Lock()
	op, joined := c.inflight[key]
	if !joined {
		op = &fetchOp{done: make(chan struct{})}
		c.inflight[key] = op
		// Detached context: one joiner's cancellation must not abort the
		// download other joiners are waiting on.
		go c.run(key, op)
	}
	c.mu.Unlock()
	if joined {
		c.log.Debug().Str("model", key).Msg("joining in-flight download")
	}

	select {
	case <-op.done:
		return op.path, op.size, op.err
	case <-ctx.Done():
		return "", 0, ctx.Err()
	}
}

func (c *Coordinator) run(key string, op *fetchOp) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), c.downloadTimeout)
	defer cancel()

	op.path, op.size, op.err = c.download(ctx, key)
	if op.err != nil {
		c.log.Error().Str("model", key).Err(op.err).Msg("download failed")
	} else {
		c.log.Info().Str("model", key).Uint64("bytes", op.size).
			Dur("dur", time.Since(start)).Msg("download complete")
	}

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(op.done)
}

func (c *Coordinator) download(ctx context.Context, key string) (string, uint64, error) {
	manifest, err := c.resolver.Resolve(ctx, key)
	if err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifest.URL, nil)
	if err != nil {
		return "", 0, ErrFetchFailed(key, err.Error(), false)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, ErrFetchFailed(key, err.Error(), true)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, ErrFetchFailed(key, fmt.Sprintf("download status %d", resp.StatusCode), resp.StatusCode >= 500)
	}

	// Stream into a temp file; the final path is only published after a
	// completed, verified write.
	final := c.diskPathFor(key)
	tmp, err := os.CreateTemp(c.cacheDir, filepath.Base(final)+".partial-*")
	if err != nil {
		return "", 0, classifyStorageErr(key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, classifyStorageErr(key, err)
	}

	if manifest.Size > 0 && uint64(written) != manifest.Size {
		return "", 0, ErrFetchFailed(key,
			fmt.Sprintf("size mismatch: got %d want %d", written, manifest.Size), false)
	}
	sum := hex.EncodeToString(hasher.Sum(nil))
	if manifest.Checksum != "" && !strings.EqualFold(sum, manifest.Checksum) {
		return "", 0, ErrFetchFailed(key, "checksum mismatch", false)
	}

	if err := os.Rename(tmpName, final); err != nil {
		return "", 0, classifyStorageErr(key, err)
	}
	if err := c.index.Put(ctx, cacheindex.Entry{
		Key: key, DiskPath: final, Checksum: sum, Size: uint64(written),
	}); err != nil {
		return "", 0, ErrFetchFailed(key, "index write: "+err.Error(), false)
	}
	return final, uint64(written), nil
}

// classifyStorageErr maps local write failures; disk-full is non-retryable
// without operator intervention.
func classifyStorageErr(key string, err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return ErrFetchFailed(key, "disk full: "+err.Error(), false)
	}
	return ErrFetchFailed(key, err.Error(), true)
}
