// Package registry resolves model keys against a remote model registry and
// coordinates downloads into the local disk cache. At most one download per
// key is ever in flight; concurrent callers join the same operation.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Manifest is what the registry knows about one model revision.
type Manifest struct {
	// URL the weights can be downloaded from.
	URL string `json:"download_url"`
	// Declared size of the weights in bytes.
	Size uint64 `json:"size_bytes"`
	// Hex sha256 of the weights. Empty means the registry does not publish one.
	Checksum string `json:"checksum"`
}

// Resolver maps a model key to its manifest.
type Resolver interface {
	Resolve(ctx context.Context, key string) (Manifest, error)
}

// HTTPResolver resolves keys against a remote registry's manifest endpoint.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

// NewHTTPResolver builds a resolver for the registry at baseURL.
func NewHTTPResolver(baseURL string) *HTTPResolver {
	return &HTTPResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *HTTPResolver) Resolve(ctx context.Context, key string) (Manifest, error) {
	u := r.baseURL + "/v1/manifests/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Manifest{}, ErrFetchFailed(key, err.Error(), false)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return Manifest{}, ErrFetchFailed(key, err.Error(), true)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Manifest{}, ErrNotFound(key)
	case http.StatusUnauthorized, http.StatusForbidden:
		return Manifest{}, ErrUnauthorized(key)
	default:
		return Manifest{}, ErrFetchFailed(key, fmt.Sprintf("registry status %d", resp.StatusCode), resp.StatusCode >= 500)
	}
	var m Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return Manifest{}, ErrFetchFailed(key, "invalid manifest: "+err.Error(), false)
	}
	if m.URL == "" {
		return Manifest{}, ErrFetchFailed(key, "manifest missing download_url", false)
	}
	return m, nil
}

// StaticResolver serves manifests from a fixed in-memory table. Used for
// air-gapped deployments (keys declared in config) and tests.
type StaticResolver struct {
	models map[string]Manifest
}

// NewStaticResolver builds a resolver over a fixed key -> manifest table.
func NewStaticResolver(models map[string]Manifest) *StaticResolver {
	cp := make(map[string]Manifest, len(models))
	for k, v := range models {
		cp[k] = v
	}
	return &StaticResolver{models: cp}
}

func (r *StaticResolver) Resolve(_ context.Context, key string) (Manifest, error) {
	m, ok := r.models[key]
	if !ok {
		return Manifest{}, ErrNotFound(key)
	}
	return m, nil
}
