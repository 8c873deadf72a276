package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver(map[string]Manifest{
		"acme/tiny": {URL: "http://files.local/tiny", Size: 42, Checksum: "abc"},
	})
	m, err := r.Resolve(context.Background(), "acme/tiny")
	if err != nil || m.Size != 42 {
		t.Fatalf("resolve: %+v err=%v", m, err)
	}
	if _, err := r.Resolve(context.Background(), "acme/other"); !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestHTTPResolverStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/manifests/acme%2Fok", "/v1/manifests/acme/ok":
			_ = json.NewEncoder(w).Encode(Manifest{URL: "http://files.local/ok", Size: 7})
		case "/v1/manifests/acme%2Fgated", "/v1/manifests/acme/gated":
			w.WriteHeader(http.StatusUnauthorized)
		case "/v1/manifests/acme%2Fbroken", "/v1/manifests/acme/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL)
	ctx := context.Background()

	m, err := r.Resolve(ctx, "acme/ok")
	if err != nil || m.URL != "http://files.local/ok" || m.Size != 7 {
		t.Fatalf("resolve ok: %+v err=%v", m, err)
	}
	if _, err := r.Resolve(ctx, "acme/gated"); !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := r.Resolve(ctx, "acme/nope"); !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if _, err := r.Resolve(ctx, "acme/broken"); !IsFetchFailed(err) || !IsRetryable(err) {
		t.Fatalf("expected retryable fetch failure, got %v", err)
	}
}
