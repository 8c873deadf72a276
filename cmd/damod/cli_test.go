package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"damod/internal/config"
)

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b ", []string{"a", "b"}},
		{"", []string{}},
		{",,", []string{}},
		{"http://x:80", []string{"http://x:80"}},
		{"a,,b", []string{"a", "b"}},
	}
	for _, tc := range cases {
		if got := splitCSV(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitCSV(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestMergeConfigFlagOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "damod.yaml")
	content := "addr: \":9000\"\nregistry_url: https://models.example.com\nlog_level: debug\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := buildRootCmd()
	serve, _, err := root.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("find serve: %v", err)
	}
	if err := serve.Flags().Set("addr", ":7070"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	opts := &serveOptions{configPath: cfgPath, addr: ":7070"}
	cfg, err := mergeConfig(serve, opts)
	if err != nil {
		t.Fatalf("mergeConfig: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Fatalf("addr=%q, flag must override file", cfg.Addr)
	}
	if cfg.RegistryURL != "https://models.example.com" || cfg.LogLevel != "debug" {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.CacheDir == "" || cfg.IndexPath == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestBuildResolver(t *testing.T) {
	if _, err := buildResolver(config.Config{}); err == nil {
		t.Fatalf("expected error without any model source")
	}
	if _, err := buildResolver(config.Config{RegistryURL: "https://models.example.com"}); err != nil {
		t.Fatalf("http resolver: %v", err)
	}
	r, err := buildResolver(config.Config{Models: []config.StaticModel{
		{Key: "acme/m", URL: "https://cdn.example.com/m.bin", Size: 4},
	}})
	if err != nil || r == nil {
		t.Fatalf("static resolver: %v", err)
	}
}

func TestClientCommandsHitDaemon(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	if err := clientGet(&out, srv.URL, "/v1/models/status"); err != nil {
		t.Fatalf("clientGet: %v", err)
	}
	if gotPath != "/v1/models/status" || out.Len() == 0 {
		t.Fatalf("path=%q out=%q", gotPath, out.String())
	}

	out.Reset()
	if err := clientPost(&out, srv.URL, "/v1/models/purge", nil); err != nil {
		t.Fatalf("clientPost: %v", err)
	}
	if gotPath != "/v1/models/purge" {
		t.Fatalf("path=%q", gotPath)
	}
}

func TestClientReportsDaemonErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInsufficientStorage)
		w.Write([]byte(`{"error":"insufficient capacity","code":507}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	if err := clientGet(&out, srv.URL, "/v1/models/status"); err == nil {
		t.Fatalf("expected error for 507 response")
	}
}
