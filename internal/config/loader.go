package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// StaticModel declares a model resolvable without a remote registry.
type StaticModel struct {
	Key      string `json:"key" yaml:"key" toml:"key"`
	URL      string `json:"url" yaml:"url" toml:"url"`
	Size     uint64 `json:"size_bytes" yaml:"size_bytes" toml:"size_bytes"`
	Checksum string `json:"checksum" yaml:"checksum" toml:"checksum"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr        string `json:"addr" yaml:"addr" toml:"addr"`
	RegistryURL string `json:"registry_url" yaml:"registry_url" toml:"registry_url"`
	CacheDir    string `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir"`
	IndexPath   string `json:"index_path" yaml:"index_path" toml:"index_path"`

	// Fallback device budget when probing fails (degraded mode).
	CapacityBytes uint64 `json:"capacity_bytes" yaml:"capacity_bytes" toml:"capacity_bytes"`
	// Fraction of probed device memory handed to the daemon.
	CapacityFraction float64 `json:"capacity_fraction" yaml:"capacity_fraction" toml:"capacity_fraction"`
	// Proactive eviction threshold as a fraction of total capacity.
	ThresholdFraction float64 `json:"threshold_fraction" yaml:"threshold_fraction" toml:"threshold_fraction"`

	FetchTimeoutSec int `json:"fetch_timeout_sec" yaml:"fetch_timeout_sec" toml:"fetch_timeout_sec"`
	LoadTimeoutSec  int `json:"load_timeout_sec" yaml:"load_timeout_sec" toml:"load_timeout_sec"`

	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`

	// Models resolvable without the remote registry (tests, air-gapped).
	Models []StaticModel `json:"models" yaml:"models" toml:"models"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
