package types

// ExecuteRequest is the payload for POST /v1/execute/{task}.
type ExecuteRequest struct {
	// Registry key of the model to run (namespace/name[@revision]).
	// example: acme/tiny-tts@v2
	ModelID string `json:"model_id"`
	// Task input. Interpretation depends on the task type (prompt text,
	// base64 audio, image description, ...).
	Input string `json:"input"`
	// Optional task-specific parameters passed through to the engine.
	Params map[string]any `json:"params,omitempty"`
	// Force the model to be evicted and loaded again before execution.
	// example: false
	ForceReload bool `json:"force_reload,omitempty"`
}

// ExecuteResponse is returned by the execute endpoints.
type ExecuteResponse struct {
	ModelID  string `json:"model_id"`
	TaskType string `json:"task_type"`
	Result   any    `json:"result"`
	// Fraction of device memory committed after this request, in percent.
	// example: 62.5
	MemoryUsagePercent float64 `json:"memory_usage_percent"`
}

// FetchRequest asks the server to download a model to the disk cache
// without loading it into device memory.
type FetchRequest struct {
	ModelID string `json:"model_id"`
}

// FetchResponse is returned by POST /v1/models/fetch.
type FetchResponse struct {
	ModelID string `json:"model_id"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// PurgeResponse is returned by POST /v1/models/purge.
type PurgeResponse struct {
	// Number of models evicted from device memory.
	// example: 3
	Evicted int    `json:"evicted"`
	Message string `json:"message"`
}

// ModelStatus summarizes one residency record for GET /v1/models/status.
type ModelStatus struct {
	// Registry key of the model.
	// example: acme/tiny-tts@v2
	ModelID string `json:"model_id"`
	// Residency state: absent, fetching, loading, resident or evicting.
	// example: resident
	State string `json:"state"`
	// Device memory the model occupies (or is estimated to need).
	// example: 2147483648
	FootprintBytes uint64 `json:"footprint_bytes"`
	// Last lease acquisition time (unix seconds; 0 if never acquired).
	// example: 1700000000
	LastAccess int64 `json:"last_access_unix"`
	// Outstanding leases held against this model.
	// example: 1
	RefCount int `json:"ref_count"`
	// Whether the model weights are present in the disk cache.
	// example: true
	Cached bool `json:"cached"`
}

// StatusResponse is returned by GET /v1/models/status.
type StatusResponse struct {
	Models []ModelStatus `json:"models"`
	// Total device memory available to the daemon.
	// example: 8589934592
	CapacityBytes uint64 `json:"capacity_bytes"`
	// Device memory committed to resident models.
	// example: 4294967296
	CommittedBytes uint64 `json:"committed_bytes"`
	// CommittedBytes / CapacityBytes in percent.
	// example: 50.0
	UsagePercent float64 `json:"usage_percent"`
	// Keys with a download currently in flight.
	ActiveDownloads []string `json:"active_downloads"`
	// Total evictions since startup.
	// example: 5
	EvictionsTotal uint64 `json:"evictions_total"`
	// Total successful device loads since startup.
	// example: 12
	LoadsTotal uint64 `json:"loads_total"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not found: acme/missing
	Error string `json:"error" example:"model not found: acme/missing"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
