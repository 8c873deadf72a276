// Package residency decides, for every incoming request, whether a model is
// resident in device memory, loadable, or must first evict other models to
// make room. It is structured into small files by concern:
//
//   - controller.go: core Controller type, constructor, simple getters.
//   - config.go: ControllerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: internal state types (State, record) and public views.
//   - errors.go: error types and helpers (IsInsufficientCapacity, IsTimeout, ...).
//   - capacity.go: capacity tracker (total, committed, available).
//   - policy.go: pure LRU victim selection over a snapshot.
//   - acquire.go: Acquire lifecycle (fetch, reserve, load) and per-key serialization.
//   - prefetch.go: download-only path for the fetch endpoint.
//   - evict.go: eviction execution, threshold planning, Purge.
//   - lease.go: reference-counted Lease handle.
//   - device.go: DeviceRuntime seam and the host-memory implementation.
//   - snapshot.go: Status reporting for the operator API.
//   - events.go: lifecycle event publishing.
//
// External packages should treat this package as the orchestration layer and
// use public methods only (NewWithConfig, Acquire, Prefetch, Purge, Status,
// Ready).
// Internal types are subject to change.
package residency
