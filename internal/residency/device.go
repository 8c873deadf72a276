package residency

import (
	"context"
	"os"

	"github.com/shirou/gopsutil/v4/mem"
)

// DeviceHandle represents a model placed in device memory. The measured
// footprint pins the record's footprint_bytes on first successful load.
type DeviceHandle interface {
	FootprintBytes() uint64
}

// DeviceRuntime is the seam to the accelerator runtime.
type DeviceRuntime interface {
	// ProbeCapacity reports total device memory, or an error when the
	// device cannot be probed (the controller then falls back to the
	// configured budget).
	ProbeCapacity() (uint64, error)
	// Load places the weights at diskPath into device memory. A disk-side
	// failure (unreadable/corrupt weights) must be reported via
	// ErrCorruptWeights so the cache entry can be invalidated.
	Load(ctx context.Context, key, diskPath string) (DeviceHandle, error)
	// Release frees the device memory behind handle.
	Release(handle DeviceHandle)
}

type hostHandle struct{ bytes uint64 }

func (h hostHandle) FootprintBytes() uint64 { return h.bytes }

// HostRuntime treats a fraction of host memory as the device. It stands in
// when no accelerator runtime is linked: loads cost their on-disk size.
type HostRuntime struct {
	fraction float64
}

const defaultHostFraction = 0.5

// NewHostRuntime builds a HostRuntime handing the daemon the given fraction
// of probed host memory.
func NewHostRuntime(fraction float64) *HostRuntime {
	if fraction <= 0 || fraction > 1 {
		fraction = defaultHostFraction
	}
	return &HostRuntime{fraction: fraction}
}

func (r *HostRuntime) ProbeCapacity() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return uint64(float64(vm.Total) * r.fraction), nil
}

func (r *HostRuntime) Load(ctx context.Context, key, diskPath string) (DeviceHandle, error) {
	fi, err := os.Stat(diskPath)
	if err != nil {
		return nil, ErrCorruptWeights(key, err.Error())
	}
	if fi.IsDir() || fi.Size() == 0 {
		return nil, ErrCorruptWeights(key, "empty or invalid weights file")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return hostHandle{bytes: uint64(fi.Size())}, nil
}

func (r *HostRuntime) Release(DeviceHandle) {}
