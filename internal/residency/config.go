package residency

import (
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding ControllerConfig fields are unset.
const (
	defaultThresholdFraction = 0.9
	defaultFetchTimeout      = 2 * time.Minute
	defaultLoadTimeout       = 2 * time.Minute
)

// ControllerConfig encapsulates all tunables for Controller construction.
type ControllerConfig struct {
	Runtime DeviceRuntime
	Fetcher Fetcher

	// Fallback budget when device probing fails (degraded mode).
	CapacityBytes uint64
	// Share of probed memory handed to the daemon (host runtime only).
	CapacityFraction float64
	// Eviction is triggered when projected committed memory would exceed
	// ThresholdFraction * total capacity.
	ThresholdFraction float64

	FetchTimeout time.Duration
	LoadTimeout  time.Duration

	Logger    zerolog.Logger
	Publisher EventPublisher
}

// NewWithConfig constructs a Controller from ControllerConfig. Capacity is
// probed from the device runtime; when probing fails the configured fallback
// budget applies and a degraded-mode warning is logged.
func NewWithConfig(cfg ControllerConfig) *Controller {
	c := &Controller{
		records:   make(map[string]*record),
		runtime:   cfg.Runtime,
		fetcher:   cfg.Fetcher,
		threshold: cfg.ThresholdFraction,
		log:       cfg.Logger,
		publisher: cfg.Publisher,
		startTime: time.Now(),
		clock:     time.Now,
	}
	if c.runtime == nil {
		c.runtime = NewHostRuntime(cfg.CapacityFraction)
	}
	if c.publisher == nil {
		c.publisher = noopPublisher{}
	}
	if c.threshold <= 0 || c.threshold > 1 {
		c.threshold = defaultThresholdFraction
	}
	c.fetchTimeout = cfg.FetchTimeout
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = defaultFetchTimeout
	}
	c.loadTimeout = cfg.LoadTimeout
	if c.loadTimeout <= 0 {
		c.loadTimeout = defaultLoadTimeout
	}

	total, err := c.runtime.ProbeCapacity()
	if err != nil || total == 0 {
		c.total = cfg.CapacityBytes
		c.log.Warn().Err(err).Uint64("fallback_bytes", c.total).
			Msg("device capacity probe failed, running on configured budget")
	} else {
		c.total = total
	}
	capacityBytesGauge.Set(float64(c.total))
	return c
}
