package residency

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotalCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "damod",
		Subsystem: "residency",
		Name:      "loads_total",
		Help:      "Total successful device loads",
	})

	evictionsTotalCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "damod",
		Subsystem: "residency",
		Name:      "evictions_total",
		Help:      "Total evictions performed to free device memory",
	})

	fetchesTotalCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "damod",
		Subsystem: "residency",
		Name:      "fetches_total",
		Help:      "Total completed fetch steps (including disk-cache hits)",
	})

	residentModelsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "damod",
		Subsystem: "residency",
		Name:      "resident_models",
		Help:      "Models currently resident in device memory",
	})

	committedBytesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "damod",
		Subsystem: "residency",
		Name:      "committed_bytes",
		Help:      "Device memory committed to resident models",
	})

	capacityBytesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "damod",
		Subsystem: "residency",
		Name:      "capacity_bytes",
		Help:      "Total device memory budget",
	})
)

func init() {
	prometheus.MustRegister(loadsTotalCounter, evictionsTotalCounter, fetchesTotalCounter,
		residentModelsGauge, committedBytesGauge, capacityBytesGauge)
}

// updateResidencyGauges refreshes the gauges from the table. Caller holds c.mu.
func (c *Controller) updateResidencyGaugesLocked() {
	var resident int
	for _, rec := range c.records {
		if rec.state == StateResident {
			resident++
		}
	}
	residentModelsGauge.Set(float64(resident))
	committedBytesGauge.Set(float64(c.residentBytesLocked()))
}
