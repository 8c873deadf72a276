package residency

import (
	"sort"
	"time"

	"damod/pkg/types"
)

// Status builds the operator-facing report for /v1/models/status.
func (c *Controller) Status() types.StatusResponse {
	c.mu.RLock()
	resp := types.StatusResponse{
		CapacityBytes:  c.total,
		CommittedBytes: c.residentBytesLocked(),
	}
	resp.Models = make([]types.ModelStatus, 0, len(c.records))
	for _, rec := range c.records {
		var last int64
		if !rec.lastAccess.IsZero() {
			last = rec.lastAccess.Unix()
		}
		resp.Models = append(resp.Models, types.ModelStatus{
			ModelID:        rec.key,
			State:          string(rec.state),
			FootprintBytes: rec.footprint,
			LastAccess:     last,
			RefCount:       rec.refCount,
			Cached:         rec.diskPath != "",
		})
	}
	c.mu.RUnlock()

	sort.Slice(resp.Models, func(i, j int) bool { return resp.Models[i].ModelID < resp.Models[j].ModelID })
	if c.total > 0 {
		resp.UsagePercent = float64(resp.CommittedBytes) / float64(c.total) * 100
	}
	if c.fetcher != nil {
		resp.ActiveDownloads = c.fetcher.Active()
	}
	if resp.ActiveDownloads == nil {
		resp.ActiveDownloads = []string{}
	}
	resp.EvictionsTotal = c.evictionsTotal.Load()
	resp.LoadsTotal = c.loadsTotal.Load()
	resp.UptimeSeconds = int64(time.Since(c.startTime).Seconds())
	resp.ServerTimeUnix = time.Now().Unix()
	return resp
}
