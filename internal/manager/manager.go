// Package manager ties the residency controller, the fetch coordinator and
// the engine registry together behind the surface the HTTP layer serves.
package manager

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"damod/internal/engine"
	"damod/internal/residency"
	"damod/pkg/types"
)

// Manager orchestrates one execute/fetch/purge surface over a single
// residency controller. Safe for concurrent use.
type Manager struct {
	ctrl    *residency.Controller
	engines *engine.Registry
	log     zerolog.Logger
}

func New(ctrl *residency.Controller, engines *engine.Registry, log zerolog.Logger) *Manager {
	return &Manager{ctrl: ctrl, engines: engines, log: log}
}

// Execute acquires a lease on the requested model, runs the task engine
// against it and releases the lease. With ForceReload an idle resident copy
// is discarded first so the weights load again from the disk cache.
func (m *Manager) Execute(ctx context.Context, task string, req types.ExecuteRequest) (types.ExecuteResponse, error) {
	eng, err := m.engines.ForTask(task)
	if err != nil {
		return types.ExecuteResponse{}, err
	}

	var lease *residency.Lease
	if req.ForceReload {
		lease, err = m.ctrl.AcquireFresh(ctx, req.ModelID)
	} else {
		lease, err = m.ctrl.Acquire(ctx, req.ModelID)
	}
	if err != nil {
		return types.ExecuteResponse{}, err
	}
	defer func() {
		if rerr := lease.Release(); rerr != nil {
			m.log.Error().Err(rerr).Str("model", req.ModelID).Msg("lease release failed")
		}
	}()

	res, err := eng.Execute(ctx, lease, engine.Request{Input: req.Input, Params: req.Params})
	if err != nil {
		return types.ExecuteResponse{}, err
	}
	return types.ExecuteResponse{
		ModelID:            res.ModelID,
		TaskType:           res.TaskType,
		Result:             res.Output,
		MemoryUsagePercent: m.ctrl.UsagePercent(),
	}, nil
}

// Fetch downloads a model into the disk cache without loading it.
func (m *Manager) Fetch(ctx context.Context, modelID string) (types.FetchResponse, error) {
	path, downloaded, err := m.ctrl.Prefetch(ctx, modelID)
	if err != nil {
		return types.FetchResponse{}, err
	}
	msg := "already cached"
	if downloaded {
		msg = "downloaded"
	}
	return types.FetchResponse{ModelID: modelID, Path: path, Message: msg}, nil
}

// Purge evicts every resident model not held by a lease.
func (m *Manager) Purge() types.PurgeResponse {
	n := m.ctrl.Purge()
	return types.PurgeResponse{
		Evicted: n,
		Message: fmt.Sprintf("evicted %d model(s)", n),
	}
}

// Status reports the full residency snapshot.
func (m *Manager) Status() types.StatusResponse { return m.ctrl.Status() }

// Ready reports whether the controller has a usable memory budget.
func (m *Manager) Ready() bool { return m.ctrl.Ready() }
