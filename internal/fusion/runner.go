package fusion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
)

// Runner fuses every stored (entity, session day) observation group and
// persists the resulting fused series.
type Runner struct {
	fuser      *Fuser
	obsStore   storage.ObservationStore
	fusedStore storage.FusedSignalStore

	// Dropped tracks keys removed from the fused series with the reason.
	// Key format: "entity@YYYY-MM-DD". Per-key fusion failures are local;
	// they are reported alongside the output, not fatal.
	Dropped map[string]string
}

// NewRunner creates a fusion runner. fusedStore may be nil when the caller
// only wants the in-memory result.
func NewRunner(fuser *Fuser, obsStore storage.ObservationStore, fusedStore storage.FusedSignalStore) *Runner {
	return &Runner{
		fuser:      fuser,
		obsStore:   obsStore,
		fusedStore: fusedStore,
		Dropped:    make(map[string]string),
	}
}

// Run loads all observations, fuses each (entity, day) group in
// deterministic order, persists the fused series, and returns it.
func (r *Runner) Run(ctx context.Context) ([]*domain.FusedSignal, error) {
	obs, err := r.obsStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	return r.FuseAll(ctx, obs)
}

// FuseAll fuses an already-loaded observation slice. Groups are processed
// sorted by entity id then session day so output and diagnostics are
// deterministic.
func (r *Runner) FuseAll(ctx context.Context, obs []*domain.RawSignalObservation) ([]*domain.FusedSignal, error) {
	type key struct {
		entityID string
		dayMs    int64
	}

	groups := make(map[key][]domain.RawSignalObservation)
	for _, o := range obs {
		k := key{o.EntityID, o.SessionDayMs}
		groups[k] = append(groups[k], *o)
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].entityID != keys[j].entityID {
			return keys[i].entityID < keys[j].entityID
		}
		return keys[i].dayMs < keys[j].dayMs
	})

	fused := make([]*domain.FusedSignal, 0, len(keys))
	for _, k := range keys {
		sig, err := r.fuser.Fuse(groups[k])
		if err != nil {
			if errors.Is(err, ErrDegenerateInput) || errors.Is(err, ErrZeroWeightSum) {
				r.Dropped[dropKey(k.entityID, k.dayMs)] = err.Error()
				continue
			}
			return nil, err
		}
		s := sig
		fused = append(fused, &s)
	}

	if r.fusedStore != nil && len(fused) > 0 {
		if err := r.fusedStore.InsertBulk(ctx, fused); err != nil {
			return nil, fmt.Errorf("persist fused signals: %w", err)
		}
	}

	return fused, nil
}

// DropDiagnostics returns the dropped-key log sorted by key.
func (r *Runner) DropDiagnostics() []string {
	if len(r.Dropped) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.Dropped))
	for k := range r.Dropped {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf("dropped %s: %s", k, r.Dropped[k])
	}
	return out
}

func dropKey(entityID string, dayMs int64) string {
	return entityID + "@" + time.UnixMilli(dayMs).UTC().Format("2006-01-02")
}
