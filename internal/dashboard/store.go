package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/swa/agilemetrics/internal/logging"
	"github.com/swa/agilemetrics/internal/metrics"
)

// ErrNoSnapshot is returned before the first successful load.
var ErrNoSnapshot = errors.New("no snapshot loaded")

/* Store holds the current snapshot; readers never block on a reload */
type Store struct {
	loader  Loader
	logger  *logging.Logger
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex // serializes reloads
}

// NewStore creates an empty store that loads from loader.
func NewStore(loader Loader, logger *logging.Logger) *Store {
	return &Store{loader: loader, logger: logger}
}

// Current returns the active snapshot.
func (s *Store) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Set replaces the active snapshot.
func (s *Store) Set(snap *Snapshot) {
	s.current.Store(snap)
	stats := snap.Stats()
	metrics.SetSnapshot(stats.ColumnStatusRows, stats.DailyFlowRows, float64(stats.LoadedAt.Unix()))
}

// Reload reads a fresh snapshot from the loader. On failure the previous
// snapshot stays active and the error is returned.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snap, err := Load(ctx, s.loader)
	elapsed := time.Since(start)
	metrics.RecordSnapshotLoad(elapsed.Seconds(), err == nil)
	if err != nil {
		metrics.GetGlobalMetrics().RecordError("snapshot_load")
		s.logger.Error("Snapshot load failed", err, map[string]interface{}{
			"duration_ms": elapsed.Milliseconds(),
		})
		return nil, err
	}

	s.Set(snap)
	stats := snap.Stats()
	s.logger.Info("Snapshot loaded", map[string]interface{}{
		"column_status_rows": stats.ColumnStatusRows,
		"daily_flow_rows":    stats.DailyFlowRows,
		"columns":            stats.Columns,
		"duration_ms":        elapsed.Milliseconds(),
	})
	return snap, nil
}
