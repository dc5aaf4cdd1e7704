// Package dashboard holds the in-memory snapshot of the flow relations and
// turns viewer selections into reports.
package dashboard

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/swa/agilemetrics/internal/flow"
)

/* Loader reads both flow relations from a data source */
type Loader interface {
	LoadColumnStatus(ctx context.Context) ([]flow.ColumnStatusSample, error)
	LoadDailyFlow(ctx context.Context) ([]flow.DailyFlowSample, error)
}

/*
 * Snapshot is the immutable result of one load. The slices returned by
 * its accessors are shared and must not be modified.
 */
type Snapshot struct {
	columnStatus []flow.ColumnStatusSample
	dailyFlow    []flow.DailyFlowSample
	columns      []string
	extent       flow.DateRange
	loadedAt     time.Time
}

/* SnapshotStats summarizes a snapshot for health and CLI output */
type SnapshotStats struct {
	ColumnStatusRows int       `json:"column_status_rows"`
	DailyFlowRows    int       `json:"daily_flow_rows"`
	Columns          []string  `json:"columns"`
	MinDate          time.Time `json:"min_date"`
	MaxDate          time.Time `json:"max_date"`
	LoadedAt         time.Time `json:"loaded_at"`
}

// NewSnapshot orders both relations by time, fills missing trailing
// averages over the full daily history and records the live columns and
// the observed date extent. The inputs are not modified.
func NewSnapshot(columnStatus []flow.ColumnStatusSample, dailyFlow []flow.DailyFlowSample, loadedAt time.Time) *Snapshot {
	status := slices.Clone(columnStatus)
	slices.SortStableFunc(status, func(a, b flow.ColumnStatusSample) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	if status == nil {
		status = []flow.ColumnStatusSample{}
	}
	daily := flow.WithTrailingAverages(dailyFlow, flow.TrailingWindow)
	if daily == nil {
		daily = []flow.DailyFlowSample{}
	}

	columns := flow.DistinctColumns(status)
	if columns == nil {
		columns = []string{}
	}

	return &Snapshot{
		columnStatus: status,
		dailyFlow:    daily,
		columns:      columns,
		extent:       unionExtent(flow.Extent(status), flow.Extent(daily)),
		loadedAt:     loadedAt,
	}
}

func unionExtent(a, b flow.DateRange) flow.DateRange {
	switch {
	case a.Min.IsZero():
		return b
	case b.Min.IsZero():
		return a
	}
	out := a
	if b.Min.Before(out.Min) {
		out.Min = b.Min
	}
	if b.Max.After(out.Max) {
		out.Max = b.Max
	}
	return out
}

// Load runs both queries concurrently and builds a snapshot. Either
// failure fails the load.
func Load(ctx context.Context, loader Loader) (*Snapshot, error) {
	var (
		status []flow.ColumnStatusSample
		daily  []flow.DailyFlowSample
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := loader.LoadColumnStatus(gctx)
		if err != nil {
			return fmt.Errorf("column status: %w", err)
		}
		status = rows
		return nil
	})
	g.Go(func() error {
		rows, err := loader.LoadDailyFlow(gctx)
		if err != nil {
			return fmt.Errorf("daily flow: %w", err)
		}
		daily = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewSnapshot(status, daily, time.Now().UTC()), nil
}

// ColumnStatus returns the hourly series ordered by timestamp.
func (s *Snapshot) ColumnStatus() []flow.ColumnStatusSample { return s.columnStatus }

// DailyFlow returns the daily series ordered by date with trailing
// averages filled in.
func (s *Snapshot) DailyFlow() []flow.DailyFlowSample { return s.dailyFlow }

// Columns returns the live workflow columns in first-seen order.
func (s *Snapshot) Columns() []string { return slices.Clone(s.columns) }

// Extent returns the observed date range over both relations.
func (s *Snapshot) Extent() flow.DateRange { return s.extent }

// LoadedAt returns when the data was read.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Stats summarizes the snapshot.
func (s *Snapshot) Stats() SnapshotStats {
	return SnapshotStats{
		ColumnStatusRows: len(s.columnStatus),
		DailyFlowRows:    len(s.dailyFlow),
		Columns:          s.Columns(),
		MinDate:          s.extent.Min,
		MaxDate:          s.extent.Max,
		LoadedAt:         s.loadedAt,
	}
}
