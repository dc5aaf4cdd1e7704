package testing

import (
	"context"
	"math"
	"time"

	"github.com/swa/agilemetrics/internal/flow"
)

// Day returns midnight UTC of 2024-03-<n>
func Day(n int) time.Time {
	return time.Date(2024, time.March, n, 0, 0, 0, 0, time.UTC)
}

// Hour returns 2024-03-<d> at hour h, UTC
func Hour(d, h int) time.Time {
	return Day(d).Add(time.Duration(h) * time.Hour)
}

/*
 * FixtureColumnStatus is a three-day board history:
 *
 *	03-01 09h  Backlog x2, Doing
 *	03-01 10h  Backlog, Doing, Done
 *	03-02 09h  Doing x2, Done
 *	03-03 09h  Doing, Done, Archived
 */
func FixtureColumnStatus() []flow.ColumnStatusSample {
	at := func(d, h int, column string) flow.ColumnStatusSample {
		return flow.ColumnStatusSample{Timestamp: Hour(d, h), ColumnName: column}
	}
	return []flow.ColumnStatusSample{
		at(1, 9, "Backlog"), at(1, 9, "Backlog"), at(1, 9, "Doing"),
		at(1, 10, "Backlog"), at(1, 10, "Doing"), at(1, 10, "Done"),
		at(2, 9, "Doing"), at(2, 9, "Doing"), at(2, 9, "Done"),
		at(3, 9, "Doing"), at(3, 9, "Done"), at(3, 9, "Archived"),
	}
}

/*
 * FixtureDailyFlow has arrivals 2, 1, 0 and inventory 3, 3, 2 without
 * precomputed averages. Mean and cumulative lead time are both 8/3.
 */
func FixtureDailyFlow() []flow.DailyFlowSample {
	row := func(d, arrivals, inventory int) flow.DailyFlowSample {
		return flow.DailyFlowSample{
			Date:                 Day(d),
			NumArrivals:          arrivals,
			NumInventory:         inventory,
			AvgArrivalsTwoWeeks:  math.NaN(),
			AvgInventoryTwoWeeks: math.NaN(),
		}
	}
	return []flow.DailyFlowSample{row(1, 2, 3), row(2, 1, 3), row(3, 0, 2)}
}

/* StaticLoader serves fixed rows, or Err when set */
type StaticLoader struct {
	ColumnStatus []flow.ColumnStatusSample
	DailyFlow    []flow.DailyFlowSample
	Err          error
}

// NewFixtureLoader returns a loader over the standard fixture
func NewFixtureLoader() *StaticLoader {
	return &StaticLoader{
		ColumnStatus: FixtureColumnStatus(),
		DailyFlow:    FixtureDailyFlow(),
	}
}

// LoadColumnStatus returns a copy of the configured rows
func (l *StaticLoader) LoadColumnStatus(ctx context.Context) ([]flow.ColumnStatusSample, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	return append([]flow.ColumnStatusSample(nil), l.ColumnStatus...), nil
}

// LoadDailyFlow returns a copy of the configured rows
func (l *StaticLoader) LoadDailyFlow(ctx context.Context) ([]flow.DailyFlowSample, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	return append([]flow.DailyFlowSample(nil), l.DailyFlow...), nil
}
