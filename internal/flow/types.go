// Package flow computes kanban flow metrics (lead time, rolling lead time,
// work-in-progress counts) from column status and daily flow samples.
//
// Every function is a pure function of its inputs. Metrics that cannot be
// computed (empty input, zero arrivals) are reported as NaN; use Computable
// to test for that.
package flow

import (
	"math"
	"time"
)

// TrailingWindow is the number of daily samples in the two-week trailing
// average used by the rolling lead time.
const TrailingWindow = 14

// Sample is anything carrying a point in time that can be filtered by date.
type Sample interface {
	SampleTime() time.Time
}

/* ColumnStatusSample records one item seen in a workflow column at an hourly bucket */
type ColumnStatusSample struct {
	Timestamp  time.Time `json:"timestamp"`
	ColumnName string    `json:"column_name"`
}

// SampleTime implements Sample.
func (s ColumnStatusSample) SampleTime() time.Time { return s.Timestamp }

/* DailyFlowSample holds one day of arrival and inventory counts */
type DailyFlowSample struct {
	Date         time.Time `json:"date"`
	NumArrivals  int       `json:"num_arrivals"`
	NumInventory int       `json:"num_inventory"`
	// Trailing two-week averages. NaN when the source did not supply them.
	AvgArrivalsTwoWeeks  float64 `json:"-"`
	AvgInventoryTwoWeeks float64 `json:"-"`
}

// SampleTime implements Sample.
func (s DailyFlowSample) SampleTime() time.Time { return s.Date }

// HasTrailingAverages reports whether both trailing averages are present.
func (s DailyFlowSample) HasTrailingAverages() bool {
	return !math.IsNaN(s.AvgArrivalsTwoWeeks) && !math.IsNaN(s.AvgInventoryTwoWeeks)
}

/* Point is one value of a daily series */
type Point struct {
	Date  time.Time
	Value float64
}

/* BucketCount is the number of items observed in a column at a timestamp */
type BucketCount struct {
	Timestamp  time.Time `json:"timestamp"`
	ColumnName string    `json:"column_name"`
	Count      int       `json:"count"`
}

// Computable reports whether x is a usable metric value.
func Computable(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// NotComputable is the value returned for metrics that have no defined
// result.
func NotComputable() float64 {
	return math.NaN()
}

func ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(num) || math.IsNaN(den) {
		return math.NaN()
	}
	return num / den
}
