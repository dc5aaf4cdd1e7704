package flow

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func arrivalsAndInventory(rows []DailyFlowSample) (arrivals, inventory []float64) {
	arrivals = make([]float64, len(rows))
	inventory = make([]float64, len(rows))
	for i, row := range rows {
		arrivals[i] = float64(row.NumArrivals)
		inventory[i] = float64(row.NumInventory)
	}
	return arrivals, inventory
}

// MeanLeadTime is mean(inventory) / mean(arrivals) over rows, the Little's
// Law estimate of lead time in days. NaN when rows is empty or there were
// no arrivals.
func MeanLeadTime(rows []DailyFlowSample) float64 {
	if len(rows) == 0 {
		return NotComputable()
	}
	arrivals, inventory := arrivalsAndInventory(rows)
	return ratio(stat.Mean(inventory, nil), stat.Mean(arrivals, nil))
}

// CumulativeLeadTime is sum(inventory) / sum(arrivals) over rows. NaN when
// rows is empty or there were no arrivals.
func CumulativeLeadTime(rows []DailyFlowSample) float64 {
	if len(rows) == 0 {
		return NotComputable()
	}
	arrivals, inventory := arrivalsAndInventory(rows)
	return ratio(floats.Sum(inventory), floats.Sum(arrivals))
}

// MeanDailyLeadTime is the mean of the per-day inventory/arrivals ratios,
// skipping days without arrivals. Unlike MeanLeadTime it weights every day
// equally, so a single quiet day with a large inventory moves it sharply.
func MeanDailyLeadTime(rows []DailyFlowSample) float64 {
	ratios := make([]float64, 0, len(rows))
	for _, row := range rows {
		if row.NumArrivals > 0 {
			ratios = append(ratios, float64(row.NumInventory)/float64(row.NumArrivals))
		}
	}
	if len(ratios) == 0 {
		return NotComputable()
	}
	return stat.Mean(ratios, nil)
}

// sortedByDate returns rows ordered by date; the input is not modified.
func sortedByDate(rows []DailyFlowSample) []DailyFlowSample {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b DailyFlowSample) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

// TrailingMean returns, for every index i, the mean of values[i-window+1..i].
// At the start of the series the window shrinks to the samples available.
func TrailingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window < 1 {
		window = 1
	}
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		out[i] = stat.Mean(values[start:i+1], nil)
	}
	return out
}

// WithTrailingAverages returns rows sorted by date with any missing
// trailing averages filled from a window of the given number of samples.
// Supplied averages are kept as they are.
func WithTrailingAverages(rows []DailyFlowSample, window int) []DailyFlowSample {
	out := sortedByDate(rows)
	arrivals, inventory := arrivalsAndInventory(out)
	avgArrivals := TrailingMean(arrivals, window)
	avgInventory := TrailingMean(inventory, window)
	for i := range out {
		if math.IsNaN(out[i].AvgArrivalsTwoWeeks) {
			out[i].AvgArrivalsTwoWeeks = avgArrivals[i]
		}
		if math.IsNaN(out[i].AvgInventoryTwoWeeks) {
			out[i].AvgInventoryTwoWeeks = avgInventory[i]
		}
	}
	return out
}

// RollingLeadTime returns avg_inventory_two_weeks / avg_arrivals_two_weeks
// for each row in date order. Rows without supplied averages use a
// TrailingWindow mean over the rows given. A point is NaN when its average
// arrivals are zero.
func RollingLeadTime(rows []DailyFlowSample) []Point {
	filled := WithTrailingAverages(rows, TrailingWindow)
	points := make([]Point, len(filled))
	for i, row := range filled {
		points[i] = Point{
			Date:  row.Date,
			Value: ratio(row.AvgInventoryTwoWeeks, row.AvgArrivalsTwoWeeks),
		}
	}
	return points
}
