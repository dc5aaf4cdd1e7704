package dashboard

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/swa/agilemetrics/internal/flow"
	"github.com/swa/agilemetrics/internal/metrics"
	"github.com/swa/agilemetrics/internal/validation"
)

/* Metric is a flow value that may be not computable (NaN) */
type Metric float64

// Valid reports whether the value is computable.
func (m Metric) Valid() bool { return flow.Computable(float64(m)) }

// MarshalJSON encodes non-computable values as null.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(m))
}

// UnmarshalJSON decodes null as not computable.
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Metric(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}

// String formats the value with two decimals, or n/a.
func (m Metric) String() string {
	if !m.Valid() {
		return "n/a"
	}
	return strconv.FormatFloat(float64(m), 'f', 2, 64)
}

/* LeadTime groups the scalar lead time statistics of a selection */
type LeadTime struct {
	Mean       Metric `json:"mean"`
	Cumulative Metric `json:"cumulative"`
	MeanDaily  Metric `json:"mean_daily"`
	Days       int    `json:"days"`
}

/* DailyPoint is one row of the daily flow table */
type DailyPoint struct {
	Date            string `json:"date"`
	NumArrivals     int    `json:"num_arrivals"`
	NumInventory    int    `json:"num_inventory"`
	AvgArrivals     Metric `json:"avg_daily_arrival_past_two_weeks"`
	AvgInventory    Metric `json:"avg_daily_inventory_past_two_weeks"`
	RollingLeadTime Metric `json:"rolling_lead_time"`
}

/* Report is the result of one computation pass over a selection */
type Report struct {
	MinDate          string             `json:"min_date"`
	MaxDate          string             `json:"max_date"`
	HourlyBound      string             `json:"hourly_bound"`
	Columns          []string           `json:"columns"`
	Excluded         []string           `json:"excluded"`
	LeadTime         LeadTime           `json:"lead_time"`
	Daily            []DailyPoint       `json:"daily"`
	WIP              []flow.BucketCount `json:"wip"`
	CumulativeFlow   []flow.BucketCount `json:"cumulative_flow"`
	SnapshotLoadedAt time.Time          `json:"snapshot_loaded_at"`
}

// ComputeLeadTime returns the scalar statistics over daily rows.
func ComputeLeadTime(rows []flow.DailyFlowSample) LeadTime {
	return LeadTime{
		Mean:       Metric(flow.MeanLeadTime(rows)),
		Cumulative: Metric(flow.CumulativeLeadTime(rows)),
		MeanDaily:  Metric(flow.MeanDailyLeadTime(rows)),
		Days:       len(rows),
	}
}

// NotComputable lists the statistics without a defined value.
func (lt LeadTime) NotComputable() []string {
	var names []string
	if !lt.Mean.Valid() {
		names = append(names, "mean")
	}
	if !lt.Cumulative.Valid() {
		names = append(names, "cumulative")
	}
	if !lt.MeanDaily.Valid() {
		names = append(names, "mean_daily")
	}
	return names
}

// Build runs one synchronous computation pass. WIP counts use the
// date-filtered, column-filtered hourly series; cumulative flow keeps all
// columns.
func Build(snap *Snapshot, sel Selection) *Report {
	hourlyRange := sel.Range.WithUpper(sel.HourlyBound)
	hourly := flow.FilterByRange(snap.ColumnStatus(), hourlyRange)
	daily := flow.FilterByRange(snap.DailyFlow(), sel.Range.WithUpper(flow.BoundInclusive))

	rolling := flow.RollingLeadTime(daily)
	points := make([]DailyPoint, len(daily))
	for i, row := range daily {
		points[i] = DailyPoint{
			Date:            validation.FormatDate(row.Date),
			NumArrivals:     row.NumArrivals,
			NumInventory:    row.NumInventory,
			AvgArrivals:     Metric(row.AvgArrivalsTwoWeeks),
			AvgInventory:    Metric(row.AvgInventoryTwoWeeks),
			RollingLeadTime: Metric(rolling[i].Value),
		}
	}

	report := &Report{
		MinDate:          validation.FormatDate(sel.Range.Min),
		MaxDate:          validation.FormatDate(sel.Range.Max),
		HourlyBound:      sel.HourlyBound.String(),
		Columns:          snap.Columns(),
		Excluded:         sel.Excluded.Sorted(),
		LeadTime:         ComputeLeadTime(daily),
		Daily:            points,
		WIP:              flow.CountByBucket(flow.ExcludeColumns(hourly, sel.Excluded)),
		CumulativeFlow:   flow.CountByBucket(hourly),
		SnapshotLoadedAt: snap.LoadedAt(),
	}
	recordComputation(report.LeadTime)
	return report
}

// BuildLeadTime computes only the scalar statistics for a selection.
func BuildLeadTime(snap *Snapshot, sel Selection) LeadTime {
	lt := ComputeLeadTime(flow.FilterByRange(snap.DailyFlow(), sel.Range.WithUpper(flow.BoundInclusive)))
	recordComputation(lt)
	return lt
}

func recordComputation(lt LeadTime) {
	missing := lt.NotComputable()
	metrics.RecordComputation()
	for _, name := range missing {
		metrics.RecordNotComputable(name)
	}
	metrics.GetGlobalMetrics().RecordComputation(missing...)
}

/* ExtentInfo describes what a viewer may select */
type ExtentInfo struct {
	MinDate         string   `json:"min_date"`
	MaxDate         string   `json:"max_date"`
	Columns         []string `json:"columns"`
	DefaultExcluded []string `json:"default_excluded"`
	HourlyBound     string   `json:"hourly_bound"`
}

// Describe returns the selectable extent and defaults of snap.
func Describe(snap *Snapshot, defaults Defaults) ExtentInfo {
	extent := snap.Extent()
	return ExtentInfo{
		MinDate:         validation.FormatDate(extent.Min),
		MaxDate:         validation.FormatDate(extent.Max),
		Columns:         snap.Columns(),
		DefaultExcluded: flow.DefaultExclusions(snap.Columns(), defaults.Excluded).Sorted(),
		HourlyBound:     defaults.HourlyBound.String(),
	}
}
