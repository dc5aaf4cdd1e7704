package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/swa/agilemetrics/internal/flow"
	"github.com/swa/agilemetrics/internal/logging"
	testutil "github.com/swa/agilemetrics/internal/testing"
	"github.com/swa/agilemetrics/internal/validation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testDefaults = Defaults{Excluded: flow.DefaultExcludedColumns, HourlyBound: flow.BoundInclusive}

func fixtureSnapshot() *Snapshot {
	return NewSnapshot(testutil.FixtureColumnStatus(), testutil.FixtureDailyFlow(), testutil.Day(4))
}

func TestNewSnapshot(t *testing.T) {
	status := testutil.FixtureColumnStatus()
	// Reverse so the snapshot has to sort
	for i, j := 0, len(status)-1; i < j; i, j = i+1, j-1 {
		status[i], status[j] = status[j], status[i]
	}
	daily := testutil.FixtureDailyFlow()
	daily[0], daily[2] = daily[2], daily[0]

	snap := NewSnapshot(status, daily, testutil.Day(4))

	assert.True(t, snap.ColumnStatus()[0].Timestamp.Equal(testutil.Hour(1, 9)))
	assert.True(t, snap.DailyFlow()[0].Date.Equal(testutil.Day(1)))
	assert.Equal(t, testutil.Day(3), daily[0].Date, "input must not be reordered")
	assert.True(t, math.IsNaN(daily[0].AvgArrivalsTwoWeeks), "input must not be filled")
	for _, row := range snap.DailyFlow() {
		assert.True(t, row.HasTrailingAverages())
	}

	extent := snap.Extent()
	assert.Equal(t, testutil.Day(1), extent.Min)
	assert.Equal(t, testutil.Day(3), extent.Max)

	stats := snap.Stats()
	assert.Equal(t, 12, stats.ColumnStatusRows)
	assert.Equal(t, 3, stats.DailyFlowRows)
}

func TestNewSnapshot_ColumnsFirstSeen(t *testing.T) {
	snap := fixtureSnapshot()
	assert.Equal(t, []string{"Backlog", "Doing", "Done", "Archived"}, snap.Columns())
}

func TestNewSnapshot_Empty(t *testing.T) {
	snap := NewSnapshot(nil, nil, time.Now())
	assert.NotNil(t, snap.Columns())
	assert.True(t, snap.Extent().Min.IsZero())

	report := Build(snap, DefaultSelection(snap, testDefaults))
	assert.False(t, report.LeadTime.Mean.Valid())
	assert.Empty(t, report.Daily)
	assert.Empty(t, report.WIP)
}

func TestBuild_DefaultSelection(t *testing.T) {
	snap := fixtureSnapshot()
	report := Build(snap, DefaultSelection(snap, testDefaults))

	assert.Equal(t, "2024-03-01", report.MinDate)
	assert.Equal(t, "2024-03-03", report.MaxDate)
	assert.Equal(t, []string{"Archived", "Done"}, report.Excluded)

	assert.InDelta(t, 8.0/3.0, float64(report.LeadTime.Mean), 1e-9)
	assert.InDelta(t, 8.0/3.0, float64(report.LeadTime.Cumulative), 1e-9)
	assert.InDelta(t, 2.25, float64(report.LeadTime.MeanDaily), 1e-9)
	assert.Equal(t, 3, report.LeadTime.Days)

	require.Len(t, report.Daily, 3)
	assert.InDelta(t, 1.5, float64(report.Daily[0].RollingLeadTime), 1e-9)
	assert.InDelta(t, 2.0, float64(report.Daily[1].RollingLeadTime), 1e-9)
	assert.InDelta(t, 8.0/3.0, float64(report.Daily[2].RollingLeadTime), 1e-9)

	want := []flow.BucketCount{
		{Timestamp: testutil.Hour(1, 9), ColumnName: "Backlog", Count: 2},
		{Timestamp: testutil.Hour(1, 9), ColumnName: "Doing", Count: 1},
		{Timestamp: testutil.Hour(1, 10), ColumnName: "Backlog", Count: 1},
		{Timestamp: testutil.Hour(1, 10), ColumnName: "Doing", Count: 1},
		{Timestamp: testutil.Hour(2, 9), ColumnName: "Doing", Count: 2},
		{Timestamp: testutil.Hour(3, 9), ColumnName: "Doing", Count: 1},
	}
	assert.Equal(t, want, report.WIP)
	assert.Len(t, report.CumulativeFlow, 10)
}

func TestBuild_SingleDayWithoutArrivals(t *testing.T) {
	snap := fixtureSnapshot()
	sel, err := SelectionRequest{MinDate: "2024-03-03", MaxDate: "2024-03-03"}.Resolve(snap, testDefaults)
	require.NoError(t, err)

	report := Build(snap, sel)
	assert.False(t, report.LeadTime.Mean.Valid())
	assert.False(t, report.LeadTime.Cumulative.Valid())
	assert.False(t, report.LeadTime.MeanDaily.Valid())
	require.Len(t, report.Daily, 1)
	// Trailing averages come from the full history, not the selection
	assert.InDelta(t, 8.0/3.0, float64(report.Daily[0].RollingLeadTime), 1e-9)

	data, err := json.Marshal(report.LeadTime)
	require.NoError(t, err)
	assert.JSONEq(t, `{"mean":null,"cumulative":null,"mean_daily":null,"days":1}`, string(data))
}

func TestBuild_ExclusiveHourlyBound(t *testing.T) {
	snap := fixtureSnapshot()
	sel, err := SelectionRequest{MaxDate: "2024-03-03", HourlyBound: "exclusive"}.Resolve(snap, testDefaults)
	require.NoError(t, err)

	report := Build(snap, sel)
	assert.Len(t, report.CumulativeFlow, 7)
	assert.Len(t, report.Daily, 3, "daily series keeps an inclusive upper bound")
	assert.Equal(t, "exclusive", report.HourlyBound)
}

func TestBuild_InvertedRange(t *testing.T) {
	snap := fixtureSnapshot()
	sel, err := SelectionRequest{MinDate: "2024-03-03", MaxDate: "2024-03-01"}.Resolve(snap, testDefaults)
	require.NoError(t, err)

	report := Build(snap, sel)
	assert.Empty(t, report.Daily)
	assert.Empty(t, report.WIP)
	assert.False(t, report.LeadTime.Mean.Valid())
}

func TestSelectionRequest_Resolve(t *testing.T) {
	snap := fixtureSnapshot()
	tests := []struct {
		name     string
		req      SelectionRequest
		wantErr  string
		excluded []string
	}{
		{"defaults", SelectionRequest{}, "", []string{"Archived", "Done"}},
		{"explicit empty exclusion", SelectionRequest{Exclude: []string{}}, "", []string{}},
		{"explicit exclusion", SelectionRequest{Exclude: []string{" Backlog "}}, "", []string{"Backlog"}},
		{"unknown column", SelectionRequest{Exclude: []string{"Blocked"}}, "exclude", nil},
		{"bad min date", SelectionRequest{MinDate: "03/01/2024"}, "min_date", nil},
		{"bad max date", SelectionRequest{MaxDate: "2024-02-30"}, "max_date", nil},
		{"bad bound", SelectionRequest{HourlyBound: "open"}, "hourly_bound", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := tt.req.Resolve(snap, testDefaults)
			if tt.wantErr != "" {
				verr, ok := validation.AsValidationError(err)
				require.True(t, ok, "expected validation error, got %v", err)
				assert.Equal(t, tt.wantErr, verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.excluded, sel.Excluded.Sorted())
		})
	}
}

func TestDefaultSelection_NoDefaultColumnsPresent(t *testing.T) {
	snap := NewSnapshot([]flow.ColumnStatusSample{
		{Timestamp: testutil.Hour(1, 9), ColumnName: "Doing"},
	}, nil, time.Now())
	sel := DefaultSelection(snap, testDefaults)
	assert.Empty(t, sel.Excluded)
}

func TestDescribe(t *testing.T) {
	info := Describe(fixtureSnapshot(), testDefaults)
	assert.Equal(t, "2024-03-01", info.MinDate)
	assert.Equal(t, "2024-03-03", info.MaxDate)
	assert.Equal(t, []string{"Archived", "Done"}, info.DefaultExcluded)
	assert.Equal(t, "inclusive", info.HourlyBound)
}

func TestMetric_JSON(t *testing.T) {
	data, err := json.Marshal([]Metric{1.5, Metric(math.NaN()), Metric(math.Inf(1))})
	require.NoError(t, err)
	assert.Equal(t, `[1.5,null,null]`, string(data))

	var back []Metric
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Metric(1.5), back[0])
	assert.False(t, back[1].Valid())
	assert.Equal(t, "n/a", back[1].String())
}

func TestStore_Reload(t *testing.T) {
	loader := testutil.NewFixtureLoader()
	store := NewStore(loader, logging.NewNop())

	_, err := store.Current()
	assert.ErrorIs(t, err, ErrNoSnapshot)

	first, err := store.Reload(context.Background())
	require.NoError(t, err)
	current, err := store.Current()
	require.NoError(t, err)
	assert.Same(t, first, current)

	loader.Err = errors.New("connection refused")
	_, err = store.Reload(context.Background())
	require.Error(t, err)

	current, err = store.Current()
	require.NoError(t, err)
	assert.Same(t, first, current, "a failed reload keeps the previous snapshot")
}

func TestLoad_PropagatesErrors(t *testing.T) {
	loader := &testutil.StaticLoader{Err: errors.New("boom")}
	_, err := Load(context.Background(), loader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestReport_WriteText(t *testing.T) {
	snap := fixtureSnapshot()
	sel, err := SelectionRequest{MinDate: "2024-03-03"}.Resolve(snap, testDefaults)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Build(snap, sel).WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "Mean lead time:        n/a days")
	assert.Contains(t, out, "2024-03-03")
	assert.True(t, strings.Contains(out, "Archived, Done"))
}
