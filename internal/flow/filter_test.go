package flow

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func hour(d, h int) time.Time {
	return time.Date(2024, time.March, d, h, 0, 0, 0, time.UTC)
}

func statusRows() []ColumnStatusSample {
	return []ColumnStatusSample{
		{Timestamp: hour(1, 9), ColumnName: "Backlog"},
		{Timestamp: hour(1, 9), ColumnName: "Doing"},
		{Timestamp: hour(2, 0), ColumnName: "Done"},
		{Timestamp: hour(2, 15), ColumnName: "Doing"},
		{Timestamp: hour(3, 0), ColumnName: "Archived"},
		{Timestamp: hour(3, 12), ColumnName: "Backlog"},
	}
}

func TestFilterByRange(t *testing.T) {
	rows := statusRows()

	tests := []struct {
		name string
		r    DateRange
		want []ColumnStatusSample
	}{
		{
			name: "inclusive keeps whole last day",
			r:    NewDateRange(day(2), day(2)),
			want: rows[2:4],
		},
		{
			name: "exclusive upper drops last day",
			r:    NewDateRange(day(1), day(3)).WithUpper(BoundExclusiveUpper),
			want: rows[0:4],
		},
		{
			name: "open bounds",
			r:    DateRange{},
			want: rows,
		},
		{
			name: "no overlap",
			r:    NewDateRange(day(10), day(12)),
			want: []ColumnStatusSample{},
		},
		{
			name: "inverted range is empty",
			r:    NewDateRange(day(3), day(1)),
			want: []ColumnStatusSample{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterByRange(rows, tt.r)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FilterByRange() mismatch (-want +got):\n%s", diff)
			}
			if got == nil {
				t.Error("FilterByRange() returned nil")
			}
		})
	}
}

func TestFilterByRange_Idempotent(t *testing.T) {
	r := NewDateRange(day(1), day(2))
	daily := []DailyFlowSample{dailyRow(1, 1, 1), dailyRow(2, 2, 2), dailyRow(3, 3, 3)}

	once := FilterByRange(daily, r)
	twice := FilterByRange(once, r)
	if diff := cmp.Diff(once, twice, cmp.Comparer(func(a, b float64) bool {
		return a == b || (a != a && b != b)
	})); diff != "" {
		t.Errorf("second filter changed rows (-once +twice):\n%s", diff)
	}

	hourly := FilterByRange(statusRows(), r)
	if diff := cmp.Diff(hourly, FilterByRange(hourly, r)); diff != "" {
		t.Errorf("second filter changed hourly rows:\n%s", diff)
	}
}

func TestFilterByRange_LocalTimestamps(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	rows := []ColumnStatusSample{{Timestamp: time.Date(2024, 3, 2, 23, 0, 0, 0, loc), ColumnName: "Doing"}}

	got := FilterByRange(rows, NewDateRange(day(2), day(2)))
	if len(got) != 1 {
		t.Fatalf("expected the local calendar date to be used, got %d rows", len(got))
	}
}

func TestExcludeColumns(t *testing.T) {
	rows := statusRows()

	got := ExcludeColumns(rows, NewColumnSet())
	if diff := cmp.Diff(rows, got); diff != "" {
		t.Errorf("empty exclusion changed rows:\n%s", diff)
	}

	got = ExcludeColumns(rows, NewColumnSet("Done", "Archived"))
	want := []ColumnStatusSample{rows[0], rows[1], rows[3], rows[5]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExcludeColumns() mismatch (-want +got):\n%s", diff)
	}

	// Matching is exact.
	got = ExcludeColumns(rows, NewColumnSet("done"))
	if len(got) != len(rows) {
		t.Errorf("expected case-sensitive match, got %d rows", len(got))
	}
}

func TestDistinctColumns(t *testing.T) {
	got := DistinctColumns(statusRows())
	want := []string{"Backlog", "Doing", "Done", "Archived"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DistinctColumns() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseExclusions(t *testing.T) {
	live := []string{"Backlog", "Doing", "Done"}

	set, err := ParseExclusions(live, []string{"Done"})
	if err != nil {
		t.Fatalf("ParseExclusions() error = %v", err)
	}
	if !set.Has("Done") || len(set) != 1 {
		t.Errorf("unexpected set %v", set.Sorted())
	}

	_, err = ParseExclusions(live, []string{"Archived"})
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestDefaultExclusions(t *testing.T) {
	set := DefaultExclusions([]string{"Backlog", "Done"}, DefaultExcludedColumns)
	if diff := cmp.Diff([]string{"Done"}, set.Sorted()); diff != "" {
		t.Errorf("DefaultExclusions() mismatch:\n%s", diff)
	}
}

func TestParseBoundMode(t *testing.T) {
	tests := []struct {
		in      string
		want    BoundMode
		wantErr bool
	}{
		{"", BoundInclusive, false},
		{"inclusive", BoundInclusive, false},
		{"Exclusive", BoundExclusiveUpper, false},
		{"half-open", BoundInclusive, true},
	}
	for _, tt := range tests {
		got, err := ParseBoundMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBoundMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseBoundMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExtent(t *testing.T) {
	r := Extent(statusRows())
	if !r.Min.Equal(day(1)) || !r.Max.Equal(day(3)) {
		t.Errorf("Extent() = %v..%v", r.Min, r.Max)
	}
	if empty := Extent([]DailyFlowSample(nil)); !empty.Min.IsZero() || !empty.Max.IsZero() {
		t.Errorf("expected zero extent for empty input")
	}
}
