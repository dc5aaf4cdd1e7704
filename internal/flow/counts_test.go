package flow

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCountByBucket(t *testing.T) {
	rows := []ColumnStatusSample{
		{Timestamp: hour(1, 10), ColumnName: "Doing"},
		{Timestamp: hour(1, 9), ColumnName: "Backlog"},
		{Timestamp: hour(1, 9), ColumnName: "Doing"},
		{Timestamp: hour(1, 9), ColumnName: "Backlog"},
		{Timestamp: hour(1, 10), ColumnName: "Doing"},
	}

	got := CountByBucket(rows)
	want := []BucketCount{
		{Timestamp: hour(1, 9), ColumnName: "Doing", Count: 1},
		{Timestamp: hour(1, 9), ColumnName: "Backlog", Count: 2},
		{Timestamp: hour(1, 10), ColumnName: "Doing", Count: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CountByBucket() mismatch (-want +got):\n%s", diff)
	}

	if len(CountByBucket(nil)) != 0 {
		t.Error("expected no buckets for empty input")
	}
}

func TestPivot(t *testing.T) {
	buckets := CountByBucket(statusRows())
	ts := Timestamps(buckets)
	if len(ts) != 5 {
		t.Fatalf("Timestamps() = %d, want 5", len(ts))
	}

	series := Pivot(buckets, []string{"Backlog", "Doing"}, ts)
	if diff := cmp.Diff([]int{1, 0, 0, 0, 1}, series["Backlog"]); diff != "" {
		t.Errorf("Backlog series mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 0, 1, 0, 0}, series["Doing"]); diff != "" {
		t.Errorf("Doing series mismatch:\n%s", diff)
	}
	if _, ok := series["Done"]; ok {
		t.Error("unrequested column should not be pivoted")
	}
}
