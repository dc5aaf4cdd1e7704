package flow

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrUnknownColumn is returned when an exclusion names a column that is not
// present in the data.
var ErrUnknownColumn = errors.New("unknown workflow column")

// DefaultExcludedColumns are the terminal columns hidden from the WIP view
// unless the viewer selects otherwise.
var DefaultExcludedColumns = []string{"Archived", "Done"}

/* BoundMode controls how the upper bound of a DateRange is applied */
type BoundMode int

const (
	// BoundInclusive keeps samples dated on the upper bound.
	BoundInclusive BoundMode = iota
	// BoundExclusiveUpper drops samples dated on the upper bound.
	BoundExclusiveUpper
)

// String returns the configuration spelling of the mode.
func (m BoundMode) String() string {
	switch m {
	case BoundExclusiveUpper:
		return "exclusive"
	default:
		return "inclusive"
	}
}

// ParseBoundMode parses "inclusive" or "exclusive". The empty string is
// BoundInclusive.
func ParseBoundMode(s string) (BoundMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inclusive":
		return BoundInclusive, nil
	case "exclusive":
		return BoundExclusiveUpper, nil
	default:
		return BoundInclusive, fmt.Errorf("invalid bound mode %q: expected inclusive or exclusive", s)
	}
}

/* DateRange is a pair of calendar dates; a zero bound is open */
type DateRange struct {
	Min   time.Time
	Max   time.Time
	Upper BoundMode
}

// NewDateRange returns an inclusive range between two dates.
func NewDateRange(from, to time.Time) DateRange {
	return DateRange{Min: Date(from), Max: Date(to)}
}

// Date truncates t to its calendar date, keeping the wall-clock fields of
// its own location.
func Date(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether the calendar date of t falls within r.
func (r DateRange) Contains(t time.Time) bool {
	day := Date(t)
	if !r.Min.IsZero() && day.Before(Date(r.Min)) {
		return false
	}
	if !r.Max.IsZero() {
		upper := Date(r.Max)
		if r.Upper == BoundExclusiveUpper {
			return day.Before(upper)
		}
		return !day.After(upper)
	}
	return true
}

// WithUpper returns a copy of r using the given upper bound mode.
func (r DateRange) WithUpper(mode BoundMode) DateRange {
	r.Upper = mode
	return r
}

// FilterByRange returns the rows whose date falls within r, in their
// original order. The result is never nil.
func FilterByRange[T Sample](rows []T, r DateRange) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if r.Contains(row.SampleTime()) {
			out = append(out, row)
		}
	}
	return out
}

// Extent returns the inclusive range of calendar dates observed in rows.
// The zero DateRange is returned for empty input.
func Extent[T Sample](rows []T) DateRange {
	var r DateRange
	for i, row := range rows {
		day := Date(row.SampleTime())
		if i == 0 || day.Before(r.Min) {
			r.Min = day
		}
		if i == 0 || day.After(r.Max) {
			r.Max = day
		}
	}
	return r
}

/* ColumnSet is a set of workflow column names */
type ColumnSet map[string]struct{}

// NewColumnSet builds a set from names.
func NewColumnSet(names ...string) ColumnSet {
	set := make(ColumnSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s ColumnSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in lexical order.
func (s ColumnSet) Sorted() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// ExcludeColumns drops rows whose column name is in excluded. An empty set
// returns a copy of rows with identical order and contents.
func ExcludeColumns(rows []ColumnStatusSample, excluded ColumnSet) []ColumnStatusSample {
	if len(excluded) == 0 {
		return append(make([]ColumnStatusSample, 0, len(rows)), rows...)
	}
	out := make([]ColumnStatusSample, 0, len(rows))
	for _, row := range rows {
		if !excluded.Has(row.ColumnName) {
			out = append(out, row)
		}
	}
	return out
}

// DistinctColumns returns the column names present in rows in first-seen
// order.
func DistinctColumns(rows []ColumnStatusSample) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, row := range rows {
		if _, ok := seen[row.ColumnName]; ok {
			continue
		}
		seen[row.ColumnName] = struct{}{}
		names = append(names, row.ColumnName)
	}
	return names
}

// ParseExclusions validates requested names against the live column set.
func ParseExclusions(live []string, requested []string) (ColumnSet, error) {
	liveSet := NewColumnSet(live...)
	set := make(ColumnSet, len(requested))
	for _, name := range requested {
		if !liveSet.Has(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		set[name] = struct{}{}
	}
	return set, nil
}

// DefaultExclusions returns the default excluded columns that are present
// in live.
func DefaultExclusions(live []string, defaults []string) ColumnSet {
	wanted := NewColumnSet(defaults...)
	set := make(ColumnSet)
	for _, name := range live {
		if wanted.Has(name) {
			set[name] = struct{}{}
		}
	}
	return set
}
