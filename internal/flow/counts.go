package flow

import (
	"slices"
	"time"
)

// CountByBucket counts rows per (timestamp, column). Buckets are ordered by
// timestamp and, within a timestamp, by the order in which columns first
// appear in rows.
func CountByBucket(rows []ColumnStatusSample) []BucketCount {
	type key struct {
		ts     int64
		column string
	}
	order := make(map[string]int)
	counts := make(map[key]*BucketCount)
	buckets := make([]*BucketCount, 0)

	for _, row := range rows {
		if _, ok := order[row.ColumnName]; !ok {
			order[row.ColumnName] = len(order)
		}
		k := key{ts: row.Timestamp.UnixNano(), column: row.ColumnName}
		if b, ok := counts[k]; ok {
			b.Count++
			continue
		}
		b := &BucketCount{Timestamp: row.Timestamp, ColumnName: row.ColumnName, Count: 1}
		counts[k] = b
		buckets = append(buckets, b)
	}

	slices.SortStableFunc(buckets, func(a, b *BucketCount) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return order[a.ColumnName] - order[b.ColumnName]
	})

	out := make([]BucketCount, len(buckets))
	for i, b := range buckets {
		out[i] = *b
	}
	return out
}

// Timestamps returns the distinct bucket timestamps in ascending order.
func Timestamps(buckets []BucketCount) []time.Time {
	var out []time.Time
	for _, b := range buckets {
		if n := len(out); n > 0 && out[n-1].Equal(b.Timestamp) {
			continue
		}
		out = append(out, b.Timestamp)
	}
	return out
}

// Pivot arranges bucket counts as one series per column aligned to ts.
// Missing buckets count as zero items.
func Pivot(buckets []BucketCount, columns []string, ts []time.Time) map[string][]int {
	index := make(map[int64]int, len(ts))
	for i, t := range ts {
		index[t.UnixNano()] = i
	}
	series := make(map[string][]int, len(columns))
	for _, c := range columns {
		series[c] = make([]int, len(ts))
	}
	for _, b := range buckets {
		i, ok := index[b.Timestamp.UnixNano()]
		if !ok {
			continue
		}
		if s, ok := series[b.ColumnName]; ok {
			s[i] = b.Count
		}
	}
	return series
}
