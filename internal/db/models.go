package db

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/swa/agilemetrics/internal/flow"
)

// Layouts accepted for timestamps stored as text (sqlite)
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

/* Timestamp scans a time from a native time value or its text form */
type Timestamp struct {
	time.Time
}

// Scan implements sql.Scanner
func (t *Timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		return fmt.Errorf("timestamp is NULL")
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (t *Timestamp) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

/* columnStatusRow is one row of the hourly column status relation */
type columnStatusRow struct {
	DateHour   Timestamp `db:"date_hour"`
	ColumnName string    `db:"column_name"`
}

func (r columnStatusRow) sample() flow.ColumnStatusSample {
	return flow.ColumnStatusSample{
		Timestamp:  r.DateHour.Time,
		ColumnName: r.ColumnName,
	}
}

/* dailyFlowRow is one row of the daily flow relation */
type dailyFlowRow struct {
	Date                 Timestamp       `db:"date"`
	NumArrivals          int64           `db:"num_arrivals"`
	NumInventory         int64           `db:"num_inventory"`
	AvgArrivalsTwoWeeks  sql.NullFloat64 `db:"avg_daily_arrival_past_two_weeks"`
	AvgInventoryTwoWeeks sql.NullFloat64 `db:"avg_daily_inventory_past_two_weeks"`
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func (r dailyFlowRow) sample() flow.DailyFlowSample {
	return flow.DailyFlowSample{
		Date:                 r.Date.Time,
		NumArrivals:          int(r.NumArrivals),
		NumInventory:         int(r.NumInventory),
		AvgArrivalsTwoWeeks:  nullToNaN(r.AvgArrivalsTwoWeeks),
		AvgInventoryTwoWeeks: nullToNaN(r.AvgInventoryTwoWeeks),
	}
}
