package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/swa/agilemetrics/internal/flow"
	"github.com/swa/agilemetrics/internal/validation"
)

/* Tables names the two source relations */
type Tables struct {
	ColumnStatus string
	DailyFlow    string
}

// Queries provides read access to the flow relations
type Queries struct {
	db     *sqlx.DB
	tables Tables
}

// NewQueries creates a new Queries instance. Table names are validated as
// SQL identifiers since they are interpolated into the query text.
func NewQueries(db *sqlx.DB, tables Tables) (*Queries, error) {
	if err := validation.ValidateIdentifier("column_status_table", tables.ColumnStatus); err != nil {
		return nil, err
	}
	if err := validation.ValidateIdentifier("daily_flow_table", tables.DailyFlow); err != nil {
		return nil, err
	}
	return &Queries{db: db, tables: tables}, nil
}

// GetDB returns the underlying database connection
func (q *Queries) GetDB() *sqlx.DB {
	return q.db
}

// Tables returns the configured relation names
func (q *Queries) Tables() Tables {
	return q.tables
}

// Ping checks the connection
func (q *Queries) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// LoadColumnStatus reads the hourly column status relation ordered by time
func (q *Queries) LoadColumnStatus(ctx context.Context) ([]flow.ColumnStatusSample, error) {
	query := fmt.Sprintf(`SELECT date_hour, column_name FROM %s ORDER BY date_hour`, q.tables.ColumnStatus)

	var rows []columnStatusRow
	if err := q.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load %s: %w", q.tables.ColumnStatus, err)
	}

	samples := make([]flow.ColumnStatusSample, len(rows))
	for i, r := range rows {
		samples[i] = r.sample()
	}
	return samples, nil
}

// LoadDailyFlow reads the daily arrivals/inventory relation ordered by date
func (q *Queries) LoadDailyFlow(ctx context.Context) ([]flow.DailyFlowSample, error) {
	query := fmt.Sprintf(`
		SELECT date, num_arrivals, num_inventory,
		       avg_daily_arrival_past_two_weeks, avg_daily_inventory_past_two_weeks
		FROM %s
		ORDER BY date`, q.tables.DailyFlow)

	var rows []dailyFlowRow
	if err := q.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load %s: %w", q.tables.DailyFlow, err)
	}

	samples := make([]flow.DailyFlowSample, len(rows))
	for i, r := range rows {
		samples[i] = r.sample()
	}
	return samples, nil
}
