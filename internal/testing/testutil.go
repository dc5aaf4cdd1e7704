package testing

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/swa/agilemetrics/internal/db"
	"github.com/swa/agilemetrics/internal/flow"
)

// Default relation names used by the fixture database
const (
	ColumnStatusTable = "kanban_column_status_by_hour"
	DailyFlowTable    = "kanban_daily_flow"
)

/* TestDB holds test database connection */
type TestDB struct {
	DB      *sqlx.DB
	Queries *db.Queries
	// Path is the sqlite file, usable as a DSN
	Path string
}

/* SetupTestDB creates an empty sqlite database file with both flow relations */
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "flow.db")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := db.OpenDSN(ctx, db.DriverSQLite, path, db.PoolConfig{MaxOpenConns: 1}, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := runMigrations(ctx, conn); err != nil {
		conn.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	queries, err := db.NewQueries(conn, db.Tables{
		ColumnStatus: ColumnStatusTable,
		DailyFlow:    DailyFlowTable,
	})
	if err != nil {
		conn.Close()
		t.Fatalf("Failed to create queries: %v", err)
	}

	tdb := &TestDB{DB: conn, Queries: queries, Path: path}
	t.Cleanup(func() { tdb.DB.Close() })
	return tdb
}

/* SetupFixtureDB creates a test database seeded with the standard fixture */
func SetupFixtureDB(t *testing.T) *TestDB {
	t.Helper()
	tdb := SetupTestDB(t)
	ctx := context.Background()
	if err := tdb.InsertColumnStatus(ctx, FixtureColumnStatus()...); err != nil {
		t.Fatalf("Failed to seed column status: %v", err)
	}
	if err := tdb.InsertDailyFlow(ctx, FixtureDailyFlow()...); err != nil {
		t.Fatalf("Failed to seed daily flow: %v", err)
	}
	return tdb
}

/* InsertColumnStatus stores rows with timestamps as text, the way sqlite exports do */
func (tdb *TestDB) InsertColumnStatus(ctx context.Context, rows ...flow.ColumnStatusSample) error {
	query := fmt.Sprintf(`INSERT INTO %s (date_hour, column_name) VALUES (?, ?)`, ColumnStatusTable)
	for _, r := range rows {
		if _, err := tdb.DB.ExecContext(ctx, query, r.Timestamp.UTC().Format("2006-01-02 15:04:05"), r.ColumnName); err != nil {
			return err
		}
	}
	return nil
}

/* InsertDailyFlow stores rows; NaN averages are written as NULL */
func (tdb *TestDB) InsertDailyFlow(ctx context.Context, rows ...flow.DailyFlowSample) error {
	query := fmt.Sprintf(`INSERT INTO %s (date, num_arrivals, num_inventory,
		avg_daily_arrival_past_two_weeks, avg_daily_inventory_past_two_weeks) VALUES (?, ?, ?, ?, ?)`, DailyFlowTable)
	for _, r := range rows {
		var avgArr, avgInv interface{}
		if flow.Computable(r.AvgArrivalsTwoWeeks) {
			avgArr = r.AvgArrivalsTwoWeeks
		}
		if flow.Computable(r.AvgInventoryTwoWeeks) {
			avgInv = r.AvgInventoryTwoWeeks
		}
		if _, err := tdb.DB.ExecContext(ctx, query, r.Date.Format("2006-01-02"), r.NumArrivals, r.NumInventory, avgArr, avgInv); err != nil {
			return err
		}
	}
	return nil
}

/* runMigrations creates the flow relations */
func runMigrations(ctx context.Context, conn *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS ` + ColumnStatusTable + ` (
			date_hour TEXT NOT NULL,
			column_name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ` + DailyFlowTable + ` (
			date TEXT NOT NULL,
			num_arrivals INTEGER NOT NULL,
			num_inventory INTEGER NOT NULL,
			avg_daily_arrival_past_two_weeks REAL,
			avg_daily_inventory_past_two_weeks REAL
		);`,
	}

	for _, migration := range migrations {
		if _, err := conn.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
