package otel

import (
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	_ "github.com/jackc/pgx/v5/stdlib" // Register the pgx database/sql driver.
	_ "modernc.org/sqlite"             // Register SQLite driver.
)

// OpenSQLite opens a SQLite database with OpenTelemetry instrumentation.
// The returned *sql.DB has automatic tracing for all SQL operations
// and metrics for the connection pool.
func OpenSQLite(dataSourceName string) (*sql.DB, error) {
	db, err := open("sqlite", dataSourceName, semconv.DBSystemSqlite)
	if err != nil {
		return nil, err
	}

	// The reservations table and the River queue share this handle; a single
	// connection avoids SQLITE_BUSY between them.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	return db, nil
}

// OpenPostgres opens an instrumented database/sql handle over pgx. It is used
// for schema migrations; queries go through the pgx pool.
func OpenPostgres(dsn string) (*sql.DB, error) {
	return open("pgx", dsn, semconv.DBSystemPostgreSQL)
}

func open(driver, dsn string, system attribute.KeyValue) (*sql.DB, error) {
	db, err := otelsql.Open(driver, dsn, otelsql.WithAttributes(system))
	if err != nil {
		return nil, fmt.Errorf("opening instrumented %s database: %w", driver, err)
	}

	if _, err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(system)); err != nil {
		db.Close()
		return nil, fmt.Errorf("registering db stats metrics: %w", err)
	}

	return db, nil
}
