// Package sink coerces enriched records into strict column types and
// persists them to the Bus_Status Postgres table.
package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	pkgotel "carris2pg/pkg/otel"
	"carris2pg/pkg/types"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PersistenceError reports a sink failure partway through a batch. Rows
// written before the failure stand; no transaction spans the batch.
type PersistenceError struct {
	Written int
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed after %d rows: %v", e.Written, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store writes enriched vehicle records to Postgres.
type Store struct {
	db     execer
	sqlDB  *sql.DB
	tracer trace.Tracer
}

// Open connects to Postgres through the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sink: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db, sqlDB: db, tracer: otel.Tracer("sink")}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.sqlDB != nil {
		return s.sqlDB.Close()
	}
	return nil
}

const insertSQL = `
INSERT INTO Bus_Status (
    Line_ID, Current_Status, Latitude, Longitude, Speed,
    Stop_ID, District, Travel_ID, Date, Time, Day, Workday
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// Insert writes one row per record, in input order. It returns the number
// of rows durably written; on failure the already written rows are not
// rolled back and the error is a *PersistenceError carrying that count.
func (s *Store) Insert(ctx context.Context, records []types.Record) (int, error) {
	ctx, span := s.tracer.Start(ctx, "sink.insert",
		trace.WithAttributes(attribute.Int("records_count", len(records))),
	)
	defer span.End()

	written := 0
	for _, rec := range records {
		row := Coerce(rec)
		_, err := s.db.ExecContext(ctx, insertSQL,
			row.LineID, row.Status, row.Latitude, row.Longitude, row.Speed,
			row.StopID, row.District, row.TravelID,
			nullable(row.Date), nullable(row.Time), row.Day, row.Workday,
		)
		if err != nil {
			pkgotel.RecordError(span, err, pkgotel.ErrorTypePersistence, true)
			span.SetAttributes(attribute.Int("rows_written", written))
			return written, &PersistenceError{Written: written, Err: err}
		}
		written++
	}

	span.SetAttributes(attribute.Int("rows_written", written))
	pkgotel.SetSpanOk(span)
	return written, nil
}

// nullable maps empty date/time strings to SQL NULL; the columns are typed
// and reject empty strings.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
