package sink

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"carris2pg/pkg/types"

	"go.opentelemetry.io/otel"
)

type fakeExecer struct {
	calls    int
	failAt   int // fail on the nth call, 1-based; 0 never fails
	captured [][]any
}

func (f *fakeExecer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.calls++
	if f.failAt > 0 && f.calls == f.failAt {
		return nil, errors.New("connection reset")
	}
	f.captured = append(f.captured, args)
	return nil, nil
}

func testStore(db execer) *Store {
	return &Store{db: db, tracer: otel.Tracer("sink-test")}
}

func makeRecords(n int) []types.Record {
	records := make([]types.Record, n)
	for i := range records {
		records[i] = types.Record{
			LineID:   "728",
			Status:   types.StatusInTransit,
			District: "Alvalade",
			Date:     "2024-05-29",
			Time:     "16:26:40",
		}
	}
	return records
}

func TestInsertWritesAllRows(t *testing.T) {
	fake := &fakeExecer{}
	store := testStore(fake)

	written, err := store.Insert(context.Background(), makeRecords(4))
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if written != 4 {
		t.Errorf("written = %d, want 4", written)
	}
	if fake.calls != 4 {
		t.Errorf("exec calls = %d, want 4", fake.calls)
	}
}

func TestInsertPartialFailure(t *testing.T) {
	fake := &fakeExecer{failAt: 4}
	store := testStore(fake)

	written, err := store.Insert(context.Background(), makeRecords(10))

	if written != 3 {
		t.Errorf("written = %d, want 3", written)
	}
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("Insert() error = %T, want *PersistenceError", err)
	}
	if perr.Written != 3 {
		t.Errorf("PersistenceError.Written = %d, want 3", perr.Written)
	}
	if fake.calls != 4 {
		t.Errorf("exec calls = %d, want 4 (no retries past the failure)", fake.calls)
	}
}

func TestInsertCoercesArguments(t *testing.T) {
	fake := &fakeExecer{}
	store := testStore(fake)

	records := []types.Record{{
		LineID:   "728",
		Status:   types.StatusStationed,
		StopID:   "not-a-number",
		District: "",
	}}
	if _, err := store.Insert(context.Background(), records); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	args := fake.captured[0]
	if args[0] != 728 {
		t.Errorf("Line_ID arg = %v, want 728", args[0])
	}
	if args[5] != 0 {
		t.Errorf("Stop_ID arg = %v, want 0", args[5])
	}
	if args[6] != "Unknown" {
		t.Errorf("District arg = %v, want Unknown", args[6])
	}
	// empty date and time go to the database as NULL
	if args[8] != nil || args[9] != nil {
		t.Errorf("Date/Time args = (%v, %v), want (nil, nil)", args[8], args[9])
	}
}

func TestInsertEmptyBatch(t *testing.T) {
	fake := &fakeExecer{}
	store := testStore(fake)

	written, err := store.Insert(context.Background(), nil)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if written != 0 || fake.calls != 0 {
		t.Errorf("written = %d, calls = %d, want 0 and 0", written, fake.calls)
	}
}

func TestPersistenceErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &PersistenceError{Written: 3, Err: cause}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}
