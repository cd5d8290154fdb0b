package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carris2pg/pkg/config"
	"carris2pg/pkg/enrich"
	"carris2pg/pkg/feed"
	"carris2pg/pkg/reference"
	"carris2pg/pkg/types"

	"go.opentelemetry.io/otel"
)

type stubAdapter struct {
	name    string
	records []types.RawRecord
	err     error
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Fetch(ctx context.Context) ([]types.RawRecord, error) {
	return s.records, s.err
}

type fakeSink struct {
	inserted []types.Record
	err      error
}

func (f *fakeSink) Insert(ctx context.Context, records []types.Record) (int, error) {
	f.inserted = append(f.inserted, records...)
	if f.err != nil {
		return 0, f.err
	}
	return len(records), nil
}

func nominatimStub(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address": {"suburb": "Alvalade"}}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func testPipeline(t *testing.T, metro, carris feed.Adapter, store Sink) *Pipeline {
	t.Helper()
	return &Pipeline{
		cfg: &config.Config{
			GeocodeWorkers: 1,
			DryRun:         store == nil,
		},
		metro:     metro,
		carris:    carris,
		geocoder:  enrich.NewGeocoder(nominatimStub(t).URL, 0, time.Second),
		store:     store,
		reference: reference.Table{"728": {ColorID: "Red", Operator: "Carris"}},
		tracer:    otel.Tracer("pipeline-test"),
	}
}

func metroRaw(lineID string) types.RawRecord {
	return types.RawRecord{
		"id":             "44|" + lineID,
		"line_id":        lineID,
		"lat":            38.70,
		"lon":            -9.15,
		"current_status": "IN_TRANSIT_TO",
		"timestamp":      1717000000.0,
	}
}

func carrisRaw(entityID string) types.RawRecord {
	return types.RawRecord{
		"entity_id":          entityID,
		"position_latitude":  float32(38.74),
		"position_longitude": float32(-9.14),
		"current_status":     int64(1),
		"timestamp":          uint64(1717000000),
	}
}

func TestRunOnceMergesBothFeeds(t *testing.T) {
	metro := &stubAdapter{
		name:    string(types.SourceMetropolitana),
		records: []types.RawRecord{metroRaw("1000"), metroRaw("2000")},
	}
	carris := &stubAdapter{
		name:    string(types.SourceCarris),
		records: []types.RawRecord{carrisRaw("9999728")},
	}
	store := &fakeSink{}

	p := testPipeline(t, metro, carris, store)
	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(store.inserted) != 3 {
		t.Fatalf("inserted %d records, want 3", len(store.inserted))
	}
	// REST records lead, protobuf records follow
	for i, want := range []string{"1000", "2000", "728"} {
		if store.inserted[i].LineID != want {
			t.Errorf("inserted[%d].LineID = %q, want %q", i, store.inserted[i].LineID, want)
		}
	}
	if store.inserted[2].ColorID != "Red" {
		t.Errorf("inserted[2].ColorID = %q, want Red", store.inserted[2].ColorID)
	}
	if store.inserted[0].District != "Alvalade" {
		t.Errorf("inserted[0].District = %q, want Alvalade", store.inserted[0].District)
	}
	if store.inserted[0].Date != "2024-05-29" {
		t.Errorf("inserted[0].Date = %q, want 2024-05-29", store.inserted[0].Date)
	}
}

func TestRunOnceSingleFeedFailure(t *testing.T) {
	metro := &stubAdapter{
		name: string(types.SourceMetropolitana),
		err:  feed.ErrUnavailable,
	}
	carris := &stubAdapter{
		name:    string(types.SourceCarris),
		records: []types.RawRecord{carrisRaw("9999728")},
	}
	store := &fakeSink{}

	p := testPipeline(t, metro, carris, store)
	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v, want nil when one feed survives", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d records, want 1", len(store.inserted))
	}
	if store.inserted[0].LineID != "728" {
		t.Errorf("LineID = %q, want 728", store.inserted[0].LineID)
	}
}

func TestRunOnceBothFeedsFail(t *testing.T) {
	metro := &stubAdapter{name: string(types.SourceMetropolitana), err: feed.ErrUnavailable}
	carris := &stubAdapter{name: string(types.SourceCarris), err: feed.ErrUnavailable}
	store := &fakeSink{}

	p := testPipeline(t, metro, carris, store)
	if err := p.RunOnce(context.Background()); !errors.Is(err, ErrAllFeedsUnavailable) {
		t.Errorf("RunOnce() error = %v, want ErrAllFeedsUnavailable", err)
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted %d records, want 0", len(store.inserted))
	}
}

func TestRunOnceEmptySnapshot(t *testing.T) {
	metro := &stubAdapter{name: string(types.SourceMetropolitana)}
	carris := &stubAdapter{name: string(types.SourceCarris)}
	store := &fakeSink{}

	p := testPipeline(t, metro, carris, store)
	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v, want nil for an empty snapshot", err)
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted %d records, want 0", len(store.inserted))
	}
}

func TestRunOncePersistenceFailure(t *testing.T) {
	metro := &stubAdapter{
		name:    string(types.SourceMetropolitana),
		records: []types.RawRecord{metroRaw("1000")},
	}
	carris := &stubAdapter{name: string(types.SourceCarris)}
	store := &fakeSink{err: errors.New("connection reset")}

	p := testPipeline(t, metro, carris, store)
	if err := p.RunOnce(context.Background()); err == nil {
		t.Error("RunOnce() expected persistence error to propagate")
	}
}

func TestRunOnceDryRunSkipsSink(t *testing.T) {
	metro := &stubAdapter{
		name:    string(types.SourceMetropolitana),
		records: []types.RawRecord{metroRaw("1000")},
	}
	carris := &stubAdapter{name: string(types.SourceCarris)}

	p := testPipeline(t, metro, carris, nil)
	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	metro := &stubAdapter{name: string(types.SourceMetropolitana)}
	carris := &stubAdapter{name: string(types.SourceCarris)}

	p := testPipeline(t, metro, carris, &fakeSink{})
	p.cfg.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancellation")
	}
}
