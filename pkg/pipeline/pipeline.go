// Package pipeline orchestrates one snapshot run: fetch both feeds,
// normalize, reconcile, enrich, stage, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"carris2pg/pkg/config"
	"carris2pg/pkg/enrich"
	"carris2pg/pkg/feed"
	"carris2pg/pkg/metrics"
	"carris2pg/pkg/reconcile"
	"carris2pg/pkg/reference"
	"carris2pg/pkg/schema"
	"carris2pg/pkg/sink"
	"carris2pg/pkg/staging"
	"carris2pg/pkg/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ErrAllFeedsUnavailable is returned when neither feed produced a payload;
// the run terminates before enrichment or persistence.
var ErrAllFeedsUnavailable = errors.New("all feeds unavailable")

// Sink is the persistence half of the pipeline.
type Sink interface {
	Insert(ctx context.Context, records []types.Record) (int, error)
}

type Pipeline struct {
	cfg       *config.Config
	metro     feed.Adapter
	carris    feed.Adapter
	geocoder  *enrich.Geocoder
	store     Sink
	reference reference.Table
	tracer    trace.Tracer
}

// New wires the pipeline from configuration. The line-color table is loaded
// once here; a missing table degrades the join to "Unknown" for every line
// rather than blocking the run.
func New(cfg *config.Config) (*Pipeline, error) {
	p := &Pipeline{
		cfg:      cfg,
		metro:    feed.NewRESTClient(cfg.MetropolitanaURL),
		carris:   feed.NewGTFSRTClient(cfg.CarrisURL),
		geocoder: enrich.NewGeocoder(cfg.GeocodeURL, cfg.GeocodeInterval, cfg.GeocodeTimeout),
		tracer:   otel.Tracer("pipeline"),
	}

	table, err := reference.Load(cfg.LineColorsPath)
	if err != nil {
		slog.Warn("line colors table unavailable, join will default to Unknown", "path", cfg.LineColorsPath, "error", err)
		table = reference.Table{}
	}
	p.reference = table

	if !cfg.DryRun {
		store, err := sink.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open sink: %w", err)
		}
		p.store = store
	}

	return p, nil
}

// Run polls on the configured interval, processing immediately on start.
func (p *Pipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	slog.Info("pipeline started", "interval", p.cfg.Interval)

	if err := p.RunOnce(ctx); err != nil {
		slog.Error("run failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("pipeline stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := p.RunOnce(ctx); err != nil {
				slog.Error("run failed", "error", err)
			}
		}
	}
}

// RunOnce processes one point-in-time snapshot end to end.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "pipeline.run_once")
	defer span.End()

	start := time.Now()
	outcome := "success"
	defer func() {
		if metrics.IsEnabled() {
			metrics.PipelineRunsTotal.Add(ctx, 1,
				metric.WithAttributes(attribute.String("outcome", outcome)))
			metrics.PipelineRunDuration.Record(ctx, time.Since(start).Seconds())
		}
	}()

	metroRaw, carrisRaw, failures := p.fetchBoth(ctx)
	if failures == 2 {
		outcome = "feeds_unavailable"
		span.RecordError(ErrAllFeedsUnavailable)
		return ErrAllFeedsUnavailable
	}

	metroRecs := schema.All(metroRaw, types.SourceMetropolitana)
	carrisRecs := schema.All(carrisRaw, types.SourceCarris)

	records := reconcile.Merge(metroRecs, carrisRecs)
	span.SetAttributes(attribute.Int("records_count", len(records)))
	if len(records) == 0 {
		slog.Info("no vehicles reported by either feed")
		return nil
	}

	records = reconcile.Join(records, p.reference)
	records = enrich.TimeAll(records)

	geoStart := time.Now()
	records = p.geocoder.DistrictAll(ctx, records, p.cfg.GeocodeWorkers)
	if metrics.IsEnabled() {
		metrics.GeocodeStageDuration.Record(ctx, time.Since(geoStart).Seconds())
		metrics.PipelineRecordsProcessed.Add(ctx, int64(len(records)))
	}

	if p.cfg.StagingPath != "" {
		if err := staging.Export(p.cfg.StagingPath, records); err != nil {
			// checkpoint only; the run continues
			slog.Warn("staging export failed", "path", p.cfg.StagingPath, "error", err)
		}
	}

	if p.cfg.DryRun {
		p.printDryRun(records)
		metrics.RecordLastSuccessTimestamp()
		slog.Info("dry run complete", "records", len(records), "duration", time.Since(start))
		return nil
	}

	written, err := p.store.Insert(ctx, records)
	if err != nil {
		outcome = "persistence_error"
		span.RecordError(err)
		if metrics.IsEnabled() {
			metrics.SinkRowsWritten.Add(ctx, int64(written))
			metrics.SinkErrorsTotal.Add(ctx, 1)
		}
		return fmt.Errorf("persist snapshot: %w", err)
	}

	if metrics.IsEnabled() {
		metrics.SinkRowsWritten.Add(ctx, int64(written))
	}
	metrics.RecordLastSuccessTimestamp()
	slog.Info("run complete", "rows_written", written, "duration", time.Since(start))
	return nil
}

// fetchBoth fetches the two feeds concurrently. A failed feed contributes
// zero records and is logged; a feed that succeeds with zero vehicles is
// not a failure.
func (p *Pipeline) fetchBoth(ctx context.Context) (metroRaw, carrisRaw []types.RawRecord, failures int) {
	type fetchResult struct {
		source  types.Source
		records []types.RawRecord
		err     error
	}

	results := make(chan fetchResult, 2)
	for _, adapter := range []feed.Adapter{p.metro, p.carris} {
		go func(a feed.Adapter) {
			recs, err := a.Fetch(ctx)
			results <- fetchResult{source: types.Source(a.Name()), records: recs, err: err}
		}(adapter)
	}

	for i := 0; i < 2; i++ {
		res := <-results
		if res.err != nil {
			failures++
			slog.Warn("feed fetch failed", "source", res.source, "error", res.err)
			if metrics.IsEnabled() {
				metrics.FeedFetchesTotal.Add(ctx, 1, metric.WithAttributes(
					attribute.String("source", string(res.source)),
					attribute.String("outcome", "error"),
				))
			}
			continue
		}
		if metrics.IsEnabled() {
			metrics.FeedFetchesTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("source", string(res.source)),
				attribute.String("outcome", "ok"),
			))
			metrics.FeedVehiclesFetched.Add(ctx, int64(len(res.records)),
				metric.WithAttributes(attribute.String("source", string(res.source))))
		}
		switch res.source {
		case types.SourceMetropolitana:
			metroRaw = res.records
		case types.SourceCarris:
			carrisRaw = res.records
		}
	}
	return metroRaw, carrisRaw, failures
}

func (p *Pipeline) printDryRun(records []types.Record) {
	fmt.Printf("\n=== DRY RUN - %d vehicles ===\n", len(records))
	limit := len(records)
	if limit > 5 {
		limit = 5
	}
	for i := 0; i < limit; i++ {
		rec := records[i]
		lat, lon := float64(0), float64(0)
		if rec.Latitude != nil {
			lat = *rec.Latitude
		}
		if rec.Longitude != nil {
			lon = *rec.Longitude
		}
		fmt.Printf("  %d. Line: %s, Status: %s, Location: (%.6f, %.6f), District: %s, Color: %s, Operator: %s\n",
			i+1, rec.LineID, rec.Status, lat, lon, rec.District, rec.ColorID, rec.Operator)
	}
	if len(records) > limit {
		fmt.Printf("  ... and %d more\n", len(records)-limit)
	}
	fmt.Println("=== END DRY RUN ===")
}
