package metrics

import (
	"go.opentelemetry.io/otel/metric"
)

// Pipeline instruments
var (
	// PipelineRunsTotal counts pipeline runs by outcome.
	PipelineRunsTotal metric.Int64Counter

	// PipelineRunDuration measures end-to-end run duration.
	PipelineRunDuration metric.Float64Histogram

	// PipelineRecordsProcessed counts unified records per run.
	PipelineRecordsProcessed metric.Int64Counter
)

// Feed instruments
var (
	// FeedFetchesTotal counts feed fetches by source and outcome.
	FeedFetchesTotal metric.Int64Counter

	// FeedVehiclesFetched counts raw vehicle records per source.
	FeedVehiclesFetched metric.Int64Counter
)

// Geocoding instruments
var (
	// GeocodeLookupsTotal counts district lookups by outcome
	// (resolved, unknown, invalid_coordinates).
	GeocodeLookupsTotal metric.Int64Counter

	// GeocodeStageDuration measures the whole geocoding stage.
	GeocodeStageDuration metric.Float64Histogram
)

// Sink instruments
var (
	// SinkRowsWritten counts rows durably written.
	SinkRowsWritten metric.Int64Counter

	// SinkErrorsTotal counts persistence failures.
	SinkErrorsTotal metric.Int64Counter
)

func initializeInstruments() error {
	var err error

	PipelineRunsTotal, err = Meter.Int64Counter(
		"pipeline.runs.total",
		metric.WithDescription("Total pipeline runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return err
	}

	PipelineRunDuration, err = Meter.Float64Histogram(
		"pipeline.run.duration",
		metric.WithDescription("End-to-end duration of a pipeline run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return err
	}

	PipelineRecordsProcessed, err = Meter.Int64Counter(
		"pipeline.records.processed",
		metric.WithDescription("Unified vehicle records processed"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return err
	}

	FeedFetchesTotal, err = Meter.Int64Counter(
		"feed.fetches.total",
		metric.WithDescription("Feed fetches by source and outcome"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	FeedVehiclesFetched, err = Meter.Int64Counter(
		"feed.vehicles.fetched",
		metric.WithDescription("Raw vehicle records fetched per source"),
		metric.WithUnit("{vehicle}"),
	)
	if err != nil {
		return err
	}

	GeocodeLookupsTotal, err = Meter.Int64Counter(
		"geocode.lookups.total",
		metric.WithDescription("Reverse geocode lookups by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return err
	}

	GeocodeStageDuration, err = Meter.Float64Histogram(
		"geocode.stage.duration",
		metric.WithDescription("Duration of the geographic enrichment stage"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 15, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return err
	}

	SinkRowsWritten, err = Meter.Int64Counter(
		"sink.rows.written",
		metric.WithDescription("Rows durably written to Bus_Status"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return err
	}

	SinkErrorsTotal, err = Meter.Int64Counter(
		"sink.errors.total",
		metric.WithDescription("Persistence failures"),
		metric.WithUnit("{error}"),
	)
	return err
}
