package enrich

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"carris2pg/pkg/metrics"
	pkgotel "carris2pg/pkg/otel"
	"carris2pg/pkg/types"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DefaultNominatimURL is the public Nominatim instance.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// DistrictInvalid is returned for absent or out-of-range coordinates,
// before any network call. DistrictUnknown absorbs every lookup failure.
const (
	DistrictInvalid = "Invalid coordinates"
	DistrictUnknown = "Unknown"
)

// Geocoder resolves coordinates to district names through Nominatim's
// reverse endpoint. All calls in a run share one minimum inter-call
// interval; Nominatim's usage policy blocks clients that exceed it, so the
// limit is a hard external constraint.
type Geocoder struct {
	client      *resty.Client
	minInterval time.Duration
	tracer      trace.Tracer

	mu   sync.Mutex
	last time.Time
}

func NewGeocoder(baseURL string, minInterval, timeout time.Duration) *Geocoder {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "carris2pg/1.0.0")

	return &Geocoder{
		client:      client,
		minInterval: minInterval,
		tracer:      otel.Tracer("geocoder"),
	}
}

type reverseResponse struct {
	Address struct {
		Suburb        string `json:"suburb"`
		Neighbourhood string `json:"neighbourhood"`
		CityDistrict  string `json:"city_district"`
		Town          string `json:"town"`
	} `json:"address"`
}

// District reverse-geocodes one coordinate pair. It never fails: invalid
// coordinates short-circuit to DistrictInvalid without a network call, and
// every lookup error (timeout, non-2xx, empty result) resolves to
// DistrictUnknown.
func (g *Geocoder) District(ctx context.Context, lat, lon *float64) string {
	if !validCoordinates(lat, lon) {
		countLookup(ctx, "invalid_coordinates")
		return DistrictInvalid
	}

	g.wait()

	ctx, span := g.tracer.Start(ctx, "geocode.reverse",
		trace.WithAttributes(
			attribute.Float64("geo.lat", *lat),
			attribute.Float64("geo.lon", *lon),
		),
	)
	defer span.End()

	var result reverseResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format": "jsonv2",
			"lat":    strconv.FormatFloat(*lat, 'f', 6, 64),
			"lon":    strconv.FormatFloat(*lon, 'f', 6, 64),
		}).
		SetResult(&result).
		Get("/reverse")
	if err != nil {
		pkgotel.RecordError(span, err, pkgotel.ErrorTypeGeocode, true)
		slog.Debug("reverse geocode failed", "lat", *lat, "lon", *lon, "error", err)
		countLookup(ctx, "unknown")
		return DistrictUnknown
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))

	if resp.StatusCode() != http.StatusOK {
		slog.Debug("reverse geocode rejected", "lat", *lat, "lon", *lon, "status", resp.StatusCode())
		countLookup(ctx, "unknown")
		return DistrictUnknown
	}

	for _, name := range []string{
		result.Address.Suburb,
		result.Address.Neighbourhood,
		result.Address.CityDistrict,
		result.Address.Town,
	} {
		if name != "" {
			district := fixEncoding(name)
			span.SetAttributes(attribute.String("geo.district", district))
			countLookup(ctx, "resolved")
			return district
		}
	}
	countLookup(ctx, "unknown")
	return DistrictUnknown
}

func countLookup(ctx context.Context, outcome string) {
	if metrics.IsEnabled() {
		metrics.GeocodeLookupsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// DistrictAll enriches every record with a district. Lookups are issued
// from a bounded pool of workers that all share the geocoder's inter-call
// interval; with workers=1 the stage runs strictly sequentially. Input
// order is preserved.
func (g *Geocoder) DistrictAll(ctx context.Context, records []types.Record, workers int) []types.Record {
	if workers < 1 {
		workers = 1
	}

	enriched := make([]types.Record, len(records))
	copy(enriched, records)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				enriched[i].District = g.District(ctx, enriched[i].Latitude, enriched[i].Longitude)
			}
		}()
	}
	for i := range enriched {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return enriched
}

// wait blocks until at least minInterval has passed since the previous
// call, across all goroutines using this geocoder.
func (g *Geocoder) wait() {
	if g.minInterval <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if sleep := g.minInterval - time.Since(g.last); sleep > 0 {
		time.Sleep(sleep)
	}
	g.last = time.Now()
}

func validCoordinates(lat, lon *float64) bool {
	if lat == nil || lon == nil {
		return false
	}
	if math.IsNaN(*lat) || math.IsInf(*lat, 0) || math.IsNaN(*lon) || math.IsInf(*lon, 0) {
		return false
	}
	return *lat >= -90 && *lat <= 90 && *lon >= -180 && *lon <= 180
}
