package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgotel "carris2pg/pkg/otel"
	"carris2pg/pkg/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMetropolitanaURL is the Carris Metropolitana vehicles endpoint.
const DefaultMetropolitanaURL = "https://api.carrismetropolitana.pt/v1/vehicles"

// RESTClient fetches the Carris Metropolitana JSON feed. Each top-level
// array element is already a flat mapping and is passed through unchanged.
type RESTClient struct {
	httpClient *http.Client
	url        string
	tracer     trace.Tracer
}

func NewRESTClient(url string) *RESTClient {
	client := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   30 * time.Second,
	}

	return &RESTClient{
		httpClient: client,
		url:        url,
		tracer:     otel.Tracer("rest-client"),
	}
}

func (c *RESTClient) Name() string { return string(types.SourceMetropolitana) }

func (c *RESTClient) Fetch(ctx context.Context) ([]types.RawRecord, error) {
	ctx, span := c.tracer.Start(ctx, "feed.fetch_rest",
		trace.WithAttributes(attribute.String("http.url", c.url)),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		pkgotel.RecordError(span, err, pkgotel.ErrorTypeNetwork, false)
		return nil, unavailable(c.Name(), err)
	}
	req.Header.Set("User-Agent", "carris2pg/1.0.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pkgotel.RecordError(span, err, pkgotel.ErrorTypeNetwork, true)
		return nil, unavailable(c.Name(), err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("status %d", resp.StatusCode)
		pkgotel.RecordError(span, err, pkgotel.ErrorTypeHTTP, true)
		return nil, unavailable(c.Name(), err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		pkgotel.RecordError(span, err, pkgotel.ErrorTypeNetwork, true)
		return nil, unavailable(c.Name(), err)
	}

	var records []types.RawRecord
	if err := json.Unmarshal(body, &records); err != nil {
		pkgotel.RecordError(span, err, pkgotel.ErrorTypeDecode, false)
		return nil, unavailable(c.Name(), fmt.Errorf("decode vehicles array: %v", err))
	}

	span.SetAttributes(
		attribute.Int("response.size_bytes", len(body)),
		attribute.Int("vehicles_count", len(records)),
	)
	pkgotel.SetSpanOk(span)

	return records, nil
}
