package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgotel "carris2pg/pkg/otel"
	"carris2pg/pkg/types"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// DefaultCarrisURL is the Carris GTFS-realtime vehicle-positions endpoint.
const DefaultCarrisURL = "https://gateway.carris.pt/gateway/gtfs/api/v2.11/GTFS/realtime/vehiclepositions"

// GTFSRTClient fetches the Carris protobuf vehicle-positions feed and
// flattens each vehicle entity into a RawRecord.
type GTFSRTClient struct {
	httpClient *http.Client
	url        string
	tracer     trace.Tracer
}

func NewGTFSRTClient(url string) *GTFSRTClient {
	client := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   30 * time.Second,
	}

	return &GTFSRTClient{
		httpClient: client,
		url:        url,
		tracer:     otel.Tracer("gtfsrt-client"),
	}
}

func (c *GTFSRTClient) Name() string { return string(types.SourceCarris) }

func (c *GTFSRTClient) Fetch(ctx context.Context) ([]types.RawRecord, error) {
	ctx, span := c.tracer.Start(ctx, "feed.fetch_gtfsrt",
		trace.WithAttributes(attribute.String("http.url", c.url)),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		pkgotel.RecordError(span, err, pkgotel.ErrorTypeNetwork, false)
		return nil, unavailable(c.Name(), err)
	}
	req.Header.Set("User-Agent", "carris2pg/1.0.0")

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

	var msg gtfsrt.FeedMessage
	if err := proto.Unmarshal(body, &msg); err != nil {
		pkgotel.RecordError(span, err, pkgotel.ErrorTypeDecode, false)
		return nil, unavailable(c.Name(), fmt.Errorf("decode feed message: %v", err))
	}

	records := make([]types.RawRecord, 0, len(msg.GetEntity()))
	for _, entity := range msg.GetEntity() {
		vehicle := entity.GetVehicle()
		if vehicle == nil {
			continue
		}
		raw := types.RawRecord{}
		flatten(vehicle.ProtoReflect(), "", raw)
		raw["entity_id"] = entity.GetId()
		records = append(records, raw)
	}

	span.SetAttributes(
		attribute.Int("response.size_bytes", len(body)),
		attribute.Int("vehicles_count", len(records)),
	)
	pkgotel.SetSpanOk(span)

	return records, nil
}

// flatten expands every set scalar field of a message into out, depth-first.
// Nested message fields use the parent field name as a prefix joined by an
// underscore, so vehicle.position.latitude becomes position_latitude.
// Repeated and map fields are skipped; enums are recorded as their numeric
// code for the status mapping to resolve later.
func flatten(m protoreflect.Message, prefix string, out types.RawRecord) {
	m.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		name := prefix + string(fd.Name())
		switch {
		case fd.IsList() || fd.IsMap():
			// no list-valued scalars in vehicle positions worth keeping
		case fd.Message() != nil:
			flatten(v.Message(), name+"_", out)
		case fd.Kind() == protoreflect.EnumKind:
			out[name] = int64(v.Enum())
		default:
			out[name] = v.Interface()
		}
		return true
	})
}
