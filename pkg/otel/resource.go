package otel

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ServiceName is the name of this service.
const ServiceName = "carris2pg"

// Version is set at build time via -ldflags
// e.g., go build -ldflags="-X carris2pg/pkg/otel.Version=1.2.3"
var Version = "dev"

func getServiceInstanceID() string {
	if id := os.Getenv("OTEL_SERVICE_INSTANCE_ID"); id != "" {
		return id
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return fmt.Sprintf("carris2pg-%d", os.Getpid())
}

// NewResource creates the shared resource used by both the tracing and
// metrics providers.
func NewResource() (*resource.Resource, error) {
	return resource.New(context.Background(),
		resource.WithFromEnv(),
		resource.WithHost(),
		resource.WithProcess(),
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(Version),
			semconv.ServiceInstanceID(getServiceInstanceID()),
			semconv.ProcessRuntimeName("go"),
			semconv.ProcessRuntimeVersion(runtime.Version()),
			semconv.ProcessPID(os.Getpid()),
		),
	)
}
