// Package otel holds shared OTLP exporter configuration for the tracing
// and metrics providers, resolved from the standard OTEL_* environment
// variables.
package otel

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Protocol represents the OTLP transport protocol.
type Protocol string

const (
	ProtocolGRPC         Protocol = "grpc"
	ProtocolHTTPProtobuf Protocol = "http/protobuf"
)

// SignalType represents the OTEL signal type.
type SignalType string

const (
	SignalTraces  SignalType = "traces"
	SignalMetrics SignalType = "metrics"
)

// ExporterConfig holds parsed OTLP exporter configuration for one signal.
type ExporterConfig struct {
	Endpoint    string
	Protocol    Protocol
	Headers     map[string]string
	Timeout     time.Duration
	Insecure    bool
	Compression string
}

// IsTracingEnabled returns true if OTEL tracing is enabled.
func IsTracingEnabled() bool {
	return isTrue(getEnv("OTEL_TRACING_ENABLED", "false"))
}

// IsMetricsEnabled returns true if OTEL metrics is enabled.
func IsMetricsEnabled() bool {
	return isTrue(getEnv("OTEL_METRICS_ENABLED", "false"))
}

// GetExporterConfig resolves the exporter configuration for a signal,
// preferring signal-specific environment variables over the base ones.
func GetExporterConfig(signal SignalType) ExporterConfig {
	signalUpper := strings.ToUpper(string(signal))

	protocol := resolveProtocol(signalUpper)
	endpoint := resolveEndpoint(signal, signalUpper, protocol)

	headers := parseHeaders(getEnvWithFallback(
		"OTEL_EXPORTER_OTLP_"+signalUpper+"_HEADERS",
		"OTEL_EXPORTER_OTLP_HEADERS",
		"",
	))
	timeout := parseTimeout(getEnvWithFallback(
		"OTEL_EXPORTER_OTLP_"+signalUpper+"_TIMEOUT",
		"OTEL_EXPORTER_OTLP_TIMEOUT",
		"10s",
	))
	compression := getEnvWithFallback(
		"OTEL_EXPORTER_OTLP_"+signalUpper+"_COMPRESSION",
		"OTEL_EXPORTER_OTLP_COMPRESSION",
		"",
	)

	return ExporterConfig{
		Endpoint:    endpoint,
		Protocol:    protocol,
		Headers:     headers,
		Timeout:     timeout,
		Insecure:    resolveInsecure(signalUpper, endpoint),
		Compression: compression,
	}
}

func resolveProtocol(signalUpper string) Protocol {
	protocolStr := getEnvWithFallback(
		"OTEL_EXPORTER_OTLP_"+signalUpper+"_PROTOCOL",
		"OTEL_EXPORTER_OTLP_PROTOCOL",
		"http/protobuf",
	)
	if strings.EqualFold(protocolStr, "grpc") {
		return ProtocolGRPC
	}
	return ProtocolHTTPProtobuf
}

func resolveEndpoint(signal SignalType, signalUpper string, protocol Protocol) string {
	// Signal-specific endpoints are used as-is; a base endpoint gets the
	// signal path appended.
	if ep := getEnv("OTEL_EXPORTER_OTLP_"+signalUpper+"_ENDPOINT", ""); ep != "" {
		return normalizeEndpoint(ep, protocol)
	}
	if ep := getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""); ep != "" {
		return appendSignalPath(normalizeEndpoint(ep, protocol), signal, protocol)
	}
	if protocol == ProtocolGRPC {
		return "localhost:4317"
	}
	return "http://localhost:4318/v1/" + string(signal)
}

func normalizeEndpoint(endpoint string, protocol Protocol) string {
	if protocol == ProtocolGRPC {
		// gRPC wants bare host:port
		endpoint = strings.TrimPrefix(endpoint, "http://")
		endpoint = strings.TrimPrefix(endpoint, "https://")
		if idx := strings.Index(endpoint, "/"); idx != -1 {
			endpoint = endpoint[:idx]
		}
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	return endpoint
}

func appendSignalPath(endpoint string, signal SignalType, protocol Protocol) string {
	if protocol == ProtocolGRPC {
		return endpoint
	}
	signalPath := "/v1/" + string(signal)
	u, err := url.Parse(endpoint)
	if err != nil {
		return strings.TrimSuffix(endpoint, "/") + signalPath
	}
	if strings.HasSuffix(u.Path, signalPath) {
		return endpoint
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = signalPath
	} else {
		u.Path = strings.TrimSuffix(u.Path, "/") + signalPath
	}
	return u.String()
}

func resolveInsecure(signalUpper, endpoint string) bool {
	insecureStr := getEnvWithFallback(
		"OTEL_EXPORTER_OTLP_"+signalUpper+"_INSECURE",
		"OTEL_EXPORTER_OTLP_INSECURE",
		"",
	)
	if insecureStr != "" {
		return isTrue(insecureStr)
	}
	return strings.HasPrefix(endpoint, "http://")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvWithFallback(signalSpecific, base, defaultValue string) string {
	if value := os.Getenv(signalSpecific); value != "" {
		return value
	}
	if value := os.Getenv(base); value != "" {
		return value
	}
	return defaultValue
}

func isTrue(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseHeaders parses "key1=value1,key2=value2"; values keep everything
// after the first '=' untouched.
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}
	for _, pair := range strings.Split(headerStr, ",") {
		pair = strings.TrimSpace(pair)
		if idx := strings.Index(pair, "="); idx > 0 {
			headers[strings.TrimSpace(pair[:idx])] = pair[idx+1:]
		}
	}
	return headers
}

// parseTimeout accepts Go duration strings and the OTEL spec's bare
// millisecond integers.
func parseTimeout(s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return 10 * time.Second
}
