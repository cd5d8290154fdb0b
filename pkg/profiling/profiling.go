package profiling

import (
	"log/slog"
	"os"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// InitProfiling starts the Pyroscope profiler when
// PYROSCOPE_PROFILING_ENABLED is set. Returns a shutdown function.
func InitProfiling() (func(), error) {
	if enabled := getEnv("PYROSCOPE_PROFILING_ENABLED", "false"); !isTrue(enabled) {
		slog.Debug("Pyroscope profiling is disabled")
		return func() {}, nil
	}

	serverAddress := getEnv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	applicationName := getEnv("PYROSCOPE_APPLICATION_NAME", "carris2pg")

	config := pyroscope.Config{
		ApplicationName: applicationName,
		ServerAddress:   serverAddress,
		Logger:          pyroscope.StandardLogger,
		Tags: map[string]string{
			"service": "carris2pg",
		},
	}

	if user, pass := os.Getenv("PYROSCOPE_BASIC_AUTH_USER"), os.Getenv("PYROSCOPE_BASIC_AUTH_PASSWORD"); user != "" && pass != "" {
		config.BasicAuthUser = user
		config.BasicAuthPassword = pass
	}

	profiler, err := pyroscope.Start(config)
	if err != nil {
		slog.Warn("Failed to start Pyroscope profiler", "error", err)
		return func() {}, nil
	}

	slog.Debug("Pyroscope profiling started", "server", serverAddress, "application", applicationName)

	return func() {
		if err := profiler.Stop(); err != nil {
			slog.Error("Error stopping Pyroscope profiler", "error", err)
		}
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func isTrue(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
