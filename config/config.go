package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const defaultServiceName = "xray-backend"

// variables lists the environment variables Load reads.
var variables = []string{
	"SERVICE_NAME", "SERVICE_VERSION",
	"TRACES_EXPORTER", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE", "FLUSH_TIMEOUT",
	"LOG_LEVEL", "LOG_DEV",
	"LISTEN_ADDR",
}

// Config holds all application configuration.
type Config struct {
	Service   ServiceConfig
	Telemetry TelemetryConfig
	Logging   LogConfig
	Server    ServerConfig
}

// ServiceConfig identifies the service in exported telemetry.
type ServiceConfig struct {
	Name    string `envconfig:"SERVICE_NAME"`
	Version string `envconfig:"SERVICE_VERSION" default:"1.0.0"`
}

// TelemetryConfig holds span export configuration.
type TelemetryConfig struct {
	Exporter     string        `envconfig:"TRACES_EXPORTER" default:"otlp"`
	Endpoint     string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	Insecure     bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	FlushTimeout time.Duration `envconfig:"FLUSH_TIMEOUT" default:"10s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// ServerConfig holds the local HTTP server configuration.
type ServerConfig struct {
	Addr string `envconfig:"LISTEN_ADDR" default:":8080"`
}

// Load loads configuration from environment variables.
//
// A variable set to the empty string counts as unset and takes its default.
// When SERVICE_NAME is unset the Lambda function name is used, if any.
func Load() (*Config, error) {
	unsetEmpty()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Service.Name == "" {
		cfg.Service.Name = serviceNameFromEnv()
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:    serviceNameFromEnv(),
			Version: "1.0.0",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "otlp",
			Endpoint:     "localhost:4317",
			Insecure:     true,
			FlushTimeout: 10 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// unsetEmpty removes empty variables so that envconfig applies the defaults instead of parsing "".
func unsetEmpty() {
	for _, key := range variables {
		if v, ok := os.LookupEnv(key); ok && v == "" {
			_ = os.Unsetenv(key)
		}
	}
}

func serviceNameFromEnv() string {
	if name := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); name != "" {
		return name
	}
	return defaultServiceName
}
