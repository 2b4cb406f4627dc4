// Package config loads the function's configuration from environment variables.
//
// Lambda passes configuration through the function's environment, so every setting has an
// environment variable and a default that works for local development:
//
//	SERVICE_NAME                 service.name resource attribute (default: AWS_LAMBDA_FUNCTION_NAME, then xray-backend)
//	SERVICE_VERSION              service.version resource attribute (default: 1.0.0)
//	TRACES_EXPORTER              "otlp" or "none" (default: otlp)
//	OTEL_EXPORTER_OTLP_ENDPOINT  OTLP/gRPC collector address (default: localhost:4317)
//	OTEL_EXPORTER_OTLP_INSECURE  disable TLS towards the collector (default: true)
//	FLUSH_TIMEOUT                upper bound of the per-invocation flush (default: 10s)
//	LOG_LEVEL                    debug, info, warn or error (default: info)
//	LOG_DEV                      human readable console logs (default: false)
//	LISTEN_ADDR                  address of the local server (default: :8080)
package config
