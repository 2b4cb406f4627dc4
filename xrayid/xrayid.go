// Package xrayid converts OpenTelemetry trace IDs to and from the textual form used by AWS X-Ray.
//
// An X-Ray trace ID looks like 1-5759e988-bd862e3fe1be46a994272793: a version, 8 hex digits of
// epoch seconds and 24 hex digits of randomness. The conversion is a plain split of the 32 hex
// digits, so it yields a meaningful X-Ray ID only when the trace ID generator embeds the epoch
// seconds in the first 4 bytes, as [go.opentelemetry.io/contrib/propagators/aws/xray.IDGenerator] does.
package xrayid

import (
	"strings"

	"go.opentelemetry.io/otel/trace"
)

const (
	version     = "1"
	separator   = "-"
	traceIDLen  = 32
	epochLen    = 8
	xrayIDLen   = len(version) + len(separator) + epochLen + len(separator) + traceIDLen - epochLen
	epochOffset = len(version) + len(separator)
)

// ToXRay converts a 32 hex digits trace ID into X-Ray format.
//
// It reports false and returns an empty string when traceID is not 32 characters long.
func ToXRay(traceID string) (string, bool) {
	if len(traceID) != traceIDLen {
		return "", false
	}
	b := new(strings.Builder)
	b.Grow(xrayIDLen)
	b.WriteString(version)
	b.WriteString(separator)
	b.WriteString(traceID[:epochLen])
	b.WriteString(separator)
	b.WriteString(traceID[epochLen:])
	return b.String(), true
}

// FromXRay converts an X-Ray trace ID back into 32 hex digits.
func FromXRay(xrayID string) (string, bool) {
	if len(xrayID) != xrayIDLen {
		return "", false
	}
	parts := strings.Split(xrayID, separator)
	if len(parts) != 3 || parts[0] != version || len(parts[1]) != epochLen {
		return "", false
	}
	return parts[1] + parts[2], true
}

// FromTraceID converts a trace ID into X-Ray format. Invalid (all zero) IDs are not converted.
func FromTraceID(id trace.TraceID) (string, bool) {
	if !id.IsValid() {
		return "", false
	}
	return ToXRay(id.String())
}
