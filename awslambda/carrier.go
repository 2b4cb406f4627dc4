package awslambda

import (
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.opentelemetry.io/otel/propagation"
)

// ALBHeadersCarrier is a read-only [propagation.TextMapCarrier] over the headers of a request
// forwarded by an Application Load Balancer.
//
// ALB fills either Headers or MultiValueHeaders depending on the target group setting, and does
// not normalize header name casing, so lookups are case-insensitive and consult both maps.
type ALBHeadersCarrier struct {
	Request *events.ALBTargetGroupRequest
}

var _ propagation.TextMapCarrier = (*ALBHeadersCarrier)(nil)

// Get returns the value of the header matching key regardless of case.
//
// Single-value headers win over multi-value headers; of the latter only the first value is
// returned. An empty string is returned when nothing matches.
func (c *ALBHeadersCarrier) Get(key string) string {
	if c == nil || c.Request == nil {
		return ""
	}
	for k, v := range c.Request.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	for k, vs := range c.Request.MultiValueHeaders {
		if !strings.EqualFold(k, key) {
			continue
		}
		if len(vs) == 0 {
			return ""
		}
		return vs[0]
	}
	return ""
}

// Set does nothing; the request belongs to the Lambda runtime.
func (c *ALBHeadersCarrier) Set(string, string) {}

// Keys returns the names of single-value headers.
func (c *ALBHeadersCarrier) Keys() []string {
	if c == nil || c.Request == nil {
		return []string{}
	}
	keys := make([]string, 0, len(c.Request.Headers))
	for k := range c.Request.Headers {
		keys = append(keys, k)
	}
	return keys
}
