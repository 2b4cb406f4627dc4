// Package awslambda provides some utilities to create spans for Lambda functions behind an Application Load Balancer that conforms to [semantic convnetions].
//
// [semantic convnetions]: https://opentelemetry.io/docs/specs/semconv/faas/aws-lambda/
package awslambda
