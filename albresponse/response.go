// Package albresponse builds the responses a Lambda function returns to an Application Load Balancer.
package albresponse

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
)

const contentTypeJSON = "application/json"

var statusDescriptions = map[int]string{
	http.StatusOK:                  "200 OK",
	http.StatusNotFound:            "404 Not Found",
	http.StatusInternalServerError: "500 Internal Server Error",
}

// Message is the body of responses that carry nothing but a message.
type Message struct {
	Message string `json:"message"`
}

// Bodies of the error responses.
const (
	BodyNotFound            = `{"message":"Not Found"}`
	BodyInternalServerError = `{"message":"Internal Server Error"}`
)

// StatusDescription returns the status line ALB expects for statusCode.
func StatusDescription(statusCode int) string {
	if desc, ok := statusDescriptions[statusCode]; ok {
		return desc
	}
	return strconv.Itoa(statusCode) + " Unknown"
}

// New returns a response with the given JSON body.
//
// Content-Type is set in both Headers and MultiValueHeaders, since the target group decides which one ALB reads.
func New(statusCode int, body string) events.ALBTargetGroupResponse {
	return events.ALBTargetGroupResponse{
		StatusCode:        statusCode,
		StatusDescription: StatusDescription(statusCode),
		Headers:           map[string]string{"Content-Type": contentTypeJSON},
		MultiValueHeaders: map[string][]string{"Content-Type": {contentTypeJSON}},
		Body:              body,
		IsBase64Encoded:   false,
	}
}

// JSON returns a response whose body is v encoded as JSON.
// If v cannot be encoded, an internal server error response is returned along with the error.
func JSON(statusCode int, v any) (events.ALBTargetGroupResponse, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return InternalServerError(), err
	}
	return New(statusCode, string(b)), nil
}

// NotFound returns the response for unknown routes.
func NotFound() events.ALBTargetGroupResponse {
	return New(http.StatusNotFound, BodyNotFound)
}

// InternalServerError returns the response for failed requests.
func InternalServerError() events.ALBTargetGroupResponse {
	return New(http.StatusInternalServerError, BodyInternalServerError)
}
