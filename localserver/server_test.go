package localserver_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aereal/xray-backend/albresponse"
	"github.com/aereal/xray-backend/localserver"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestToALBRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/hello?lang=en&lang=ja", strings.NewReader(`{"a":1}`))
	r.Header.Add("X-Amzn-Trace-Id", "Root=1-5759e988-bd862e3fe1be46a994272793;Parent=53995c3f42cd8ad8;Sampled=1")
	r.Header.Add("Accept", "text/plain")
	r.Header.Add("Accept", "application/json")

	req, err := localserver.ToALBRequest(r)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.HTTPMethod)
	assert.Equal(t, "/api/hello", req.Path)
	assert.Equal(t, "Root=1-5759e988-bd862e3fe1be46a994272793;Parent=53995c3f42cd8ad8;Sampled=1", req.Headers["x-amzn-trace-id"])
	assert.Equal(t, "text/plain", req.Headers["accept"])
	assert.Equal(t, []string{"text/plain", "application/json"}, req.MultiValueHeaders["accept"])
	assert.Equal(t, "example.com", req.Headers["host"])
	assert.Equal(t, "en", req.QueryStringParameters["lang"])
	assert.Equal(t, []string{"en", "ja"}, req.MultiValueQueryStringParameters["lang"])
	assert.Equal(t, `{"a":1}`, req.Body)
	assert.False(t, req.IsBase64Encoded)
}

func TestToALBRequest_binaryBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("\xff\xfe"))
	req, err := localserver.ToALBRequest(r)
	require.NoError(t, err)
	assert.True(t, req.IsBase64Encoded)
	assert.Equal(t, "//4=", req.Body)
}

func TestWriteALBResponse(t *testing.T) {
	testCases := []struct {
		name       string
		res        events.ALBTargetGroupResponse
		wantStatus int
		wantBody   string
		wantHeader http.Header
	}{
		{
			name:       "json",
			res:        albresponse.NotFound(),
			wantStatus: http.StatusNotFound,
			wantBody:   albresponse.BodyNotFound,
			wantHeader: http.Header{"Content-Type": {"application/json"}},
		},
		{
			name: "multi-value wins",
			res: events.ALBTargetGroupResponse{
				StatusCode:        http.StatusOK,
				Headers:           map[string]string{"X-Test": "single"},
				MultiValueHeaders: map[string][]string{"X-Test": {"a", "b"}},
				Body:              "ok",
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
			wantHeader: http.Header{"X-Test": {"a", "b"}},
		},
		{
			name:       "base64",
			res:        events.ALBTargetGroupResponse{StatusCode: http.StatusOK, Body: "aGVsbG8=", IsBase64Encoded: true},
			wantStatus: http.StatusOK,
			wantBody:   "hello",
			wantHeader: http.Header{},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, localserver.WriteALBResponse(w, tc.res))
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantBody, w.Body.String())
			for name, values := range tc.wantHeader {
				assert.Equal(t, values, w.Header().Values(name), name)
			}
		})
	}
}

func TestServer(t *testing.T) {
	var got events.ALBTargetGroupRequest
	var requestID string
	srv := localserver.New(func(ctx context.Context, req events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error) {
		got = req
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			requestID = lc.AwsRequestID
		}
		return albresponse.New(http.StatusOK, `{"message":"ok"}`), nil
	}, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/hello", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"ok"}`, w.Body.String())
	assert.Equal(t, http.MethodDelete, got.HTTPMethod)
	assert.Equal(t, "/api/hello", got.Path)
	assert.NotEmpty(t, requestID)
}

func TestServer_invokeError(t *testing.T) {
	srv := localserver.New(func(context.Context, events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error) {
		return events.ALBTargetGroupResponse{}, errors.New("boom")
	}, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestServer_ListenAndServe(t *testing.T) {
	srv := localserver.New(func(context.Context, events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error) {
		return albresponse.NotFound(), nil
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, srv.ListenAndServe(ctx, "127.0.0.1:0"))
}
