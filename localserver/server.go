// Package localserver serves the Lambda handler over plain HTTP for local development.
//
// Each HTTP request is converted into the event an Application Load Balancer would deliver, with the
// header names lower-cased and both single and multi-value header maps filled in. The invocation
// context carries a fresh request ID, the same way the Lambda runtime provides one.
package localserver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// InvokeFunc is the signature of the Lambda handler being served.
type InvokeFunc func(ctx context.Context, req events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error)

// Server adapts HTTP requests to ALB invocations.
type Server struct {
	invoke InvokeFunc
	logger *zap.Logger
	router *gin.Engine
}

// New returns a Server invoking fn for every request regardless of method and path.
func New(fn InvokeFunc, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{invoke: fn, logger: logger, router: gin.New()}
	s.router.Use(gin.Recovery())
	s.router.Any("/*path", s.handle)
	return s
}

// Handler returns the http.Handler serving the function.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting local server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down local server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handle(c *gin.Context) {
	req, err := ToALBRequest(c.Request)
	if err != nil {
		s.logger.Warn("Failed to read request body", zap.Error(err))
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	ctx := lambdacontext.NewContext(c.Request.Context(), &lambdacontext.LambdaContext{
		AwsRequestID: uuid.NewString(),
	})
	res, err := s.invoke(ctx, req)
	if err != nil {
		s.logger.Error("Invocation failed", zap.Error(err))
		c.AbortWithStatus(http.StatusBadGateway)
		return
	}
	if err := WriteALBResponse(c.Writer, res); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ToALBRequest converts r into the event an ALB with multi-value headers enabled would send.
func ToALBRequest(r *http.Request) (events.ALBTargetGroupRequest, error) {
	req := events.ALBTargetGroupRequest{
		HTTPMethod:                      r.Method,
		Path:                            r.URL.Path,
		Headers:                         make(map[string]string, len(r.Header)),
		MultiValueHeaders:               make(map[string][]string, len(r.Header)),
		QueryStringParameters:           map[string]string{},
		MultiValueQueryStringParameters: map[string][]string{},
	}
	for name, values := range r.Header {
		key := strings.ToLower(name)
		req.MultiValueHeaders[key] = append(req.MultiValueHeaders[key], values...)
		if len(values) > 0 {
			req.Headers[key] = values[0]
		}
	}
	if r.Host != "" {
		req.Headers["host"] = r.Host
		req.MultiValueHeaders["host"] = []string{r.Host}
	}
	for name, values := range r.URL.Query() {
		req.MultiValueQueryStringParameters[name] = values
		if len(values) > 0 {
			req.QueryStringParameters[name] = values[0]
		}
	}
	if r.Body == nil {
		return req, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return req, err
	}
	if utf8.Valid(body) {
		req.Body = string(body)
	} else {
		req.Body = base64.StdEncoding.EncodeToString(body)
		req.IsBase64Encoded = true
	}
	return req, nil
}

// WriteALBResponse writes res to w. Multi-value headers take precedence over single-value ones.
func WriteALBResponse(w http.ResponseWriter, res events.ALBTargetGroupResponse) error {
	h := w.Header()
	for name, value := range res.Headers {
		if _, ok := res.MultiValueHeaders[name]; ok {
			continue
		}
		h.Set(name, value)
	}
	for name, values := range res.MultiValueHeaders {
		h.Del(name)
		for _, v := range values {
			h.Add(name, v)
		}
	}

	body := []byte(res.Body)
	if res.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(res.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return fmt.Errorf("decode body: %w", err)
		}
		body = decoded
	}
	status := res.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err := w.Write(body)
	return err
}
