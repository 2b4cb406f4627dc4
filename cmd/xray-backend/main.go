package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aereal/xray-backend/config"
	"github.com/aereal/xray-backend/flush"
	"github.com/aereal/xray-backend/handler"
	"github.com/aereal/xray-backend/hello"
	"github.com/aereal/xray-backend/localserver"
	"github.com/aereal/xray-backend/logging"
	"github.com/aereal/xray-backend/route"
	"github.com/aereal/xray-backend/telemetry"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const helloScope = "github.com/aereal/xray-backend/hello"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "xray-backend",
		Short:         "Lambda function behind an ALB that joins X-Ray traces",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			a.logger.Info("Starting Lambda handler")
			lambda.StartWithOptions(a.handler.Handle, lambda.WithEnableSIGTERM(func() { a.shutdown(context.Background()) }))
			return nil
		},
	}

	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the handler over HTTP for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.shutdown(context.WithoutCancel(ctx))
			if !cfg.Logging.Development {
				gin.SetMode(gin.ReleaseMode)
			}
			return localserver.New(a.handler.Handle, a.logger).ListenAndServe(ctx, cfg.Server.Addr)
		},
	}
	serve.Flags().StringVar(&addr, "addr", ":8080", "address to listen on (overrides LISTEN_ADDR)")
	root.AddCommand(serve)
	return root
}

type app struct {
	handler  *handler.Handler
	logger   *zap.Logger
	provider *telemetry.Provider
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		return nil, err
	}
	provider, err := telemetry.Setup(ctx, *cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Tracer provider initialized",
		zap.String("service", cfg.Service.Name),
		zap.String("exporter", cfg.Telemetry.Exporter),
		zap.String("endpoint", cfg.Telemetry.Endpoint))

	routes := route.New(map[string]route.Handler{
		"/api/hello": hello.New(provider.Tracer(helloScope)).Handle,
	})
	h := handler.New(routes,
		handler.WithTracerProvider(provider.TracerProvider()),
		handler.WithFlusher(flush.New(provider.Flusher(), cfg.Telemetry.FlushTimeout, logger)),
		handler.WithLogger(logger))
	return &app{handler: h, logger: logger, provider: provider}, nil
}

func (a *app) shutdown(ctx context.Context) {
	if err := a.provider.Shutdown(ctx); err != nil {
		a.logger.Error("Failed to shut down tracer provider", zap.Error(err))
	}
	_ = a.logger.Sync()
}
