package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoCodeAlone/workflow-components/api"
	"github.com/GoCodeAlone/workflow-components/invoke"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var host hostFlags
	host.register(fs)
	addr := fs.String("addr", ":8080", "Listen address")
	jwtSecret := fs.String("jwt-secret", os.Getenv("COMPCTL_JWT_SECRET"), "HS256 secret; enables bearer auth on /v1 routes")
	jwtIssuer := fs.String("jwt-issuer", "", "Required iss claim when set")
	otlpEndpoint := fs.String("otlp-endpoint", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "OTLP/HTTP endpoint for traces (host:port)")
	serviceName := fs.String("service-name", "compctl", "Service name reported in traces")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: compctl serve [options]

Serve the component HTTP API:
  GET  /v1/components[?group=g]
  GET  /v1/components/{name}
  POST /v1/components/{name}/run   {"config": {...}, "inputs": {...}}
  GET  /metrics
  GET  /healthz

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := host.logger(os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *otlpEndpoint != "" {
		shutdown, err := invoke.SetupTracing(ctx, *otlpEndpoint, *serviceName)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("tracer shutdown", "err", err)
			}
		}()
	}

	metrics := invoke.NewMetrics("components")
	inv, err := host.invoker(logger, invoke.WithMetrics(metrics))
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr: *addr,
		Handler: api.NewRouter(inv, api.Config{
			JWTSecret: *jwtSecret,
			JWTIssuer: *jwtIssuer,
			Metrics:   metrics,
			Logger:    logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving component API", "addr", *addr, "components", inv.Registry().Len(), "auth", *jwtSecret != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
