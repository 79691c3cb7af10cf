// SPDX-License-Identifier: MIT

// Command sboxsyncd is a thin wiring entrypoint (SPEC_FULL.md §0): it
// constructs the plugin registries (via package init()s), the pipeline
// coordinator, an optional metrics/health HTTP surface, and runs one
// pipeline pass against a subscription source given on the command line.
// It is a demonstration harness, not the full CLI described in spec.md §1.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sboxsync/sboxsync/internal/cache"
	"github.com/sboxsync/sboxsync/internal/log"
	"github.com/sboxsync/sboxsync/internal/metrics"
	"github.com/sboxsync/sboxsync/internal/subscription/export"
	"github.com/sboxsync/sboxsync/internal/subscription/model"
	"github.com/sboxsync/sboxsync/internal/subscription/pipeline"
	"github.com/sboxsync/sboxsync/internal/telemetry"
)

var (
	version = "0.1.0"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	sourceURL := flag.String("source", "", "subscription source URL or file path")
	sourceType := flag.String("source-type", "auto", "source type (auto, url_base64, url_json, file_json, uri_list, clash)")
	mode := flag.String("mode", "tolerant", "pipeline error-handling mode (strict, tolerant)")
	dialect := flag.String("dialect", "", "sing-box export dialect version, empty selects modern")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /healthz and /metrics on (empty disables)")
	logLevel := flag.String("log-level", "info", "log level")
	otelEnabled := flag.Bool("otel", false, "enable OpenTelemetry tracing")
	otelEndpoint := flag.String("otel-endpoint", "", "OTLP gRPC collector endpoint")
	flag.Parse()

	if *showVersion {
		fmt.Printf("sboxsyncd %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	log.Configure(log.Config{Level: *logLevel, Service: "sboxsyncd", Version: version})
	logger := log.Component("main")

	if *sourceURL == "" {
		logger.Fatal().Msg("-source is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:     *otelEnabled,
		ServiceName: "sboxsyncd",
		Endpoint:    *otelEndpoint,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telemetry provider")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	if *metricsAddr != "" {
		srv := metrics.NewServer()
		go func() {
			if err := metrics.Serve(ctx, srv, *metricsAddr); err != nil {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		logger.Info().Str("addr", *metricsAddr).Msg("serving /healthz and /metrics")
	}

	co := pipeline.NewCoordinator(cache.NewMemory(pipeline.CacheTTL))
	source := model.SubscriptionSource{
		URL:  *sourceURL,
		Type: model.SourceType(*sourceType),
	}

	result := co.Run(ctx, source, pipeline.Options{Mode: model.Mode(*mode)})
	if !result.Success {
		for _, e := range result.Errors {
			logger.Error().Str("stage", e.Stage).Str("kind", string(e.Kind)).Msg(e.Message)
		}
		os.Exit(1)
	}

	servers, _ := result.Artifact.([]model.ParsedServer)
	logger.Info().Int("server_count", len(servers)).Msg("pipeline run complete")

	mgr := export.NewManager()
	doc, warnings := mgr.Run(servers, result.Context, nil, export.ManagerOptions{Version: *dialect})
	for _, w := range warnings {
		logger.Warn().Str("trace_id", result.Context.TraceID).Msg(w)
	}

	if err := writeDocument(doc); err != nil {
		logger.Fatal().Err(err).Msg("failed to write sing-box config")
	}
}
