// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/reelmind/reelmind/compose"
	"github.com/reelmind/reelmind/config"
	"github.com/reelmind/reelmind/extract"
	"github.com/reelmind/reelmind/handlers"
	"github.com/reelmind/reelmind/llm"
	"github.com/reelmind/reelmind/memory"
	"github.com/reelmind/reelmind/observability"
	"github.com/reelmind/reelmind/recommend"
	"github.com/reelmind/reelmind/retrieval"
	"github.com/reelmind/reelmind/routes"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP recommendation service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// initTracer sets up the OTLP gRPC exporter and returns a shutdown
// function.
func initTracer(cfg config.TelemetryConfig) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(cfg.OTLPEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newWeaviateClient parses the configured URL and builds the client.
func newWeaviateClient(rawURL string) (*weaviate.Client, error) {
	rawURL = strings.Trim(rawURL, "\"' ")
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid weaviate URL %q", rawURL)
	}
	return weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
}

func runServe() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	cleanup, err := initTracer(cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to setup the OTLP tracer: %w", err)
	}
	defer cleanup(context.Background())

	openaiClient, err := llm.NewOpenAIClient()
	if err != nil {
		return err
	}

	weaviateClient, err := newWeaviateClient(cfg.Weaviate.URL)
	if err != nil {
		return err
	}
	index := retrieval.NewWeaviateIndex(weaviateClient)
	if err := index.EnsureSchema(context.Background()); err != nil {
		return err
	}

	metrics := observability.InitMetrics()

	store := memory.NewStore(memory.StoreConfig{Capacity: cfg.Memory.Capacity})
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	janitor := memory.NewJanitor(store, memory.JanitorConfig{
		TTL:      cfg.Memory.SessionTTL.Std(),
		Interval: cfg.Memory.JanitorInterval.Std(),
	})
	go janitor.Run(janitorCtx)

	retriever := retrieval.NewRetriever(openaiClient, index, retrieval.SearchConfig{
		TopK:    cfg.Pipeline.TopK,
		Timeout: cfg.Pipeline.SearchTimeout.Std(),
	})
	extractor := extract.NewExtractor(openaiClient, cfg.Pipeline.ExtractTimeout.Std())
	composer := compose.NewComposer()

	core := recommend.NewCore(extractor, retriever, composer, store, openaiClient, metrics,
		recommend.CoreConfig{CompletionTimeout: cfg.Pipeline.CompletionTimeout.Std()})

	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	routes.SetupRoutes(router, routes.Dependencies{
		Recommender: handlers.NewRecommender(core),
		Catalog:     retriever,
		Memory:      store,
		Metrics:     metrics,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Starting recommendation service", "addr", addr)
	return router.Run(addr)
}
