// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/AleutianAI/bookrag/services/bookrag/handlers"
	"github.com/AleutianAI/bookrag/services/bookrag/history"
	"github.com/AleutianAI/bookrag/services/bookrag/observability"
	"github.com/AleutianAI/bookrag/services/bookrag/pipeline"
	"github.com/AleutianAI/bookrag/services/bookrag/routes"
	"github.com/AleutianAI/bookrag/services/policy"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("bookrag-server")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := setupLogging(cfg)
	defer logger.Close()

	if cfg.Tracing.Enabled {
		cleanup, err := initTracer(cfg.Tracing.Endpoint)
		if err != nil {
			log.Fatalf("failed to setup the OTLP tracer: %v", err)
		}
		defer cleanup(context.Background())
	}

	b, err := buildBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	weaviateClient, err := buildWeaviateClient(cfg)
	if err != nil {
		log.Fatalf("Failed to create Weaviate client: %v", err)
	}

	ctx := context.Background()
	if err := pipeline.EnsureBookChunkSchema(ctx, weaviateClient); err != nil {
		log.Fatalf("Failed to ensure the BookChunk schema: %v", err)
	}
	historyStore := history.NewStore(weaviateClient)
	if err := historyStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure the conversation schema: %v", err)
	}

	guard, err := policy.NewGuard()
	if err != nil {
		log.Fatalf("Failed to initialize the input guard: %v", err)
	}

	metrics := observability.InitMetrics()
	p := buildPipeline(cfg, b, weaviateClient).
		WithGradingFailureHook(metrics.GradingFailuresTotal.Inc)

	chatHandler := handlers.NewChatHandler(p, historyStore, guard, metrics,
		cfg.Stream.Timeout(), cfg.History.Limit)

	router := gin.Default()
	routes.SetupRoutes(router, chatHandler)

	slog.Info("Starting the BookRAG server", "port", cfg.Server.Port)
	if err := router.Run(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
