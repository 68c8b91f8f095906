// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gateway provides the core gateway service for kolwatch.
//
// This package contains the main Service type that coordinates all
// components: the live feed channel, the reply composer and lifecycle,
// the posting path with its credential store, the data and lookup API
// clients, HTTP routing and observability infrastructure.
//
// # Usage
//
//	cfg := gateway.Config{Port: 12310, FeedURL: "wss://feed.example/ws"}
//	svc, err := gateway.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/kolwatch/services/composer"
	"github.com/AleutianAI/kolwatch/services/directory"
	"github.com/AleutianAI/kolwatch/services/feed"
	"github.com/AleutianAI/kolwatch/services/gateway/middleware"
	"github.com/AleutianAI/kolwatch/services/gateway/observability"
	"github.com/AleutianAI/kolwatch/services/gateway/routes"
	"github.com/AleutianAI/kolwatch/services/outreach"
	"github.com/AleutianAI/kolwatch/services/posting"
	"github.com/AleutianAI/kolwatch/services/reply"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the gateway service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine

	// Close releases the service's resources without starting the
	// server. Run performs the same cleanup on exit.
	Close()
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds gateway configuration options. Zero values use the
// defaults applied by New.
type Config struct {
	// Port is the HTTP server port. Default: 12310.
	Port int

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	GinMode string

	// FeedURL is the websocket endpoint of the push provider. Required.
	FeedURL string

	// FeedAutoConnect opens the feed connection at startup.
	FeedAutoConnect bool

	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	BufferCapacity       int

	// DataAPIURL is the KOL data API root. Required.
	DataAPIURL string

	// LookupAPIURL is the professional-network lookup API root.
	// Empty disables the outreach routes' backend.
	LookupAPIURL string

	// AuthServiceURL points at the external session service. Empty
	// runs in single-operator mode with a static session.
	AuthServiceURL string

	// StorePath is the credential store directory.
	// Default: "./data/credentials".
	StorePath string

	// TwitterClientID and TwitterClientSecret authenticate the token
	// refresh exchange.
	TwitterClientID     string
	TwitterClientSecret string

	// OTelEndpoint is the OpenTelemetry collector endpoint. Empty
	// disables tracing.
	OTelEndpoint string

	// EnableMetrics exposes /metrics. Default: true.
	EnableMetrics bool

	// RateLimitRPS and RateLimitBurst bound per-client request rates.
	// Defaults: 20 rps, burst 40.
	RateLimitRPS   float64
	RateLimitBurst int

	// Composer overrides the default OpenAI-backed composer, used by
	// tests.
	Composer composer.Composer
}

// =============================================================================
// Implementation
// =============================================================================

// service wires the gateway components together.
type service struct {
	config Config
	router *gin.Engine

	channel   *feed.Channel
	composer  composer.Composer
	store     *posting.BadgerStore
	publisher *posting.Publisher
	replies   *reply.Manager
	directory *directory.Client
	outreach  *outreach.Client

	registry      *prometheus.Registry
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a gateway Service with the given configuration.
//
// Initialization order: defaults, tracing, metrics, credential store,
// posting path, composer, API clients, feed channel, HTTP router. A
// failure after the store is opened closes it before returning.
func New(cfg Config) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	if s.config.FeedURL == "" {
		return nil, fmt.Errorf("feed URL is required")
	}
	if s.config.DataAPIURL == "" {
		return nil, fmt.Errorf("data API URL is required")
	}

	if s.config.OTelEndpoint != "" {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	if s.config.EnableMetrics {
		s.registry = prometheus.NewRegistry()
		slog.Info("Initialized Prometheus metrics registry")
	}

	store, err := posting.OpenBadgerStore(posting.DefaultStoreConfig(s.config.StorePath))
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	s.store = store

	refresher := posting.NewTokenRefresher(posting.RefresherConfig{
		ClientID:     s.config.TwitterClientID,
		ClientSecret: s.config.TwitterClientSecret,
	}, s.store)
	s.publisher = posting.NewPublisher(posting.PublisherConfig{}, s.store, refresher)

	if err := s.initComposer(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize composer: %w", err)
	}
	s.replies = reply.NewManager(s.composer, s.publisher, slog.Default())

	s.directory = directory.NewClient(directory.Config{BaseURL: s.config.DataAPIURL})
	if s.config.LookupAPIURL != "" {
		s.outreach = outreach.NewClient(outreach.Config{BaseURL: s.config.LookupAPIURL})
	}

	s.initFeedChannel()
	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting gateway server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Close releases the service's resources.
func (s *service) Close() {
	s.cleanup()
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.StorePath == "" {
		cfg.StorePath = "./data/credentials"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 20
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 40
	}
	cfg.EnableMetrics = true

	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing against
// the configured collector over insecure gRPC.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("kolwatch-gateway")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initComposer picks the reply-drafting backend.
func (s *service) initComposer() error {
	if s.config.Composer != nil {
		s.composer = s.config.Composer
		return nil
	}

	c, err := composer.NewOpenAIComposer()
	if err != nil {
		return err
	}
	s.composer = c
	slog.Info("Using OpenAI composer backend")
	return nil
}

// initFeedChannel creates the live feed channel. The connection opens
// lazily via the API unless FeedAutoConnect is set.
func (s *service) initFeedChannel() {
	var metrics *feed.Metrics
	if s.registry != nil {
		metrics = feed.NewMetrics(s.registry)
	}

	s.channel = feed.New(feed.Config{
		URL:                  s.config.FeedURL,
		AutoConnect:          s.config.FeedAutoConnect,
		ReconnectInterval:    s.config.ReconnectInterval,
		MaxReconnectAttempts: s.config.MaxReconnectAttempts,
		BufferCapacity:       s.config.BufferCapacity,
		Metrics:              metrics,
	})
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("kolwatch-gateway"))

	var sessions middleware.SessionProvider
	if s.config.AuthServiceURL != "" {
		sessions = middleware.NewRemoteProvider(s.config.AuthServiceURL, nil)
	} else {
		sessions = &middleware.StaticProvider{}
		slog.Info("No auth service configured, running in single-operator mode")
	}

	deps := routes.Deps{
		Feed:        s.channel,
		Composer:    s.composer,
		Directory:   s.directory,
		Outreach:    s.outreach,
		Store:       s.store,
		Publisher:   s.publisher,
		Replies:     s.replies,
		Sessions:    sessions,
		RateLimiter: middleware.NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst),
	}
	if s.registry != nil {
		httpMetrics := observability.NewMetrics(s.registry)
		s.router.Use(httpMetrics.Middleware())
		deps.MetricsGatherer = s.registry
	}

	routes.SetupRoutes(s.router, deps)
}

// cleanup releases all resources held by the service. Called when
// Run() exits or on initialization failure.
func (s *service) cleanup() {
	if s.channel != nil {
		s.channel.Disconnect()
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("credential store close error", "error", err)
		}
	}

	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
