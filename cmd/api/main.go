package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sportatlas/backend/internal/adapters/cache"
	"github.com/sportatlas/backend/internal/adapters/database"
	"github.com/sportatlas/backend/internal/adapters/search"
	"github.com/sportatlas/backend/internal/api/handlers"
	"github.com/sportatlas/backend/internal/api/routes"
	"github.com/sportatlas/backend/internal/application/pipeline"
	"github.com/sportatlas/backend/internal/domain/providers"
	"github.com/sportatlas/backend/internal/domain/repositories"
	"github.com/sportatlas/backend/internal/infrastructure/clients/ollama"
	"github.com/sportatlas/backend/internal/infrastructure/clients/postgres"
	"github.com/sportatlas/backend/internal/infrastructure/clients/redis"
	"github.com/sportatlas/backend/internal/infrastructure/clients/typesense"
	"github.com/sportatlas/backend/internal/infrastructure/observability"
	"github.com/sportatlas/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var shutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err = observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	log.Println("PostgreSQL client initialized successfully")

	// Initialize Redis client. The service works without it; geocode
	// answers are simply not cached.
	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		log.Println("Redis client initialized successfully")
	}

	// Initialize Typesense client. Optional: without it, venue and
	// competition names resolve via exact database matching only.
	var nameSearch repositories.NameSearchRepository
	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Printf("Warning: Failed to initialize Typesense client: %v", err)
	} else {
		if err := typesenseClient.InitSchema(context.Background()); err != nil {
			log.Printf("Warning: Failed to init Typesense schema: %v", err)
		}
		nameSearch = search.NewTypesenseAdapter(typesenseClient)
		log.Println("Typesense client initialized successfully")
	}

	// Initialize the NLU oracle client
	oracle, err := ollama.NewClient(&cfg.Ollama, cacheProvider)
	if err != nil {
		log.Fatalf("Failed to initialize Ollama client: %v", err)
	}
	log.Println("Ollama client initialized successfully")

	// Initialize adapters
	eventAdapter := database.NewEventAdapter(pgClient)
	venueAdapter := database.NewVenueAdapter(pgClient)
	competitionAdapter := database.NewCompetitionAdapter(pgClient)

	// Initialize the query pipeline
	queryPipeline := pipeline.NewPipeline(
		oracle,
		eventAdapter,
		venueAdapter,
		competitionAdapter,
		nameSearch,
		metrics,
		cfg.Pipeline,
	)

	// Initialize handlers
	agentHandler := handlers.NewAgentHandler(queryPipeline)
	eventHandler := handlers.NewEventHandler(eventAdapter, venueAdapter, competitionAdapter, cfg.Pipeline)
	nluHandler := handlers.NewNLUHandler(oracle)

	// Initialize router
	router := routes.NewRouter(agentHandler, eventHandler, nluHandler, metrics)
	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	log.Println("Server stopped")
}
