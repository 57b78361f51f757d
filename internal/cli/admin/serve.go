package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/parchment-ai/parchment/internal/api/handlers"
	"github.com/parchment-ai/parchment/internal/config"
	"github.com/parchment-ai/parchment/internal/connectors/edgar"
	"github.com/parchment-ai/parchment/internal/database"
	"github.com/parchment-ai/parchment/internal/domain"
	"github.com/parchment-ai/parchment/internal/huggingface"
	"github.com/parchment-ai/parchment/internal/jobs"
	"github.com/parchment-ai/parchment/internal/openai"
	"github.com/parchment-ai/parchment/internal/repository"
	"github.com/parchment-ai/parchment/internal/server"
	"github.com/parchment-ai/parchment/internal/service"
	"github.com/parchment-ai/parchment/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the parchment API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	queryLogRepo := repository.NewQueryLogRepository(pool)

	if err := checkEmbeddingDimension(ctx, chunkRepo, cfg); err != nil {
		return err
	}

	embedder := buildEmbedder(cfg)
	generator := huggingface.NewClient(huggingface.Config{
		Token:        cfg.HFAPIToken,
		Endpoint:     cfg.HFEndpoint,
		Model:        cfg.HFGenerationModel,
		MaxNewTokens: cfg.HFMaxNewTokens,
		Timeout:      cfg.HFTimeout,
	})
	if !cfg.HasHuggingFace() {
		log.Println("no generation credential configured, answers will be extractive")
	}

	retrieval := service.NewRetrievalService(embedder, chunkRepo, service.RetrievalConfig{
		TopK:          cfg.TopK,
		SearchTimeout: cfg.SearchTimeout,
	})
	answers := service.NewAnswerService(retrieval, generator, queryLogRepo, cfg.ContextBudgetChars)
	stats := service.NewStatsService(documentRepo, chunkRepo)

	// Periodic live ingestion keeps the live collection current while serving.
	var liveWorker *jobs.Worker
	if cfg.LiveIngestInterval > 0 {
		if !cfg.HasSECAPI() {
			log.Println("live ingest interval set but no SEC API key configured, worker disabled")
		} else {
			archiver, err := buildArchiver(ctx, cfg)
			if err != nil {
				return err
			}
			ingester := service.NewIngestService(
				repository.NewTxRunner(pool), documentRepo, embedder, archiver,
				ingestConfig(cfg),
			)
			connector := newLiveConnector(cfg, documentRepo)
			liveWorker = jobs.NewWorker(jobs.NewLiveIngestProcessor(ingester, connector), cfg.LiveIngestInterval)
			go liveWorker.Start(ctx)
			log.Printf("live ingest worker started (interval: %v)", cfg.LiveIngestInterval)
		}
	}

	router := server.NewRouter(server.RouterConfig{
		QueryHandler:    handlers.NewQueryHandler(answers),
		StatsHandler:    handlers.NewStatsHandler(stats),
		DocumentHandler: handlers.NewDocumentHandler(documentRepo),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if liveWorker != nil {
		liveWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// noCredentialEmbedder stands in when no embedding credential is configured.
// Retrieval and ingestion surface the configuration error instead of sending
// doomed API calls.
type noCredentialEmbedder struct {
	dimensions int
}

func (e *noCredentialEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, domain.ErrNoEmbeddingCredential
}

func (e *noCredentialEmbedder) Dimensions() int {
	return e.dimensions
}

func buildEmbedder(cfg *config.Config) service.EmbeddingClient {
	if !cfg.HasOpenAI() {
		log.Println("no embedding credential configured, retrieval will be degraded")
		return &noCredentialEmbedder{dimensions: cfg.EmbeddingDimensions}
	}
	return openai.NewClient(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})
}

// checkEmbeddingDimension fails fast when the configured embedding width does
// not match the vector column in the schema. Changing the width requires a
// migration and a rebuild of both collections, so a mismatch is never safe to
// run with.
func checkEmbeddingDimension(ctx context.Context, chunkRepo *repository.ChunkRepository, cfg *config.Config) error {
	dim, err := chunkRepo.EmbeddingDimension(ctx)
	if err != nil {
		return fmt.Errorf("failed to read embedding column dimension: %w", err)
	}
	if dim > 0 && dim != cfg.EmbeddingDimensions {
		return fmt.Errorf(
			"PARCHMENT_EMBEDDING_DIMENSIONS is %d but the embedding column is vector(%d); migrate the schema and rebuild the collections before changing dimensions",
			cfg.EmbeddingDimensions, dim)
	}
	return nil
}

func ingestConfig(cfg *config.Config) service.IngestConfig {
	return service.IngestConfig{
		MinDocumentChars: cfg.MinDocumentChars,
		MaxDocumentChars: cfg.MaxDocumentChars,
		Chunking: service.ChunkConfig{
			Size:       cfg.ChunkSize,
			Overlap:    cfg.ChunkOverlap,
			Separators: service.DefaultChunkConfig().Separators,
		},
	}
}

func newLiveConnector(cfg *config.Config, deduper edgar.Deduper) *edgar.Connector {
	return edgar.New(edgar.Config{
		APIKey:     cfg.SECAPIKey,
		APIURL:     cfg.SECAPIURL,
		UserAgent:  cfg.SECUserAgent,
		WindowDays: cfg.SECWindowDays,
		MaxFilings: cfg.SECMaxFilings,
	},
		&http.Client{Timeout: cfg.SECFetchTimeout},
		edgar.NewMinIntervalLimiter(cfg.SECFetchInterval),
		deduper,
	)
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else {
		log.Printf("migrations: database at version %d", version)
	}

	return nil
}
