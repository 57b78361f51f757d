package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/parchment-ai/parchment/internal/config"
	"github.com/parchment-ai/parchment/internal/connectors/archive"
	"github.com/parchment-ai/parchment/internal/connectors/static"
	"github.com/parchment-ai/parchment/internal/database"
	"github.com/parchment-ai/parchment/internal/domain"
	"github.com/parchment-ai/parchment/internal/repository"
	"github.com/parchment-ai/parchment/internal/service"
	"github.com/parchment-ai/parchment/internal/storage"
	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <static|live>",
		Short: "Run one ingestion batch",
		Long: "Ingest documents from a source into its vector store collection. " +
			"'static' reads the local contract corpus; 'live' pulls recent EX-10 exhibits from EDGAR.",
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().Bool("rebuild", false, "Delete the collection before ingesting")
	cmd.Flags().Bool("from-archive", false, "Replay raw bodies from the S3 archive instead of fetching the source")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	source := args[0]
	if !domain.IsValidSourceType(source) {
		return fmt.Errorf("unknown source %q (expected static or live)", source)
	}
	sourceType := domain.SourceType(source)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	documentRepo := repository.NewDocumentRepository(pool)

	if err := checkEmbeddingDimension(ctx, repository.NewChunkRepository(pool), cfg); err != nil {
		return err
	}

	if rebuild, _ := cmd.Flags().GetBool("rebuild"); rebuild {
		collection := domain.CollectionForSource(sourceType)
		if err := documentRepo.DeleteCollection(ctx, collection); err != nil {
			return fmt.Errorf("failed to clear collection %s: %w", collection, err)
		}
		log.Printf("cleared collection %s", collection)
	}

	archiver, err := buildArchiver(ctx, cfg)
	if err != nil {
		return err
	}
	fromArchive, _ := cmd.Flags().GetBool("from-archive")

	var connector service.Connector
	if fromArchive {
		store, ok := archiver.(archive.Store)
		if !ok {
			return fmt.Errorf("archive replay requires S3 configuration (PARCHMENT_S3_ENDPOINT and credentials)")
		}
		connector = archive.New(store, sourceType)
		// Replayed bodies are already archived; do not write them back.
		archiver = nil
	} else {
		switch sourceType {
		case domain.SourceTypeStatic:
			connector = static.New(cfg.CorpusDir)
		case domain.SourceTypeLive:
			if !cfg.HasSECAPI() {
				return fmt.Errorf("live ingestion requires PARCHMENT_SEC_API_KEY")
			}
			connector = newLiveConnector(cfg, documentRepo)
		}
	}

	ingester := service.NewIngestService(
		repository.NewTxRunner(pool), documentRepo, buildEmbedder(cfg), archiver,
		ingestConfig(cfg),
	)

	summary, err := ingester.Ingest(ctx, connector)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

// buildArchiver returns the raw-document archiver when S3 is configured, nil
// otherwise. A nil archiver disables archiving in the ingestion pipeline.
func buildArchiver(ctx context.Context, cfg *config.Config) (service.Archiver, error) {
	if !cfg.HasS3() {
		return nil, nil
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	log.Printf("raw document archive enabled (bucket: %s)", cfg.S3Bucket)
	return client, nil
}
