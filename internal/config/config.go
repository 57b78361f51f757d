package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the immutable process configuration. It is built once at startup
// and passed explicitly into every component that needs it; no component
// reads the environment on its own.
type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Static corpus (Stanford MCC style contract files)
	CorpusDir string `envconfig:"CORPUS_DIR" default:"./data/mcc"`

	// Live corpus (SEC EDGAR query API)
	SECAPIKey        string        `envconfig:"SEC_API_KEY"`
	SECAPIURL        string        `envconfig:"SEC_API_URL" default:"https://api.sec-api.io"`
	SECUserAgent     string        `envconfig:"SEC_USER_AGENT" default:"parchment-ingest/1.0 (contact: ops@parchment-ai.dev)"`
	SECWindowDays    int           `envconfig:"SEC_WINDOW_DAYS" default:"30"`
	SECMaxFilings    int           `envconfig:"SEC_MAX_FILINGS" default:"20"`
	SECFetchInterval time.Duration `envconfig:"SEC_FETCH_INTERVAL" default:"500ms"`
	SECFetchTimeout  time.Duration `envconfig:"SEC_FETCH_TIMEOUT" default:"30s"`

	// Embeddings. EmbeddingDimensions must match the vector column width in
	// the schema; startup verifies the two agree and refuses to run on a
	// mismatch.
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	// Generation (Hugging Face Inference API)
	HFAPIToken        string        `envconfig:"HF_API_TOKEN"`
	HFEndpoint        string        `envconfig:"HF_ENDPOINT" default:"https://api-inference.huggingface.co"`
	HFGenerationModel string        `envconfig:"HF_GENERATION_MODEL" default:"mistralai/Mistral-7B-Instruct-v0.2"`
	HFMaxNewTokens    int           `envconfig:"HF_MAX_NEW_TOKENS" default:"512"`
	HFTimeout         time.Duration `envconfig:"HF_TIMEOUT" default:"60s"`

	// Ingestion and retrieval tuning
	MinDocumentChars   int           `envconfig:"MIN_DOCUMENT_CHARS" default:"100"`
	MaxDocumentChars   int           `envconfig:"MAX_DOCUMENT_CHARS" default:"50000"`
	ChunkSize          int           `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap       int           `envconfig:"CHUNK_OVERLAP" default:"200"`
	TopK               int           `envconfig:"TOP_K" default:"4"`
	ContextBudgetChars int           `envconfig:"CONTEXT_BUDGET_CHARS" default:"2000"`
	SearchTimeout      time.Duration `envconfig:"SEARCH_TIMEOUT" default:"5s"`

	// Periodic live ingestion while serving; 0 disables the worker.
	LiveIngestInterval time.Duration `envconfig:"LIVE_INGEST_INTERVAL" default:"0"`

	// Optional raw-filing archive
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"parchment-raw"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("PARCHMENT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasHuggingFace() bool {
	return c.HFAPIToken != ""
}

func (c *Config) HasSECAPI() bool {
	return c.SECAPIKey != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}
