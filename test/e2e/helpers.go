//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parchment-ai/parchment/internal/api/handlers"
	"github.com/parchment-ai/parchment/internal/connectors/static"
	"github.com/parchment-ai/parchment/internal/repository"
	"github.com/parchment-ai/parchment/internal/server"
	"github.com/parchment-ai/parchment/internal/service"
	"github.com/parchment-ai/parchment/internal/testutil"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	CorpusDir    string
	Ingester     *service.IngestService
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a database container
// and an HTTP server wired with deterministic embedding and generation stubs.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	corpusDir, err := os.MkdirTemp("", "parchment-e2e-corpus-*")
	if err != nil {
		t.Fatalf("failed to create corpus dir: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	embedder := &hashEmbedder{dimensions: 1536}
	ingester := service.NewIngestService(
		repository.NewTxRunner(pool),
		repository.NewDocumentRepository(pool),
		embedder,
		nil,
		service.IngestConfig{
			MinDocumentChars: 20,
			MaxDocumentChars: 50000,
			Chunking:         service.DefaultChunkConfig(),
		},
	)

	serverURL, serverCloser := startServer(t, pool, embedder, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		CorpusDir:    corpusDir,
		Ingester:     ingester,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.CorpusDir != "" {
		os.RemoveAll(e.CorpusDir)
	}
}

// WriteCorpusFile places a contract file into the test corpus directory.
func (e *E2ETestEnv) WriteCorpusFile(name, content string) {
	if err := os.WriteFile(filepath.Join(e.CorpusDir, name), []byte(content), 0o644); err != nil {
		e.T.Fatalf("failed to write corpus file %s: %v", name, err)
	}
}

// IngestCorpus runs one static ingestion batch over the corpus directory.
func (e *E2ETestEnv) IngestCorpus() *service.IngestSummary {
	summary, err := e.Ingester.Ingest(e.Ctx, static.New(e.CorpusDir))
	if err != nil {
		e.T.Fatalf("ingestion failed: %v", err)
	}
	return summary
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// hashEmbedder produces deterministic embeddings from token hashes so
// similarity search is meaningful without a real embedding API.
type hashEmbedder struct {
	dimensions int
}

func (h *hashEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, h.dimensions)
	var token []byte
	flush := func() {
		if len(token) == 0 {
			return
		}
		f := fnv.New32a()
		_, _ = f.Write(token)
		emb[int(f.Sum32())%h.dimensions] += 1
		token = token[:0]
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == ' ' || c == '\n' || c == '\t' || c == '.' || c == ',' {
			flush()
			continue
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		token = append(token, c)
	}
	flush()
	return emb, nil
}

func (h *hashEmbedder) Dimensions() int {
	return h.dimensions
}

// echoGenerator returns a canned answer so query flow can be asserted end to
// end without a generation API.
type echoGenerator struct{}

func (g *echoGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "Based on the provided contract provisions, the agreement addresses this question.", nil
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// startServer starts the HTTP server with all handlers
func startServer(t *testing.T, pool *pgxpool.Pool, embedder service.EmbeddingClient, port int) (string, func()) {
	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	queryLogRepo := repository.NewQueryLogRepository(pool)

	retrieval := service.NewRetrievalService(embedder, chunkRepo, service.RetrievalConfig{
		TopK:          4,
		SearchTimeout: 5 * time.Second,
	})
	answers := service.NewAnswerService(retrieval, &echoGenerator{}, queryLogRepo, 2000)
	stats := service.NewStatsService(documentRepo, chunkRepo)

	router := server.NewRouter(server.RouterConfig{
		QueryHandler:    handlers.NewQueryHandler(answers),
		StatsHandler:    handlers.NewStatsHandler(stats),
		DocumentHandler: handlers.NewDocumentHandler(documentRepo),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server stopped: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	// Wait for the server to accept connections
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(serverURL + "/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	closer := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}

	return serverURL, closer
}
