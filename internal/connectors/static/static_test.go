package static

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/parchment-ai/parchment/internal/domain"
	"github.com/parchment-ai/parchment/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func collectAll(t *testing.T, c *Connector) []service.RawDocument {
	t.Helper()
	var docs []service.RawDocument
	err := c.Collect(context.Background(), func(doc service.RawDocument) error {
		docs = append(docs, doc)
		return nil
	})
	require.NoError(t, err)
	return docs
}

func TestCollectYieldsCorpusFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_lease.htm", "<html>lease body</html>")
	writeFile(t, dir, "a_employment.txt", "employment body")
	writeFile(t, dir, "notes.pdf", "ignored")
	writeFile(t, dir, "README.md", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	c := New(dir)
	docs := collectAll(t, c)

	require.Len(t, docs, 2)
	// Lexical order makes runs deterministic.
	assert.Equal(t, "a_employment.txt", docs[0].SourceID)
	assert.Equal(t, "employment body", docs[0].Raw)
	assert.Equal(t, "b_lease.htm", docs[1].SourceID)
	assert.Equal(t, filepath.Join(dir, "b_lease.htm"), docs[1].Origin)
	assert.NoError(t, docs[0].Err)
}

func TestCollectUppercaseExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "CONTRACT.HTML", "body")

	docs := collectAll(t, New(dir))

	require.Len(t, docs, 1)
	assert.Equal(t, "CONTRACT.HTML", docs[0].SourceID)
}

func TestCollectMissingDirectoryFails(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "does-not-exist"))

	err := c.Collect(context.Background(), func(service.RawDocument) error { return nil })

	assert.Error(t, err)
}

func TestCollectEmptyDirectory(t *testing.T) {
	docs := collectAll(t, New(t.TempDir()))
	assert.Empty(t, docs)
}

func TestCollectHonorsContextCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "body")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(dir).Collect(ctx, func(service.RawDocument) error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSourceType(t *testing.T) {
	assert.Equal(t, domain.SourceTypeStatic, New(t.TempDir()).SourceType())
}
