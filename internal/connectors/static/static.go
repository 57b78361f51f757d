// Package static enumerates a locally stored contract corpus (Stanford MCC
// style directory of .htm/.html/.txt files). It makes no network calls.
package static

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parchment-ai/parchment/internal/domain"
	"github.com/parchment-ai/parchment/internal/service"
)

var corpusExtensions = map[string]bool{
	".htm":  true,
	".html": true,
	".txt":  true,
}

// Connector yields every corpus file as a raw document. Document identity is
// the filename, which is unique within the corpus directory.
type Connector struct {
	dir string
}

func New(dir string) *Connector {
	return &Connector{dir: dir}
}

func (c *Connector) SourceType() domain.SourceType {
	return domain.SourceTypeStatic
}

// Collect reads corpus files in lexical order and passes each to yield.
// Unreadable files are reported to yield's caller through the returned error
// of yield itself; directory enumeration failure aborts the run.
func (c *Connector) Collect(ctx context.Context, yield func(service.RawDocument) error) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read corpus directory %s: %w", c.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if corpusExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(c.dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			if yieldErr := yield(service.RawDocument{
				SourceID: name,
				Name:     name,
				Origin:   path,
				Err:      domain.NewDomainErrorWithCause(domain.ErrCodeIngestionItem, "failed to read corpus file", err),
			}); yieldErr != nil {
				return yieldErr
			}
			continue
		}

		doc := service.RawDocument{
			SourceID: name,
			Name:     name,
			Origin:   path,
			Raw:      string(raw),
		}
		if err := yield(doc); err != nil {
			return err
		}
	}

	return nil
}
