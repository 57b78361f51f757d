// Package archive replays raw document bodies stored by the ingestion
// archiver, so a collection can be rebuilt without refetching its source.
package archive

import (
	"context"
	"fmt"

	"github.com/parchment-ai/parchment/internal/domain"
	"github.com/parchment-ai/parchment/internal/service"
)

// Store reads previously archived raw bodies.
type Store interface {
	ListRaw(ctx context.Context, collection string) ([]string, error)
	GetRaw(ctx context.Context, collection, sourceID string) ([]byte, error)
}

// Connector yields every archived body of one collection as a raw document.
// Source metadata beyond the stable identifier (ticker, company, filing date)
// is not archived, so rebuilt live documents carry only what normalization
// and classification recover from the body itself.
type Connector struct {
	store      Store
	sourceType domain.SourceType
}

func New(store Store, sourceType domain.SourceType) *Connector {
	return &Connector{store: store, sourceType: sourceType}
}

func (c *Connector) SourceType() domain.SourceType {
	return c.sourceType
}

// Collect lists the collection's archived source ids and passes each body to
// yield. Unreadable objects are yielded as item failures; listing failure
// aborts the run.
func (c *Connector) Collect(ctx context.Context, yield func(service.RawDocument) error) error {
	collection := domain.CollectionForSource(c.sourceType)

	ids, err := c.store.ListRaw(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to list archive for collection %s: %w", collection, err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		origin := fmt.Sprintf("archive:%s/%s", collection, id)
		body, err := c.store.GetRaw(ctx, collection, id)
		if err != nil {
			if yieldErr := yield(service.RawDocument{
				SourceID: id,
				Name:     id,
				Origin:   origin,
				Err:      domain.NewDomainErrorWithCause(domain.ErrCodeIngestionItem, "failed to read archived document", err),
			}); yieldErr != nil {
				return yieldErr
			}
			continue
		}

		doc := service.RawDocument{
			SourceID: id,
			Name:     id,
			Origin:   origin,
			Raw:      string(body),
		}
		if err := yield(doc); err != nil {
			return err
		}
	}

	return nil
}
