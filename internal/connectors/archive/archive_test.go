package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/parchment-ai/parchment/internal/domain"
	"github.com/parchment-ai/parchment/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	ids     []string
	bodies  map[string]string
	listErr error
	getErr  map[string]error
}

func (s *fakeStore) ListRaw(ctx context.Context, collection string) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.ids, nil
}

func (s *fakeStore) GetRaw(ctx context.Context, collection, sourceID string) ([]byte, error) {
	if err := s.getErr[sourceID]; err != nil {
		return nil, err
	}
	return []byte(s.bodies[sourceID]), nil
}

func collect(t *testing.T, c *Connector) []service.RawDocument {
	t.Helper()
	var docs []service.RawDocument
	require.NoError(t, c.Collect(context.Background(), func(doc service.RawDocument) error {
		docs = append(docs, doc)
		return nil
	}))
	return docs
}

func TestCollectReplaysArchivedBodies(t *testing.T) {
	store := &fakeStore{
		ids: []string{"filing-1", "filing-2"},
		bodies: map[string]string{
			"filing-1": "<html>Exhibit 10.1</html>",
			"filing-2": "<html>Exhibit 10.2</html>",
		},
	}

	c := New(store, domain.SourceTypeLive)
	assert.Equal(t, domain.SourceTypeLive, c.SourceType())

	docs := collect(t, c)
	require.Len(t, docs, 2)
	assert.Equal(t, "filing-1", docs[0].SourceID)
	assert.Equal(t, "<html>Exhibit 10.1</html>", docs[0].Raw)
	assert.Equal(t, "archive:live/filing-1", docs[0].Origin)
	assert.NoError(t, docs[0].Err)
}

func TestCollectYieldsItemFailureForUnreadableObject(t *testing.T) {
	store := &fakeStore{
		ids:    []string{"filing-1", "filing-2"},
		bodies: map[string]string{"filing-2": "body"},
		getErr: map[string]error{"filing-1": errors.New("object gone")},
	}

	docs := collect(t, New(store, domain.SourceTypeLive))
	require.Len(t, docs, 2)

	require.Error(t, docs[0].Err)
	assert.Equal(t, domain.ErrCodeIngestionItem, domain.ErrorCode(docs[0].Err))
	assert.NoError(t, docs[1].Err)
}

func TestCollectAbortsOnListFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("bucket unreachable")}

	err := New(store, domain.SourceTypeStatic).Collect(context.Background(), func(service.RawDocument) error {
		t.Fatal("yield should not be called")
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "historical")
}

func TestCollectStopsOnContextCancellation(t *testing.T) {
	store := &fakeStore{
		ids:    []string{"filing-1"},
		bodies: map[string]string{"filing-1": "body"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(store, domain.SourceTypeLive).Collect(ctx, func(service.RawDocument) error {
		t.Fatal("yield should not be called")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
