package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocument_Collection(t *testing.T) {
	static := &Document{SourceType: SourceTypeStatic}
	assert.Equal(t, CollectionHistorical, static.Collection())

	live := &Document{SourceType: SourceTypeLive}
	assert.Equal(t, CollectionLive, live.Collection())
}

func TestDocument_ProvenanceLabel_Static(t *testing.T) {
	doc := &Document{
		SourceType:   SourceTypeStatic,
		SourceID:     "contract_0042.html",
		ContractType: ContractTypeLease,
	}
	assert.Equal(t, "contract_0042.html (Lease)", doc.ProvenanceLabel())
}

func TestDocument_ProvenanceLabel_Live(t *testing.T) {
	doc := &Document{
		SourceType: SourceTypeLive,
		Ticker:     "ACME",
		Company:    "Acme Corp",
		FiledAt:    time.Date(2026, 8, 14, 12, 30, 0, 0, time.UTC),
	}
	assert.Equal(t, "ACME • 2026-08-14", doc.ProvenanceLabel())
}

func TestDocument_ProvenanceLabel_LiveFallsBackToCompany(t *testing.T) {
	doc := &Document{
		SourceType: SourceTypeLive,
		Company:    "Acme Corp",
		FiledAt:    time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "Acme Corp • 2026-08-14", doc.ProvenanceLabel())

	noDate := &Document{SourceType: SourceTypeLive, Ticker: "ACME"}
	assert.Equal(t, "ACME", noDate.ProvenanceLabel())
}

func TestSourceCollectionMapping(t *testing.T) {
	assert.Equal(t, CollectionHistorical, CollectionForSource(SourceTypeStatic))
	assert.Equal(t, CollectionLive, CollectionForSource(SourceTypeLive))

	assert.Equal(t, SourceTypeStatic, SourceForCollection(CollectionHistorical))
	assert.Equal(t, SourceTypeLive, SourceForCollection(CollectionLive))
}

func TestIsValidSourceType(t *testing.T) {
	assert.True(t, IsValidSourceType("static"))
	assert.True(t, IsValidSourceType("live"))
	assert.False(t, IsValidSourceType(""))
	assert.False(t, IsValidSourceType("historical"))
	assert.False(t, IsValidSourceType("STATIC"))
}
