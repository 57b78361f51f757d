package domain

import (
	"fmt"
	"time"
)

// ContractType is the classified category of a contract document
type ContractType string

const (
	ContractTypeEmployment ContractType = "Employment"
	ContractTypeMA         ContractType = "M&A"
	ContractTypeLease      ContractType = "Lease"
	ContractTypeSecurity   ContractType = "Security"
	ContractTypeServices   ContractType = "Services"
	ContractTypeOther      ContractType = "Other"
)

// Document is a raw source unit after normalization. Documents are created
// by the ingestion scheduler and immutable once chunked.
type Document struct {
	ID           string
	SourceID     string // stable identifier within the source (filename or accession id)
	SourceType   SourceType
	ContractType ContractType
	Ticker       string
	Company      string
	FiledAt      time.Time // zero for static documents
	Origin       string    // file path or exhibit URL
	Text         string    // normalized text
	CharLength   int
	CreatedAt    time.Time
}

// Collection returns the vector store collection this document belongs to.
func (d *Document) Collection() string {
	return CollectionForSource(d.SourceType)
}

// ProvenanceLabel is the human-readable citation label for the document.
func (d *Document) ProvenanceLabel() string {
	if d.SourceType == SourceTypeLive {
		label := d.Ticker
		if label == "" {
			label = d.Company
		}
		if !d.FiledAt.IsZero() {
			return fmt.Sprintf("%s • %s", label, d.FiledAt.Format("2006-01-02"))
		}
		return label
	}
	return fmt.Sprintf("%s (%s)", d.SourceID, d.ContractType)
}

// Chunk is a bounded text span derived from exactly one document. Chunks of
// the same document overlap by a fixed window; no chunk spans two documents.
type Chunk struct {
	ID         string
	DocumentID string
	Collection string
	Index      int
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}
