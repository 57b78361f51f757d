package domain

// SourceType identifies which corpus a document came from
type SourceType string

const (
	// SourceTypeStatic is the locally stored historical contract corpus
	SourceTypeStatic SourceType = "static"
	// SourceTypeLive is the externally hosted EDGAR filing feed
	SourceTypeLive SourceType = "live"
)

// Collection names, one per source type. A collection is an independently
// rebuildable partition of the vector store.
const (
	CollectionHistorical = "historical"
	CollectionLive       = "live"
)

// CollectionForSource maps a source type to its vector store collection.
func CollectionForSource(st SourceType) string {
	if st == SourceTypeLive {
		return CollectionLive
	}
	return CollectionHistorical
}

// SourceForCollection is the inverse of CollectionForSource.
func SourceForCollection(collection string) SourceType {
	if collection == CollectionLive {
		return SourceTypeLive
	}
	return SourceTypeStatic
}

// IsValidSourceType reports whether the value names a known source type.
func IsValidSourceType(value string) bool {
	switch SourceType(value) {
	case SourceTypeStatic, SourceTypeLive:
		return true
	}
	return false
}
