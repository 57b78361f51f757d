// Package pagination implements keyset cursors for document listings. A
// cursor names the last row of the previous page by id and creation time,
// encoded URL-safe so clients can pass it back as a query parameter verbatim.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor marks the position after the last item of a served page.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// PageResult is one page of items plus the cursor for the next page, if any.
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

// EncodeCursor packs a position into an opaque URL-safe token.
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := lastID + "|" + timestamp.UTC().Format(time.RFC3339Nano)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor unpacks a token produced by EncodeCursor. An empty token means
// the first page and decodes to nil.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	lastID, stamp, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: lastID, Timestamp: timestamp}, nil
}

// CreateNextCursor derives the next-page cursor from a served page. A short
// page is the last page and yields no cursor.
func CreateNextCursor[T any](items []T, limit int, getID func(T) string, getTimestamp func(T) time.Time) string {
	if len(items) == 0 || len(items) < limit {
		return ""
	}
	last := items[len(items)-1]
	return EncodeCursor(getID(last), getTimestamp(last))
}
