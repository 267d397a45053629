package pagination

import (
	"encoding/base64"
	"errors"
	"sort"
	"strings"
	"time"
)

// MaxLimit caps a single page.
const MaxLimit = 200

// Cursor marks the last item of the previous page
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// Page is one slice of a newest-first listing
type Page[T any] struct {
	Items   []T
	Cursor  string
	HasMore bool
}

var (
	ErrInvalidCursor = errors.New("invalid cursor format")
)

// EncodeCursor creates a base64-encoded cursor from the last item ID and timestamp
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := lastID + "|" + timestamp.UTC().Format(time.RFC3339Nano)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor decodes a cursor. An empty string decodes to nil.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 || parts[0] == "" {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{
		LastID:    parts[0],
		Timestamp: timestamp,
	}, nil
}

// Paginate orders items newest first (ties by ID) and returns the page after
// cursor. A limit of zero or less returns everything after the cursor.
func Paginate[T any](items []T, cursor string, limit int, key func(T) (string, time.Time)) (Page[T], error) {
	after, err := DecodeCursor(cursor)
	if err != nil {
		return Page[T]{}, err
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		aID, aTS := key(sorted[i])
		bID, bTS := key(sorted[j])
		return sortsBefore(aID, aTS, bID, bTS)
	})

	start := 0
	if after != nil {
		start = sort.Search(len(sorted), func(i int) bool {
			id, ts := key(sorted[i])
			return sortsBefore(after.LastID, after.Timestamp, id, ts)
		})
	}

	rest := sorted[start:]
	if limit <= 0 || len(rest) <= limit {
		return Page[T]{Items: rest}, nil
	}

	items = rest[:limit]
	lastID, lastTS := key(items[len(items)-1])
	return Page[T]{
		Items:   items,
		Cursor:  EncodeCursor(lastID, lastTS),
		HasMore: true,
	}, nil
}

func sortsBefore(aID string, aTS time.Time, bID string, bTS time.Time) bool {
	if !aTS.Equal(bTS) {
		return aTS.After(bTS)
	}
	return aID < bID
}
