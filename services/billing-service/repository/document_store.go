package repository

import (
	"context"
	"errors"
	"sort"
)

// ErrNotFound is returned by DocumentStore.Get when no document exists.
var ErrNotFound = errors.New("document not found")

// Document is a flat set of named fields.
type Document map[string]any

// SetOptions controls DocumentStore.Set. With Merge, only the fields in the
// patch are written and every other stored field is preserved; without it
// the document is replaced.
type SetOptions struct {
	Merge bool
}

// DocumentStore is a collection/id keyed store with single-document atomic writes.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, patch Document, opts SetOptions) error
}

// Clone returns a shallow copy.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func sortedKeys(d Document) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
