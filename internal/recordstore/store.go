// Package recordstore defines the key-scoped document store every tenken
// component persists through. Records live in named collections and are
// addressed by id; fields are schemaless JSON-compatible values.
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned by Get when the record does not exist.
var ErrNotFound = errors.New("record not found")

// Document holds the fields of one record.
type Document map[string]any

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge returns existing overlaid with fields. Keys absent from fields keep
// their stored value.
func Merge(existing, fields Document) Document {
	out := existing.Clone()
	if out == nil {
		out = make(Document, len(fields))
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Record is a stored document together with its id.
type Record struct {
	ID     string
	Fields Document
}

// Write is one mutation of a batch: a set (replace or merge) or a delete.
type Write struct {
	Collection string
	ID         string
	Fields     Document
	Merge      bool
	Delete     bool
}

// Set builds a replacing set.
func Set(collection, id string, fields Document) Write {
	return Write{Collection: collection, ID: id, Fields: fields}
}

// MergeSet builds a merge-upsert: listed fields are written, all others kept.
func MergeSet(collection, id string, fields Document) Write {
	return Write{Collection: collection, ID: id, Fields: fields, Merge: true}
}

// Remove builds a delete.
func Remove(collection, id string) Write {
	return Write{Collection: collection, ID: id, Delete: true}
}

func (w Write) String() string {
	switch {
	case w.Delete:
		return fmt.Sprintf("delete %s/%s", w.Collection, w.ID)
	case w.Merge:
		return fmt.Sprintf("merge %s/%s", w.Collection, w.ID)
	default:
		return fmt.Sprintf("set %s/%s", w.Collection, w.ID)
	}
}

// Validate rejects writes without an address.
func (w Write) Validate() error {
	if strings.TrimSpace(w.Collection) == "" {
		return errors.New("write has no collection")
	}
	if strings.TrimSpace(w.ID) == "" {
		return fmt.Errorf("write to %s has no id", w.Collection)
	}
	return nil
}

// Store is the record store capability. Implementations must be safe for
// use by one operator session; there is no optimistic concurrency, so two
// sessions writing the same record resolve as last-write-wins. Failed calls
// are not retried by the store; backends built on retrying SDKs turn their
// retries off.
type Store interface {
	// List returns every record of a collection ordered by id.
	List(ctx context.Context, collection string) ([]Record, error)
	// Get returns one record's fields, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Set writes one record, merging into the stored fields when merge is true.
	Set(ctx context.Context, collection, id string, fields Document, merge bool) error
	// Delete removes one record. Deleting an absent record is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Batch applies writes all-or-nothing where the backend allows it.
	Batch(ctx context.Context, writes []Write) error
	Close() error
}

// PartialBatchError reports a batch that a non-transactional backend could
// only partly apply. Committed lists the collections whose writes landed.
type PartialBatchError struct {
	Committed []string
	Failed    []string
	Err       error
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("batch partially applied (committed: %s; failed: %s): %v",
		strings.Join(e.Committed, ", "), strings.Join(e.Failed, ", "), e.Err)
}

func (e *PartialBatchError) Unwrap() error {
	return e.Err
}

// Collections returns the distinct collections a batch touches, sorted.
func Collections(writes []Write) []string {
	seen := make(map[string]struct{}, len(writes))
	var out []string
	for _, w := range writes {
		if _, ok := seen[w.Collection]; ok {
			continue
		}
		seen[w.Collection] = struct{}{}
		out = append(out, w.Collection)
	}
	sort.Strings(out)
	return out
}

// ValidateBatch validates every write of a batch.
func ValidateBatch(writes []Write) error {
	for i, w := range writes {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("write %d: %w", i, err)
		}
	}
	return nil
}

// SortRecords orders records by id.
func SortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}
