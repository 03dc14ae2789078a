// Package memory is a map-backed recordstore used by tests and the
// memory:// store URI.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/julianstephens/tenken/internal/recordstore"
)

// Op names a store operation for fault injection.
type Op string

const (
	OpList   Op = "list"
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpDelete Op = "delete"
	OpBatch  Op = "batch"
)

type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]recordstore.Document
	faults      map[Op]error
	writeFaults map[string]error
	calls       map[Op]int
}

var _ recordstore.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]recordstore.Document),
		faults:      make(map[Op]error),
		writeFaults: make(map[string]error),
		calls:       make(map[Op]int),
	}
}

// Fail makes every subsequent call of op return err until cleared with a
// nil err.
func (s *Store) Fail(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// FailWrite makes any Set or Batch touching collection/id fail with err.
// A batch hitting the fault applies none of its writes.
func (s *Store) FailWrite(collection, id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := collection + "/" + id
	if err == nil {
		delete(s.writeFaults, key)
		return
	}
	s.writeFaults[key] = err
}

// Calls returns how often op has been invoked.
func (s *Store) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) enter(op Op) error {
	s.calls[op]++
	return s.faults[op]
}

func (s *Store) List(ctx context.Context, collection string) ([]recordstore.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpList); err != nil {
		return nil, err
	}

	records := make([]recordstore.Record, 0, len(s.collections[collection]))
	for id, doc := range s.collections[collection] {
		records = append(records, recordstore.Record{ID: id, Fields: doc.Clone()})
	}
	recordstore.SortRecords(records)
	return records, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (recordstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpGet); err != nil {
		return nil, err
	}

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, recordstore.ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *Store) Set(ctx context.Context, collection, id string, fields recordstore.Document, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpSet); err != nil {
		return err
	}
	return s.apply([]recordstore.Write{{Collection: collection, ID: id, Fields: fields, Merge: merge}})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpDelete); err != nil {
		return err
	}
	return s.apply([]recordstore.Write{recordstore.Remove(collection, id)})
}

func (s *Store) Batch(ctx context.Context, writes []recordstore.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpBatch); err != nil {
		return err
	}
	return s.apply(writes)
}

// apply stages writes on copies of the touched collections and swaps them in
// only when every write succeeded.
func (s *Store) apply(writes []recordstore.Write) error {
	if err := recordstore.ValidateBatch(writes); err != nil {
		return err
	}

	staged := make(map[string]map[string]recordstore.Document)
	for _, w := range writes {
		if err := s.writeFaults[w.Collection+"/"+w.ID]; err != nil {
			return err
		}

		coll, ok := staged[w.Collection]
		if !ok {
			coll = make(map[string]recordstore.Document, len(s.collections[w.Collection]))
			for id, doc := range s.collections[w.Collection] {
				coll[id] = doc
			}
			staged[w.Collection] = coll
		}

		if w.Delete {
			delete(coll, w.ID)
			continue
		}

		fields, err := normalize(w.Fields)
		if err != nil {
			return fmt.Errorf("%s: %w", w, err)
		}
		if w.Merge {
			fields = recordstore.Merge(coll[w.ID], fields)
		}
		coll[w.ID] = fields
	}

	for name, coll := range staged {
		s.collections[name] = coll
	}
	return nil
}

// normalize round-trips fields through JSON so stored values have the same
// types a persistent backend would return.
func normalize(fields recordstore.Document) (recordstore.Document, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var out recordstore.Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = recordstore.Document{}
	}
	return out, nil
}

func (s *Store) Close() error {
	return nil
}
