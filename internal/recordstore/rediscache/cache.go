// Package rediscache wraps a recordstore with a Redis read-through cache.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/tenken/internal/constants"
	"github.com/julianstephens/tenken/internal/logger"
	"github.com/julianstephens/tenken/internal/recordstore"
)

const listField = "__list"

var errStale = errors.New("cache generation changed during read")

// Store caches List and Get results of base. Each collection is cached as
// one Redis hash, so evicting a collection is a single DEL. Every write
// evicts the collections it touches, whether or not the write succeeded,
// and bumps the collection's generation. A read fills the cache only if the
// generation it started under is still current, so a read that raced a
// write never caches what it saw before that write.
type Store struct {
	base  recordstore.Store
	redis *redis.Client
	ttl   time.Duration
}

var _ recordstore.Store = (*Store)(nil)

// New creates a caching store. A zero ttl disables filling the cache.
func New(base recordstore.Store, client *redis.Client, ttl time.Duration) *Store {
	if base == nil {
		panic("rediscache.New: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Store{base: base, redis: client, ttl: ttl}
}

func (s *Store) List(ctx context.Context, collection string) ([]recordstore.Record, error) {
	var records []recordstore.Record
	if s.load(ctx, collection, listField, &records) {
		return records, nil
	}

	gen, ok := s.generation(ctx, collection)
	records, err := s.base.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	if ok {
		s.store(ctx, collection, listField, gen, records)
	}
	return records, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (recordstore.Document, error) {
	var doc recordstore.Document
	if s.load(ctx, collection, docField(id), &doc) {
		return doc, nil
	}

	gen, ok := s.generation(ctx, collection)
	doc, err := s.base.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if ok {
		s.store(ctx, collection, docField(id), gen, doc)
	}
	return doc, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, fields recordstore.Document, merge bool) error {
	defer s.evict(ctx, collection)
	return s.base.Set(ctx, collection, id, fields, merge)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	defer s.evict(ctx, collection)
	return s.base.Delete(ctx, collection, id)
}

func (s *Store) Batch(ctx context.Context, writes []recordstore.Write) error {
	defer s.evict(ctx, recordstore.Collections(writes)...)
	return s.base.Batch(ctx, writes)
}

// Unwrap returns the store behind the cache.
func (s *Store) Unwrap() recordstore.Store {
	return s.base
}

func (s *Store) Close() error {
	err := s.base.Close()
	if s.redis != nil {
		if cerr := s.redis.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Store) load(ctx context.Context, collection, field string, out any) bool {
	if s.redis == nil {
		return false
	}
	key := cacheKey(collection)
	data, err := s.redis.HGet(ctx, key, field).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			logger.Debug("redis cache read failed", "collection", collection, "error", err)
			_ = s.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		_ = s.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

// generation returns the write generation of collection. ok is false when
// Redis cannot tell, in which case the read must not fill the cache.
func (s *Store) generation(ctx context.Context, collection string) (int64, bool) {
	if s.redis == nil || s.ttl == 0 {
		return 0, false
	}
	gen, err := s.redis.Get(ctx, genKey(collection)).Int64()
	switch {
	case err == redis.Nil:
		return 0, true
	case err != nil:
		logger.Debug("redis generation read failed", "collection", collection, "error", err)
		return 0, false
	}
	return gen, true
}

func (s *Store) store(ctx context.Context, collection, field string, gen int64, value any) {
	if s.redis == nil || s.ttl == 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	key, gk := cacheKey(collection), genKey(collection)
	err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, field, data)
			pipe.Expire(ctx, key, s.ttl)
			return nil
		})
		return err
	}, gk)
	if err != nil && err != errStale {
		logger.Debug("redis cache fill skipped", "collection", collection, "error", err)
	}
}

func (s *Store) evict(ctx context.Context, collections ...string) {
	if s.redis == nil || len(collections) == 0 {
		return
	}
	keys := make([]string, len(collections))
	for i, c := range collections {
		keys[i] = cacheKey(c)
	}
	// Eviction must survive a caller context canceled by the failed write.
	ctx = context.WithoutCancel(ctx)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, c := range collections {
			pipe.Incr(ctx, genKey(c))
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		logger.Warn("redis cache eviction failed", "collections", collections, "error", err)
	}
}

func cacheKey(collection string) string {
	return constants.CacheKeyPrefix + collection
}

func genKey(collection string) string {
	return constants.CacheKeyPrefix + "gen:" + collection
}

func docField(id string) string {
	return "doc:" + id
}
