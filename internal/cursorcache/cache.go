// Package cursorcache implements the Cursor Cache: a process-local, bounded
// and TTL-limited map from (customer, leak) to a live, paged cursor over
// that leak's matching identities.
//
// The cache is deliberately NOT shared across processes (unlike the
// teacher's Redis-backed caches elsewhere in this codebase) because its
// values are live, single-consumer MongoDB cursors that cannot be
// serialized — see DESIGN.md for why Redis was dropped for this concern.
package cursorcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/arc-self/leakchef-server/internal/leaktypes"
)

// MongoCursor is the subset of *mongo.Cursor's method set a
// ChunkedIdentityStream needs. Expressed as an interface so tests can
// supply an in-memory fake instead of a live MongoDB cursor.
type MongoCursor interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	Err() error
	Close(ctx context.Context) error
}

const (
	// DefaultCapacity bounds how many (customer, leak) cursors may be live
	// at once. Eviction of an entry past this bound silently resets that
	// customer's position within the current pull — on their next request
	// a fresh cursor is opened at the start of the matching-identities
	// query, not from their last_received_identity. PullBatch still
	// converges despite this because progress tracking in the Status
	// document is independent of cursor position.
	DefaultCapacity = 1000
	// DefaultTTL is how long an idle cursor is kept before being evicted.
	// Eviction drops the entry without closing the underlying cursor. The
	// delivery service re-inserts the entry after every non-empty pull,
	// which resets this TTL — so an actively-polling customer never loses their cursor
	// to idleness, only to eviction pressure from other customers' cursors
	// filling the capacity bound.
	DefaultTTL = 20 * time.Second
)

// ChunkedIdentityStream wraps a live MongoDB cursor and hands out
// fixed-size batches of PartialIdentity, mirroring the Rust implementation's
// try_chunks(limit) combinator over a raw cursor.
type ChunkedIdentityStream struct {
	cursor MongoCursor
	limit  int
	mu     sync.Mutex
}

// NewChunkedIdentityStream wraps cursor so callers can pull batches of at
// most limit identities at a time. A non-positive limit is clamped to zero:
// NextBatch then returns an empty batch without advancing the cursor at all.
func NewChunkedIdentityStream(cursor MongoCursor, limit int) *ChunkedIdentityStream {
	if limit < 0 {
		limit = 0
	}
	return &ChunkedIdentityStream{cursor: cursor, limit: limit}
}

// NextBatch advances the cursor and returns up to s.limit identities. A
// returned batch shorter than the limit means the underlying cursor has
// reached its end, so the next call returns an empty batch.
func (s *ChunkedIdentityStream) NextBatch(ctx context.Context) ([]leaktypes.PartialIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make([]leaktypes.PartialIdentity, 0, s.limit)
	for len(batch) < s.limit {
		if !s.cursor.Next(ctx) {
			if err := s.cursor.Err(); err != nil {
				return batch, fmt.Errorf("cursor advance: %w", err)
			}
			break
		}
		var raw leaktypes.Identity
		if err := s.cursor.Decode(&raw); err != nil {
			return batch, fmt.Errorf("cursor decode: %w", err)
		}
		batch = append(batch, leaktypes.NewPartialIdentity(raw))
	}
	return batch, nil
}

// Close releases the underlying cursor. Safe to call on an exhausted
// stream.
func (s *ChunkedIdentityStream) Close(ctx context.Context) error {
	return s.cursor.Close(ctx)
}

// Cache is the process-local, size- and TTL-bounded map of live
// ChunkedIdentityStreams, keyed by "<customer_id>:<leak_id>".
type Cache struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, *ChunkedIdentityStream]
}

// New constructs a Cache with the given capacity and TTL. Production code
// should use NewDefault; explicit parameters exist for tests that need a
// smaller or faster-expiring cache to exercise eviction.
func New(capacity int, ttl time.Duration) *Cache {
	return &Cache{lru: expirable.NewLRU[string, *ChunkedIdentityStream](capacity, nil, ttl)}
}

// NewDefault constructs a Cache with DefaultCapacity and DefaultTTL.
func NewDefault() *Cache {
	return New(DefaultCapacity, DefaultTTL)
}

// Key builds the cache key for a given customer/leak pair.
func Key(customerID int32, leakID string) string {
	return fmt.Sprintf("%d:%s", customerID, leakID)
}

// Take removes and returns the cached stream for key, if one exists. A
// read consumes the entry outright; it is the caller's responsibility to
// Put it back if the stream still has data left to give. The lookup and
// the removal run under the Cache's own mutex, so two concurrent Takes of
// the same key never both receive the stream; the mutex is released before
// the caller does any cursor I/O.
func (c *Cache) Take(key string) (*ChunkedIdentityStream, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stream, ok := c.lru.Peek(key)
	if !ok {
		return nil, false
	}
	c.lru.Remove(key)
	return stream, true
}

// Put inserts or refreshes the cached stream for key. Re-inserting an
// existing key resets its TTL, giving read-then-put callers refresh-on-read
// semantics for free.
func (c *Cache) Put(key string, stream *ChunkedIdentityStream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, stream)
}

// Len reports the number of live cached streams, for metrics/tests.
func (c *Cache) Len() int {
	return c.lru.Len()
}
