package cursorcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arc-self/leakchef-server/internal/leaktypes"
)

// fakeCursor is an in-memory stand-in for *mongo.Cursor.
type fakeCursor struct {
	docs   []leaktypes.Identity
	pos    int
	closed bool
}

func (c *fakeCursor) Next(ctx context.Context) bool {
	if c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Decode(val interface{}) error {
	out := val.(*leaktypes.Identity)
	*out = c.docs[c.pos-1]
	return nil
}

func (c *fakeCursor) Err() error { return nil }

func (c *fakeCursor) Close(ctx context.Context) error {
	c.closed = true
	return nil
}

func newFakeCursor(n int) *fakeCursor {
	docs := make([]leaktypes.Identity, n)
	for i := range docs {
		docs[i] = leaktypes.Identity{ID: primitive.NewObjectID(), Email: []string{"x"}}
	}
	return &fakeCursor{docs: docs}
}

func TestChunkedIdentityStream_NextBatch_ReturnsUpToLimit(t *testing.T) {
	cursor := newFakeCursor(5)
	stream := NewChunkedIdentityStream(cursor, 3)

	batch, err := stream.NextBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch, 3)

	batch, err = stream.NextBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	batch, err = stream.NextBatch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestChunkedIdentityStream_NonPositiveLimitReturnsEmptyWithoutAdvancing(t *testing.T) {
	cursor := newFakeCursor(5)

	for _, limit := range []int{0, -1, -100} {
		stream := NewChunkedIdentityStream(cursor, limit)

		batch, err := stream.NextBatch(context.Background())
		require.NoError(t, err)
		assert.Empty(t, batch)
	}

	assert.Equal(t, 0, cursor.pos, "a non-positive limit must never advance the underlying cursor")
}

func TestCache_PutThenTakeReturnsTheSameStream(t *testing.T) {
	c := New(10, time.Minute)
	stream := NewChunkedIdentityStream(newFakeCursor(1), 10)

	key := Key(7, "leak-1")
	c.Put(key, stream)

	got, ok := c.Take(key)
	require.True(t, ok)
	assert.Same(t, stream, got)

	_, ok = c.Take(key)
	assert.False(t, ok, "Take should consume the entry")
}

func TestCache_TakeMissingKeyReturnsNotOK(t *testing.T) {
	c := New(10, time.Minute)
	_, ok := c.Take("missing")
	assert.False(t, ok)
}

func TestCache_EvictsPastCapacity(t *testing.T) {
	c := New(1, time.Minute)

	c.Put(Key(1, "a"), NewChunkedIdentityStream(newFakeCursor(1), 10))
	c.Put(Key(2, "b"), NewChunkedIdentityStream(newFakeCursor(1), 10))

	assert.Equal(t, 1, c.Len())
	_, ok := c.Take(Key(1, "a"))
	assert.False(t, ok, "oldest entry should have been evicted once capacity was exceeded")
}

func TestKey_FormatsCustomerAndLeakID(t *testing.T) {
	assert.Equal(t, "7:leak-1", Key(7, "leak-1"))
}
