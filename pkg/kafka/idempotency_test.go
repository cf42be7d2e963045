package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	seen, err := store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Add(ctx, "evt-1"))
	seen, _ = store.Contains(ctx, "evt-1")
	assert.True(t, seen)
	assert.Equal(t, 1, store.Len())

	now = now.Add(2 * time.Minute)
	seen, _ = store.Contains(ctx, "evt-1")
	assert.False(t, seen)
	assert.Zero(t, store.Len())
}

func TestRedisIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := NewRedisIdempotencyStore(client, "catalog-search:events", time.Hour)

	seen, err := store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Add(ctx, "evt-1"))
	seen, err = store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	assert.True(t, mr.Exists("catalog-search:events:evt-1"))
	assert.Equal(t, time.Hour, mr.TTL("catalog-search:events:evt-1"))

	mr.FastForward(2 * time.Hour)
	seen, err = store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisIdempotencyStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	store := NewRedisIdempotencyStore(client, "p", time.Minute)
	_, err := store.Contains(context.Background(), "evt")
	assert.Error(t, err)
	assert.Error(t, store.Add(context.Background(), "evt"))
}

type failingStore struct{}

func (failingStore) Contains(context.Context, string) (bool, error) { return false, errors.New("down") }
func (failingStore) Add(context.Context, string) error             { return errors.New("down") }

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore(time.Hour)

	calls := 0
	h := IdempotentHandler(store, func(context.Context, *Event) error {
		calls++
		return nil
	}, testLogger())

	ev := &Event{EventID: "evt-1", EventType: "product.upserted"}
	require.NoError(t, h(ctx, ev))
	require.NoError(t, h(ctx, ev))
	assert.Equal(t, 1, calls)

	require.NoError(t, h(ctx, &Event{EventType: "product.upserted"}))
	require.NoError(t, h(ctx, &Event{EventType: "product.upserted"}))
	assert.Equal(t, 3, calls, "events without ids are never deduplicated")
}

func TestIdempotentHandler_FailureIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore(time.Hour)
	h := IdempotentHandler(store, func(context.Context, *Event) error {
		return errors.New("index failed")
	}, testLogger())

	assert.Error(t, h(ctx, &Event{EventID: "evt-2"}))
	seen, _ := store.Contains(ctx, "evt-2")
	assert.False(t, seen)
}

func TestIdempotentHandler_StoreDownStillProcesses(t *testing.T) {
	calls := 0
	h := IdempotentHandler(failingStore{}, func(context.Context, *Event) error {
		calls++
		return nil
	}, testLogger())

	require.NoError(t, h(context.Background(), &Event{EventID: "evt-3"}))
	assert.Equal(t, 1, calls)
}
