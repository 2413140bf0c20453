package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mental-triage/internal/common/errors"
	"mental-triage/internal/common/logger"
	"mental-triage/internal/models"
)

func setupRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client, "test", logger.NewTestLogger(t))
	store.now = func() time.Time { return fixedTime }
	return store, mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, _ := setupRedis(t)
	roundTrip(t, store)
}

func TestRedisStore_SaveWritesRecordAndIndex(t *testing.T) {
	store, mr := setupRedis(t)

	id, err := store.Save(context.Background(), sampleRecord("", "", models.UrgencyBajo))
	require.NoError(t, err)

	assert.True(t, mr.Exists("test:conversation:"+id))
	members, err := mr.ZMembers("test:conversations")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, members)
}

func TestRedisStore_List(t *testing.T) {
	store, mr := setupRedis(t)
	ctx := context.Background()

	for _, rec := range []*models.ConversationRecord{
		sampleRecord("11111111-1111-4111-8111-111111111111", "2026-01-10T09:00:00Z", models.UrgencyBajo),
		sampleRecord("22222222-2222-4222-8222-222222222222", "2026-02-20T09:00:00Z", models.UrgencyAlto),
		sampleRecord("33333333-3333-4333-8333-333333333333", "2026-02-01T09:00:00Z", ""),
	} {
		_, err := store.Save(ctx, rec)
		require.NoError(t, err)
	}

	items, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "22222222-2222-4222-8222-222222222222", items[0].ConversationID)
	assert.Equal(t, "33333333-3333-4333-8333-333333333333", items[1].ConversationID)

	mr.Del("test:conversation:22222222-2222-4222-8222-222222222222")
	items, err = store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestRedisStore_ListEmpty(t *testing.T) {
	store, _ := setupRedis(t)

	items, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, mr := setupRedis(t)
	mr.Close()

	_, err := store.Save(context.Background(), sampleRecord("", "", models.UrgencyBajo))
	assert.ErrorIs(t, err, apperrors.ErrStorageFailed)

	_, err = store.Load(context.Background(), "11111111-1111-4111-8111-111111111111")
	assert.ErrorIs(t, err, apperrors.ErrStorageFailed)
}
