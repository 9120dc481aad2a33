package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatroom_backend/internal/domain"
	"chatroom_backend/pkg/logger"
)

func testMessage(roomID, sender, content string, ts time.Time) *domain.ChatMessage {
	return &domain.ChatMessage{
		RoomID:    roomID,
		Sender:    sender,
		Receiver:  "peer",
		Content:   content,
		Timestamp: ts,
	}
}

func TestFlushAll_MovesMessagesToStore(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	messages := &fakeMessageRepo{}
	f := NewFlushScheduler(cache, messages, time.Second, logger.New("error"))

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cache.Push(ctx, "alice:bob", testMessage("alice:bob", "alice", "hi", ts)))
	require.NoError(t, cache.Push(ctx, "alice:bob", testMessage("alice:bob", "bob", "yo", ts.Add(time.Second))))
	require.NoError(t, cache.Push(ctx, "alice:carol", testMessage("alice:carol", "carol", "hey", ts)))

	f.FlushAll(ctx)

	assert.Equal(t, 3, messages.rowCount())
	assert.Equal(t, 0, cache.len("alice:bob"), "ключ должен быть удален после flush")
	assert.Equal(t, 0, cache.len("alice:carol"))
}

func TestFlushAll_RoundTripPreservesFields(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	messages := &fakeMessageRepo{}
	f := NewFlushScheduler(cache, messages, time.Second, logger.New("error"))

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	original := &domain.ChatMessage{
		RoomID:    "alice:bob",
		Sender:    "alice",
		Receiver:  "bob",
		Content:   "hi",
		FileURL:   "files/abc123",
		Timestamp: ts,
	}
	require.NoError(t, cache.Push(ctx, "alice:bob", original))

	f.FlushAll(ctx)

	stored, err := messages.FindByRoom(ctx, "alice:bob")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, original.RoomID, stored[0].RoomID)
	assert.Equal(t, original.Sender, stored[0].Sender)
	assert.Equal(t, original.Receiver, stored[0].Receiver)
	assert.Equal(t, original.Content, stored[0].Content)
	assert.Equal(t, original.FileURL, stored[0].FileURL)
	assert.True(t, original.Timestamp.Equal(stored[0].Timestamp))
}

func TestFlushAll_Idempotent(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	messages := &fakeMessageRepo{}
	f := NewFlushScheduler(cache, messages, time.Second, logger.New("error"))

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := testMessage("alice:bob", "alice", "hi", ts)
	require.NoError(t, cache.Push(ctx, "alice:bob", msg))

	f.FlushAll(ctx)
	require.Equal(t, 1, messages.rowCount())

	// То же сообщение снова в кэше (например, после read-through backfill)
	require.NoError(t, cache.Push(ctx, "alice:bob", msg))
	f.FlushAll(ctx)

	assert.Equal(t, 1, messages.rowCount(), "повторный flush не должен дублировать строки")
}

// Сценарий: БД недоступна один тик, затем восстанавливается — сообщение
// появляется в БД ровно один раз, без потерь.
func TestFlushAll_StoreDownThenRecovers(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	messages := &fakeMessageRepo{down: true}
	f := NewFlushScheduler(cache, messages, time.Second, logger.New("error"))

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cache.Push(ctx, "alice:bob", testMessage("alice:bob", "alice", "hi", ts)))

	f.FlushAll(ctx)
	assert.Equal(t, 1, cache.len("alice:bob"), "при недоступной БД ключ остается в кэше")
	assert.Equal(t, 0, messages.rowCount())

	messages.down = false
	f.FlushAll(ctx)
	assert.Equal(t, 1, messages.rowCount())
	assert.Equal(t, 0, cache.len("alice:bob"))
}

func TestFlushAll_PartialFailureRetriesWithoutDuplicates(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	// Первая вставка проходит, вторая падает — имитация обрыва посреди flush
	messages := &fakeMessageRepo{failAfter: 1}
	f := NewFlushScheduler(cache, messages, time.Second, logger.New("error"))

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cache.Push(ctx, "alice:bob", testMessage("alice:bob", "alice", "one", ts)))
	require.NoError(t, cache.Push(ctx, "alice:bob", testMessage("alice:bob", "alice", "two", ts.Add(time.Second))))

	f.FlushAll(ctx)
	assert.Equal(t, 1, messages.rowCount(), "первое сообщение уже в БД")
	assert.Equal(t, 2, cache.len("alice:bob"), "ключ не удален после частичного сбоя")

	messages.failAfter = 0
	f.FlushAll(ctx)

	require.Equal(t, 2, messages.rowCount(), "ретрай дописывает только недостающее")
	assert.Equal(t, 0, cache.len("alice:bob"))

	seen := make(map[domain.MessageKey]struct{})
	for _, row := range messages.rows {
		_, dup := seen[row.Key()]
		assert.False(t, dup)
		seen[row.Key()] = struct{}{}
	}
}

func TestFlushScheduler_StartStop(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	messages := &fakeMessageRepo{}
	f := NewFlushScheduler(cache, messages, 5*time.Millisecond, logger.New("error"))

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cache.Push(ctx, "alice:bob", testMessage("alice:bob", "alice", "hi", ts)))

	f.Start()
	require.Eventually(t, func() bool {
		return messages.rowCount() == 1
	}, time.Second, 5*time.Millisecond, "планировщик должен выполнить flush")

	f.Stop()
	// Повторный Stop безопасен
	f.Stop()
}
