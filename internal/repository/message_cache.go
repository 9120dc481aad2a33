package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"chatroom_backend/internal/domain"
	"chatroom_backend/pkg/logger"
)

// MessageCache — быстрый write-back буфер сообщений.
// Ключ — roomId, значение — упорядоченный список сообщений в порядке записи.
type MessageCache interface {
	Push(ctx context.Context, roomID string, msg *domain.ChatMessage) error
	Range(ctx context.Context, roomID string, start, end int64) ([]*domain.ChatMessage, error)
	DeleteKey(ctx context.Context, roomID string) error
	ListRoomIDs(ctx context.Context) ([]string, error)
}

type messageCache struct {
	rdb    *redis.Client
	prefix string
	log    logger.Logger
}

func NewMessageCache(rdb *redis.Client, prefix string, log logger.Logger) MessageCache {
	return &messageCache{rdb: rdb, prefix: prefix, log: log}
}

func (c *messageCache) key(roomID string) string {
	return c.prefix + roomID
}

func (c *messageCache) Push(ctx context.Context, roomID string, msg *domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("Failed to marshal message", "error", err)
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := c.rdb.RPush(ctx, c.key(roomID), data).Err(); err != nil {
		c.log.Error("Failed to push message to cache", "error", err, "room_id", roomID)
		return fmt.Errorf("failed to push message: %w", err)
	}

	return nil
}

func (c *messageCache) Range(ctx context.Context, roomID string, start, end int64) ([]*domain.ChatMessage, error) {
	values, err := c.rdb.LRange(ctx, c.key(roomID), start, end).Result()
	if err != nil {
		if err == redis.Nil {
			return []*domain.ChatMessage{}, nil
		}
		c.log.Error("Failed to read messages from cache", "error", err, "room_id", roomID)
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	messages := make([]*domain.ChatMessage, 0, len(values))
	for _, v := range values {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			c.log.Warn("Failed to unmarshal cached message", "error", err, "room_id", roomID)
			continue
		}
		messages = append(messages, &msg)
	}

	return messages, nil
}

func (c *messageCache) DeleteKey(ctx context.Context, roomID string) error {
	if err := c.rdb.Del(ctx, c.key(roomID)).Err(); err != nil {
		c.log.Error("Failed to delete cache key", "error", err, "room_id", roomID)
		return fmt.Errorf("failed to delete cache key: %w", err)
	}
	return nil
}

// ListRoomIDs перечисляет все комнаты, у которых есть буферизованные сообщения.
func (c *messageCache) ListRoomIDs(ctx context.Context) ([]string, error) {
	keys, err := c.rdb.Keys(ctx, c.prefix+"*").Result()
	if err != nil {
		c.log.Error("Failed to list cache keys", "error", err)
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}

	roomIDs := make([]string, 0, len(keys))
	for _, k := range keys {
		roomIDs = append(roomIDs, strings.TrimPrefix(k, c.prefix))
	}

	return roomIDs, nil
}
