package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"chatroom_backend/internal/config"
	"chatroom_backend/pkg/logger"
)

type Repositories struct {
	User      UserRepository
	Room      RoomRepository
	Message   MessageRepository
	Cache     MessageCache
	Post      PostRepository
	RateLimit RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, log logger.Logger) *Repositories {
	return &Repositories{
		User:      NewUserRepository(db, log),
		Room:      NewRoomRepository(db, log),
		Message:   NewMessageRepository(db, log),
		Cache:     NewMessageCache(rdb, cfg.Chat.CacheKeyPrefix, log),
		Post:      NewPostRepository(db, log),
		RateLimit: NewRateLimitRepository(rdb, log),
	}
}
