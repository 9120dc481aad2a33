package service

import (
	"chatroom_backend/internal/config"
	"chatroom_backend/internal/repository"
	"chatroom_backend/pkg/logger"
)

type Services struct {
	Auth      AuthService
	Chat      ChatService
	Post      PostService
	RateLimit RateLimitService
	Flush     *FlushScheduler
	WebSocket *WebSocketService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, log logger.Logger) *Services {
	chat := NewChatService(repos.Cache, repos.Message, repos.Room, log)

	return &Services{
		Auth:      NewAuthService(repos.User, cfg.JWT, log),
		Chat:      chat,
		Post:      NewPostService(repos.Post, log),
		RateLimit: NewRateLimitService(repos.RateLimit, log),
		Flush:     NewFlushScheduler(repos.Cache, repos.Message, cfg.Chat.FlushInterval, log),
		WebSocket: NewWebSocketService(chat, log),
	}
}
