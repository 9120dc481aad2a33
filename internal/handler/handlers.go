package handler

import (
	"chatroom_backend/internal/config"
	"chatroom_backend/internal/service"
	"chatroom_backend/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	Chat      *ChatHandler
	Room      *RoomHandler
	Post      *PostHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(cfg),
		Auth:      NewAuthHandler(services.Auth, log),
		Chat:      NewChatHandler(services.Chat, log),
		Room:      NewRoomHandler(services.Chat, log),
		Post:      NewPostHandler(services.Post, log),
		WebSocket: NewWebSocketHandler(services.WebSocket, services.Auth, log),
	}
}
