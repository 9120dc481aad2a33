package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatroom_backend/internal/service"
	apperrors "chatroom_backend/pkg/errors"
	"chatroom_backend/pkg/logger"
)

type ChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log,
	}
}

// GetHistory возвращает историю переписки пары участников.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	sender := c.Query("sender")
	receiver := c.Query("receiver")
	if sender == "" || receiver == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sender and receiver are required"})
		return
	}

	roomID := service.ResolveRoomID(sender, receiver)
	messages, err := h.chatService.GetMessages(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *ChatHandler) GetHistoryByRoom(c *gin.Context) {
	roomID := c.Query("roomId")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
		return
	}

	messages, err := h.chatService.GetMessages(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *ChatHandler) GetLastMessage(c *gin.Context) {
	roomID := c.Query("roomId")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
		return
	}

	message, err := h.chatService.GetLastMessage(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	if message == nil {
		c.JSON(http.StatusOK, gin.H{"message": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}
