package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatroom_backend/internal/service"
	apperrors "chatroom_backend/pkg/errors"
	"chatroom_backend/pkg/logger"
)

type RoomHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewRoomHandler(chatService service.ChatService, log logger.Logger) *RoomHandler {
	return &RoomHandler{
		chatService: chatService,
		log:         log,
	}
}

// ChatRoomResponse — комната глазами одного участника: имя собеседника и
// количество непрочитанных сообщений.
type ChatRoomResponse struct {
	ID          int64  `json:"id"`
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
	UnreadCount int64  `json:"unreadCount"`
}

// GetChatRooms возвращает список комнат пользователя со счетчиками
// непрочитанного.
func (h *RoomHandler) GetChatRooms(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	rooms, err := h.chatService.GetSubscribedRooms(c.Request.Context(), username)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	response := make([]ChatRoomResponse, 0, len(rooms))
	for _, room := range rooms {
		unread, err := h.chatService.GetUnreadCount(c.Request.Context(), room.RoomID, username)
		if err != nil {
			h.log.Warn("Failed to compute unread count", "error", err, "room_id", room.RoomID)
		}
		response = append(response, ChatRoomResponse{
			ID:          room.ID,
			RoomID:      room.RoomID,
			DisplayName: room.PeerOf(username),
			UnreadCount: unread,
		})
	}

	c.JSON(http.StatusOK, response)
}

func (h *RoomHandler) MarkAsRead(c *gin.Context) {
	roomID := c.Param("roomId")
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	room, err := h.chatService.MarkAsRead(c.Request.Context(), roomID, username)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, room)
}

// Leave — выход из комнаты. Комнаты не удаляются, выход сводится к отметке
// прочтения, чтобы счетчик непрочитанного обнулился.
func (h *RoomHandler) Leave(c *gin.Context) {
	roomID := c.Query("roomId")
	username := c.Query("username")
	if roomID == "" || username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId and username are required"})
		return
	}

	room, err := h.chatService.MarkAsRead(c.Request.Context(), roomID, username)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, room)
}
