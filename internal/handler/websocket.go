package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chatroom_backend/internal/service"
	"chatroom_backend/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // В продакшене нужно проверять origin
	},
}

type WebSocketHandler struct {
	wsService   *service.WebSocketService
	authService service.AuthService
	log         logger.Logger
}

func NewWebSocketHandler(wsService *service.WebSocketService, authService service.AuthService, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		wsService:   wsService,
		authService: authService,
		log:         log,
	}
}

// HandleChat апгрейдит соединение и отдает его хабу. Токен передается
// query-параметром: заголовки при websocket-апгрейде из браузера недоступны.
func (h *WebSocketHandler) HandleChat(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}

	user, err := h.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	h.wsService.HandleConnection(conn, user.Username)
}
