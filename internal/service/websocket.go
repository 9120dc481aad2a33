package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatroom_backend/internal/domain"
	"chatroom_backend/pkg/logger"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsPongTimeout    = 60 * time.Second
	wsPingPeriod     = 54 * time.Second
	wsMaxMessageSize = 8192
	wsSendBuffer     = 256

	snippetLength = 50
)

// Client — одно WebSocket-подключение пользователя.
type Client struct {
	conn     *websocket.Conn
	username string
	send     chan []byte
}

// Inbound-кадры от клиента.
type wsInbound struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId,omitempty"`
	Receiver string `json:"receiver,omitempty"`
	Content  string `json:"content,omitempty"`
	FileURL  string `json:"fileUrl,omitempty"`
}

type wsOutbound struct {
	Type         string              `json:"type"`
	RoomID       string              `json:"roomId,omitempty"`
	Message      *domain.ChatMessage `json:"message,omitempty"`
	Room         *domain.ChatRoom    `json:"room,omitempty"`
	Sender       string              `json:"sender,omitempty"`
	Snippet      string              `json:"contentSnippet,omitempty"`
	UnreadCount  int64               `json:"unreadCount,omitempty"`
	ErrorMessage string              `json:"error,omitempty"`
}

// WebSocketService доставляет сообщения подписчикам комнат. Доставка не
// является частью гарантий хранения: сообщение уже лежит в кэше к моменту
// рассылки, оффлайн-подписчик получит его из истории.
type WebSocketService struct {
	chat ChatService
	log  logger.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Client]bool // подписки на топик комнаты
	users map[string]map[*Client]bool // персональный топик пользователя
}

func NewWebSocketService(chat ChatService, log logger.Logger) *WebSocketService {
	return &WebSocketService{
		chat:  chat,
		log:   log,
		rooms: make(map[string]map[*Client]bool),
		users: make(map[string]map[*Client]bool),
	}
}

// HandleConnection обслуживает подключение до его закрытия.
func (s *WebSocketService) HandleConnection(conn *websocket.Conn, username string) {
	client := &Client{
		conn:     conn,
		username: username,
		send:     make(chan []byte, wsSendBuffer),
	}

	s.addUser(client)

	defer func() {
		s.removeClient(client)
		conn.Close()
	}()

	go s.writePump(client)
	s.readPump(client)
}

func (s *WebSocketService) readPump(client *Client) {
	client.conn.SetReadLimit(wsMaxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("WebSocket closed unexpectedly", "error", err, "username", client.username)
			}
			return
		}

		var frame wsInbound
		if err := json.Unmarshal(data, &frame); err != nil {
			s.sendTo(client, &wsOutbound{Type: "error", ErrorMessage: "malformed frame"})
			continue
		}

		switch frame.Type {
		case "subscribe":
			s.subscribe(client, frame.RoomID)
		case "unsubscribe":
			s.unsubscribe(client, frame.RoomID)
		case "chat.send":
			s.handleSend(client, &frame)
		default:
			s.sendTo(client, &wsOutbound{Type: "error", ErrorMessage: "unknown frame type"})
		}
	}
}

func (s *WebSocketService) writePump(client *Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleSend проводит сообщение через ядро и рассылает результат: само
// сообщение — в топик комнаты, уведомление и счетчик непрочитанного — в
// персональный топик получателя.
func (s *WebSocketService) handleSend(client *Client, frame *wsInbound) {
	ctx := context.Background()

	msg, room, created, err := s.chat.SendMessage(ctx, client.username, frame.Receiver, frame.Content, frame.FileURL)
	if err != nil {
		s.log.Error("Failed to send message", "error", err, "sender", client.username)
		s.sendTo(client, &wsOutbound{Type: "error", ErrorMessage: "failed to send message"})
		return
	}

	s.broadcastToRoom(room.RoomID, &wsOutbound{Type: "chat.message", RoomID: room.RoomID, Message: msg})

	if created {
		s.notifyUser(frame.Receiver, &wsOutbound{Type: "room.created", RoomID: room.RoomID, Room: room})
	}

	unread, err := s.chat.GetUnreadCount(ctx, room.RoomID, frame.Receiver)
	if err != nil {
		s.log.Warn("Failed to compute unread count", "error", err, "room_id", room.RoomID)
		return
	}
	s.notifyUser(frame.Receiver, &wsOutbound{
		Type:        "unread.update",
		RoomID:      room.RoomID,
		Sender:      msg.Sender,
		Snippet:     snippet(msg.Content),
		UnreadCount: unread,
	})
}

func (s *WebSocketService) subscribe(client *Client, roomID string) {
	if roomID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rooms[roomID] == nil {
		s.rooms[roomID] = make(map[*Client]bool)
	}
	s.rooms[roomID][client] = true
}

func (s *WebSocketService) unsubscribe(client *Client, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if clients, ok := s.rooms[roomID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(s.rooms, roomID)
		}
	}
}

func (s *WebSocketService) addUser(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users[client.username] == nil {
		s.users[client.username] = make(map[*Client]bool)
	}
	s.users[client.username][client] = true
}

func (s *WebSocketService) removeClient(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for roomID, clients := range s.rooms {
		delete(clients, client)
		if len(clients) == 0 {
			delete(s.rooms, roomID)
		}
	}
	if clients, ok := s.users[client.username]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(s.users, client.username)
		}
	}
	close(client.send)
}

func (s *WebSocketService) broadcastToRoom(roomID string, out *wsOutbound) {
	data, err := json.Marshal(out)
	if err != nil {
		s.log.Error("Failed to marshal outbound frame", "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.rooms[roomID] {
		select {
		case client.send <- data:
		default:
			// Медленный клиент: кадр пропускается, историю он дочитает сам
			s.log.Warn("Client send buffer full, dropping frame", "username", client.username)
		}
	}
}

func (s *WebSocketService) notifyUser(username string, out *wsOutbound) {
	data, err := json.Marshal(out)
	if err != nil {
		s.log.Error("Failed to marshal outbound frame", "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.users[username] {
		select {
		case client.send <- data:
		default:
			s.log.Warn("Client send buffer full, dropping frame", "username", username)
		}
	}
}

func (s *WebSocketService) sendTo(client *Client, out *wsOutbound) {
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetLength {
		return content
	}
	return string(runes[:snippetLength]) + "..."
}
