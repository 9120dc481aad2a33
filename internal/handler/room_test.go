package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatroom_backend/internal/domain"
	apperrors "chatroom_backend/pkg/errors"
	"chatroom_backend/pkg/logger"
)

// stubChatService реализует service.ChatService поверх фиксированных данных.
type stubChatService struct {
	rooms    map[string]*domain.ChatRoom
	messages map[string][]*domain.ChatMessage
	unread   map[string]int64 // ключ roomID+":"+username
}

func newStubChatService() *stubChatService {
	return &stubChatService{
		rooms:    make(map[string]*domain.ChatRoom),
		messages: make(map[string][]*domain.ChatMessage),
		unread:   make(map[string]int64),
	}
}

func (s *stubChatService) GetOrCreateRoom(_ context.Context, sender, receiver string) (*domain.ChatRoom, bool, error) {
	return nil, false, nil
}

func (s *stubChatService) SendMessage(_ context.Context, sender, receiver, content, fileURL string) (*domain.ChatMessage, *domain.ChatRoom, bool, error) {
	return nil, nil, false, nil
}

func (s *stubChatService) GetMessages(_ context.Context, roomID string) ([]*domain.ChatMessage, error) {
	return s.messages[roomID], nil
}

func (s *stubChatService) GetLastMessage(_ context.Context, roomID string) (*domain.ChatMessage, error) {
	msgs := s.messages[roomID]
	if len(msgs) == 0 {
		return nil, nil
	}
	return msgs[len(msgs)-1], nil
}

func (s *stubChatService) GetUnreadCount(_ context.Context, roomID, username string) (int64, error) {
	return s.unread[roomID+":"+username], nil
}

func (s *stubChatService) MarkAsRead(_ context.Context, roomID, username string) (*domain.ChatRoom, error) {
	room, ok := s.rooms[roomID]
	if !ok || !room.HasParticipant(username) {
		return nil, apperrors.ErrRoomNotFound
	}
	return room, nil
}

func (s *stubChatService) GetSubscribedRooms(_ context.Context, username string) ([]*domain.ChatRoom, error) {
	var out []*domain.ChatRoom
	for _, room := range s.rooms {
		if room.HasParticipant(username) {
			out = append(out, room)
		}
	}
	return out, nil
}

func setupRoomRouter(stub *stubChatService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.New("error")

	roomHandler := NewRoomHandler(stub, log)
	chatHandler := NewChatHandler(stub, log)

	router := gin.New()
	router.GET("/api/chatrooms", roomHandler.GetChatRooms)
	router.POST("/api/chatrooms/:roomId/read", roomHandler.MarkAsRead)
	router.GET("/api/chat/history", chatHandler.GetHistory)
	router.GET("/api/chat/historyByRoom", chatHandler.GetHistoryByRoom)
	return router
}

func TestGetChatRooms(t *testing.T) {
	stub := newStubChatService()
	stub.rooms["alice:bob"] = &domain.ChatRoom{ID: 1, RoomID: "alice:bob", User1: "alice", User2: "bob"}
	stub.unread["alice:bob:bob"] = 3
	router := setupRoomRouter(stub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chatrooms?username=bob", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp []ChatRoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "alice:bob", resp[0].RoomID)
	assert.Equal(t, "alice", resp[0].DisplayName, "имя комнаты — собеседник")
	assert.Equal(t, int64(3), resp[0].UnreadCount)
}

func TestGetChatRooms_RequiresUsername(t *testing.T) {
	router := setupRoomRouter(newStubChatService())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chatrooms", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkAsRead_NotFound(t *testing.T) {
	router := setupRoomRouter(newStubChatService())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chatrooms/no:room/read?username=bob", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkAsRead_OK(t *testing.T) {
	stub := newStubChatService()
	stub.rooms["alice:bob"] = &domain.ChatRoom{ID: 1, RoomID: "alice:bob", User1: "alice", User2: "bob"}
	router := setupRoomRouter(stub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chatrooms/alice:bob/read?username=bob", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetHistory(t *testing.T) {
	stub := newStubChatService()
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	stub.messages["alice:bob"] = []*domain.ChatMessage{
		{RoomID: "alice:bob", Sender: "alice", Receiver: "bob", Content: "hi", Timestamp: ts},
	}
	router := setupRoomRouter(stub)

	// Порядок sender/receiver не важен — история одна
	for _, target := range []string{
		"/api/chat/history?sender=alice&receiver=bob",
		"/api/chat/history?sender=bob&receiver=alice",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var msgs []*domain.ChatMessage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
		require.Len(t, msgs, 1)
		assert.Equal(t, "hi", msgs[0].Content)
	}
}

func TestGetHistory_RequiresParticipants(t *testing.T) {
	router := setupRoomRouter(newStubChatService())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chat/history?sender=alice", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
