package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"chatroom_backend/internal/domain"
	"chatroom_backend/internal/repository"
	apperrors "chatroom_backend/pkg/errors"
	"chatroom_backend/pkg/logger"
)

// ResolveRoomID строит канонический идентификатор комнаты для пары
// участников. Порядок аргументов не важен: пара сортируется лексикографически.
func ResolveRoomID(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}

type ChatService interface {
	GetOrCreateRoom(ctx context.Context, sender, receiver string) (*domain.ChatRoom, bool, error)
	SendMessage(ctx context.Context, sender, receiver, content, fileURL string) (*domain.ChatMessage, *domain.ChatRoom, bool, error)
	GetMessages(ctx context.Context, roomID string) ([]*domain.ChatMessage, error)
	GetLastMessage(ctx context.Context, roomID string) (*domain.ChatMessage, error)
	GetUnreadCount(ctx context.Context, roomID, username string) (int64, error)
	MarkAsRead(ctx context.Context, roomID, username string) (*domain.ChatRoom, error)
	GetSubscribedRooms(ctx context.Context, username string) ([]*domain.ChatRoom, error)
}

type chatService struct {
	cache    repository.MessageCache
	messages repository.MessageRepository
	rooms    repository.RoomRepository
	now      func() time.Time
	log      logger.Logger
}

func NewChatService(cache repository.MessageCache, messages repository.MessageRepository, rooms repository.RoomRepository, log logger.Logger) ChatService {
	return &chatService{
		cache:    cache,
		messages: messages,
		rooms:    rooms,
		now:      time.Now,
		log:      log,
	}
}

// GetOrCreateRoom возвращает комнату пары, создавая её при первом обращении.
// Гонку одновременного создания разрешает уникальный индекс в БД: проигравший
// перечитывает комнату и получает wasCreated = false.
func (s *chatService) GetOrCreateRoom(ctx context.Context, sender, receiver string) (*domain.ChatRoom, bool, error) {
	roomID := ResolveRoomID(sender, receiver)

	room, err := s.rooms.FindByRoomID(ctx, roomID)
	if err == nil {
		return room, false, nil
	}
	if !errors.Is(err, apperrors.ErrRoomNotFound) {
		return nil, false, err
	}

	room = &domain.ChatRoom{RoomID: roomID, User1: sender, User2: receiver}
	created, err := s.rooms.Create(ctx, room)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// Конфликт создания: комнату успел вставить другой отправитель
		room, err = s.rooms.FindByRoomID(ctx, roomID)
		if err != nil {
			return nil, false, err
		}
		return room, false, nil
	}

	return room, true, nil
}

// SendMessage принимает сообщение и кладет его в кэш. В БД сообщение попадет
// позже, фоновым flush'ем; синхронной записи в БД на этом пути нет.
func (s *chatService) SendMessage(ctx context.Context, sender, receiver, content, fileURL string) (*domain.ChatMessage, *domain.ChatRoom, bool, error) {
	sender = strings.TrimSpace(sender)
	receiver = strings.TrimSpace(receiver)
	if sender == "" || receiver == "" {
		return nil, nil, false, fmt.Errorf("%w: sender and receiver are required", apperrors.ErrBadRequest)
	}

	room, created, err := s.GetOrCreateRoom(ctx, sender, receiver)
	if err != nil {
		return nil, nil, false, err
	}

	msg := &domain.ChatMessage{
		RoomID:    room.RoomID,
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		FileURL:   fileURL,
		Timestamp: s.now(),
	}

	if err := s.cache.Push(ctx, room.RoomID, msg); err != nil {
		return nil, nil, false, err
	}

	return msg, room, created, nil
}

// GetMessages собирает историю комнаты. Теплый кэш отдается как есть; пустой
// кэш наполняется из БД (read-through). Результат всегда дедуплицирован по
// составному ключу и отсортирован по времени: вокруг границы flush'а кэш и БД
// могут пересекаться.
func (s *chatService) GetMessages(ctx context.Context, roomID string) ([]*domain.ChatMessage, error) {
	msgs, err := s.cache.Range(ctx, roomID, 0, -1)
	if err != nil {
		return nil, err
	}

	if len(msgs) == 0 {
		stored, err := s.messages.FindByRoom(ctx, roomID)
		if err != nil {
			// Холодное чтение без БД отдать нечего
			return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
		}

		for _, m := range stored {
			if err := s.cache.Push(ctx, roomID, m); err != nil {
				s.log.Warn("Failed to backfill cache", "error", err, "room_id", roomID)
				break
			}
		}
		msgs = stored
	}

	return dedupeAndSort(msgs), nil
}

// GetLastMessage возвращает последнее сообщение комнаты или nil, если их нет.
func (s *chatService) GetLastMessage(ctx context.Context, roomID string) (*domain.ChatMessage, error) {
	msgs, err := s.GetMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return msgs[len(msgs)-1], nil
}

// GetUnreadCount считает непрочитанные сообщения участника: чужие сообщения
// строго позже его отметки прочтения. Свои сообщения не считаются никогда.
// Несуществующая комната дает 0, а не ошибку.
func (s *chatService) GetUnreadCount(ctx context.Context, roomID, username string) (int64, error) {
	room, err := s.rooms.FindByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, apperrors.ErrRoomNotFound) {
			return 0, nil
		}
		return 0, err
	}

	lastRead := room.LastReadFor(username)

	msgs, err := s.GetMessages(ctx, roomID)
	if err != nil {
		return 0, err
	}

	var count int64
	for _, m := range msgs {
		if m.Sender == username {
			continue
		}
		if lastRead == nil || m.Timestamp.After(*lastRead) {
			count++
		}
	}

	return count, nil
}

// MarkAsRead проставляет участнику отметку прочтения текущим временем.
func (s *chatService) MarkAsRead(ctx context.Context, roomID, username string) (*domain.ChatRoom, error) {
	return s.rooms.UpdateLastRead(ctx, roomID, username, s.now())
}

func (s *chatService) GetSubscribedRooms(ctx context.Context, username string) ([]*domain.ChatRoom, error) {
	return s.rooms.FindByParticipant(ctx, username)
}

func dedupeAndSort(msgs []*domain.ChatMessage) []*domain.ChatMessage {
	seen := make(map[domain.MessageKey]struct{}, len(msgs))
	result := make([]*domain.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		key := m.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, m)
	}

	// Стабильная сортировка сохраняет порядок записи при равных timestamp
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result
}
