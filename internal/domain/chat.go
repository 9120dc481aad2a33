package domain

import (
	"time"
)

// ChatMessage — сообщение между двумя пользователями.
// Идентификатор сообщения составной (см. MessageKey), числового id нет:
// одно и то же сообщение может одновременно жить в кэше и в БД.
type ChatMessage struct {
	RoomID    string    `json:"roomId"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Content   string    `json:"content"`
	FileURL   string    `json:"fileUrl,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageKey — составной ключ для дедупликации сообщений.
// Время сравнивается с точностью до миллисекунды, чтобы ключ совпадал
// после round-trip через JSON в Redis и timestamptz в Postgres.
type MessageKey struct {
	RoomID    string
	Timestamp int64
	Sender    string
	Content   string
}

func (m *ChatMessage) Key() MessageKey {
	return MessageKey{
		RoomID:    m.RoomID,
		Timestamp: m.Timestamp.UnixMilli(),
		Sender:    m.Sender,
		Content:   m.Content,
	}
}

// ChatRoom — комната двух участников. RoomID детерминирован парой
// участников и уникален в БД.
type ChatRoom struct {
	ID              int64      `json:"id"`
	RoomID          string     `json:"roomId"`
	User1           string     `json:"user1"`
	User2           string     `json:"user2"`
	LastReadAtUser1 *time.Time `json:"lastReadAtUser1,omitempty"`
	LastReadAtUser2 *time.Time `json:"lastReadAtUser2,omitempty"`
}

func (r *ChatRoom) HasParticipant(username string) bool {
	return username == r.User1 || username == r.User2
}

// LastReadFor возвращает отметку прочтения участника; nil — никогда не читал.
func (r *ChatRoom) LastReadFor(username string) *time.Time {
	switch username {
	case r.User1:
		return r.LastReadAtUser1
	case r.User2:
		return r.LastReadAtUser2
	}
	return nil
}

// PeerOf возвращает собеседника. Для чата с самим собой это тот же пользователь.
func (r *ChatRoom) PeerOf(username string) string {
	if username == r.User1 {
		return r.User2
	}
	return r.User1
}
