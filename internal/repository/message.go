package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"chatroom_backend/internal/domain"
	"chatroom_backend/pkg/logger"
)

type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.ChatMessage) error
	Exists(ctx context.Context, roomID string, timestamp time.Time, sender string) (bool, error)
	FindByRoom(ctx context.Context, roomID string) ([]*domain.ChatMessage, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

func (r *messageRepository) Insert(ctx context.Context, msg *domain.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (room_id, sender, receiver, content, file_url, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		msg.RoomID, msg.Sender, msg.Receiver, msg.Content, msg.FileURL, msg.Timestamp,
	)
	if err != nil {
		r.log.Error("Failed to insert message", "error", err, "room_id", msg.RoomID)
		return err
	}

	return nil
}

// Exists проверяет, сохранено ли уже сообщение с таким составным ключом.
// Используется flush'ем как защита от повторной записи.
func (r *messageRepository) Exists(ctx context.Context, roomID string, timestamp time.Time, sender string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM chat_messages
			WHERE room_id = $1 AND timestamp = $2 AND sender = $3
		)
	`

	var exists bool
	err := r.db.QueryRow(ctx, query, roomID, timestamp, sender).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check message existence", "error", err, "room_id", roomID)
		return false, err
	}

	return exists, nil
}

func (r *messageRepository) FindByRoom(ctx context.Context, roomID string) ([]*domain.ChatMessage, error) {
	query := `
		SELECT room_id, sender, receiver, content, file_url, timestamp
		FROM chat_messages
		WHERE room_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		r.log.Error("Failed to get messages", "error", err, "room_id", roomID)
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.ChatMessage
	for rows.Next() {
		msg := &domain.ChatMessage{}
		err := rows.Scan(&msg.RoomID, &msg.Sender, &msg.Receiver, &msg.Content, &msg.FileURL, &msg.Timestamp)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
