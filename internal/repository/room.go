package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatroom_backend/internal/domain"
	apperrors "chatroom_backend/pkg/errors"
	"chatroom_backend/pkg/logger"
)

type RoomRepository interface {
	// Create вставляет комнату; возвращает false, если room_id уже занят.
	Create(ctx context.Context, room *domain.ChatRoom) (bool, error)
	FindByRoomID(ctx context.Context, roomID string) (*domain.ChatRoom, error)
	FindByParticipant(ctx context.Context, username string) ([]*domain.ChatRoom, error)
	UpdateLastRead(ctx context.Context, roomID, username string, readAt time.Time) (*domain.ChatRoom, error)
}

type roomRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewRoomRepository(db *pgxpool.Pool, log logger.Logger) RoomRepository {
	return &roomRepository{db: db, log: log}
}

func (r *roomRepository) Create(ctx context.Context, room *domain.ChatRoom) (bool, error) {
	// Уникальность room_id отдана на откуп БД: гонку создания выигрывает
	// ровно один вызов, остальные получают false.
	query := `
		INSERT INTO chat_rooms (room_id, user1, user2)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id) DO NOTHING
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query, room.RoomID, room.User1, room.User2).Scan(&room.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		r.log.Error("Failed to create room", "error", err, "room_id", room.RoomID)
		return false, err
	}

	return true, nil
}

func (r *roomRepository) FindByRoomID(ctx context.Context, roomID string) (*domain.ChatRoom, error) {
	query := `
		SELECT id, room_id, user1, user2, last_read_at_user1, last_read_at_user2
		FROM chat_rooms
		WHERE room_id = $1
	`

	room := &domain.ChatRoom{}
	var lastRead1, lastRead2 sql.NullTime
	err := r.db.QueryRow(ctx, query, roomID).Scan(
		&room.ID, &room.RoomID, &room.User1, &room.User2, &lastRead1, &lastRead2,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRoomNotFound
		}
		r.log.Error("Failed to get room", "error", err, "room_id", roomID)
		return nil, err
	}

	if lastRead1.Valid {
		room.LastReadAtUser1 = &lastRead1.Time
	}
	if lastRead2.Valid {
		room.LastReadAtUser2 = &lastRead2.Time
	}

	return room, nil
}

func (r *roomRepository) FindByParticipant(ctx context.Context, username string) ([]*domain.ChatRoom, error) {
	query := `
		SELECT id, room_id, user1, user2, last_read_at_user1, last_read_at_user2
		FROM chat_rooms
		WHERE user1 = $1 OR user2 = $1
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, username)
	if err != nil {
		r.log.Error("Failed to list rooms", "error", err, "username", username)
		return nil, err
	}
	defer rows.Close()

	var rooms []*domain.ChatRoom
	for rows.Next() {
		room := &domain.ChatRoom{}
		var lastRead1, lastRead2 sql.NullTime
		err := rows.Scan(&room.ID, &room.RoomID, &room.User1, &room.User2, &lastRead1, &lastRead2)
		if err != nil {
			r.log.Error("Failed to scan room", "error", err)
			return nil, err
		}
		if lastRead1.Valid {
			room.LastReadAtUser1 = &lastRead1.Time
		}
		if lastRead2.Valid {
			room.LastReadAtUser2 = &lastRead2.Time
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rooms, nil
}

// UpdateLastRead обновляет отметку прочтения только одного участника.
// Каждый UPDATE трогает ровно одну колонку, поэтому одновременные отметки
// двух участников не затирают друг друга.
func (r *roomRepository) UpdateLastRead(ctx context.Context, roomID, username string, readAt time.Time) (*domain.ChatRoom, error) {
	room, err := r.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	var column string
	switch username {
	case room.User1:
		column = "last_read_at_user1"
	case room.User2:
		column = "last_read_at_user2"
	default:
		return nil, apperrors.ErrRoomNotFound
	}

	query := `UPDATE chat_rooms SET ` + column + ` = $2 WHERE room_id = $1`
	if _, err := r.db.Exec(ctx, query, roomID, readAt); err != nil {
		r.log.Error("Failed to update last read", "error", err, "room_id", roomID, "username", username)
		return nil, err
	}

	if username == room.User1 {
		room.LastReadAtUser1 = &readAt
	} else {
		room.LastReadAtUser2 = &readAt
	}

	return room, nil
}
