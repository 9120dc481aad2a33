package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatroom_backend/internal/domain"
	apperrors "chatroom_backend/pkg/errors"
	"chatroom_backend/pkg/logger"
)

type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id int64) (*domain.Post, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Post, error)
}

type postRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewPostRepository(db *pgxpool.Pool, log logger.Logger) PostRepository {
	return &postRepository{db: db, log: log}
}

func (r *postRepository) Create(ctx context.Context, post *domain.Post) error {
	query := `
		INSERT INTO posts (author, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		post.Author, post.Title, post.Content, post.CreatedAt, post.UpdatedAt,
	).Scan(&post.ID)
	if err != nil {
		r.log.Error("Failed to create post", "error", err)
		return err
	}

	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	query := `
		SELECT id, author, title, content, created_at, updated_at
		FROM posts
		WHERE id = $1
	`

	post := &domain.Post{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&post.ID, &post.Author, &post.Title, &post.Content, &post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPostNotFound
		}
		r.log.Error("Failed to get post", "error", err, "post_id", id)
		return nil, err
	}

	return post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*domain.Post, error) {
	query := `
		SELECT id, author, title, content, created_at, updated_at
		FROM posts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("Failed to list posts", "error", err)
		return nil, err
	}
	defer rows.Close()

	var posts []*domain.Post
	for rows.Next() {
		post := &domain.Post{}
		err := rows.Scan(&post.ID, &post.Author, &post.Title, &post.Content, &post.CreatedAt, &post.UpdatedAt)
		if err != nil {
			r.log.Error("Failed to scan post", "error", err)
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return posts, nil
}
