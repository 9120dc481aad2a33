package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatroom_backend/internal/domain"
	"chatroom_backend/internal/repository"
	apperrors "chatroom_backend/pkg/errors"
	"chatroom_backend/pkg/logger"
)

type PostService interface {
	CreatePost(ctx context.Context, author, title, content string) (*domain.Post, error)
	GetPost(ctx context.Context, id int64) (*domain.Post, error)
	ListPosts(ctx context.Context, limit, offset int) ([]*domain.Post, error)
}

type postService struct {
	postRepo repository.PostRepository
	log      logger.Logger
}

func NewPostService(postRepo repository.PostRepository, log logger.Logger) PostService {
	return &postService{postRepo: postRepo, log: log}
}

func (s *postService) CreatePost(ctx context.Context, author, title, content string) (*domain.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrBadRequest)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", apperrors.ErrBadRequest)
	}

	now := time.Now()
	post := &domain.Post{
		Author:    author,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	return post, nil
}

func (s *postService) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

func (s *postService) ListPosts(ctx context.Context, limit, offset int) ([]*domain.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.postRepo.List(ctx, limit, offset)
}
