package service

import (
	"context"
	"fmt"
	"time"

	"chatroom_backend/internal/repository"
	"chatroom_backend/pkg/logger"
)

type RateLimitService interface {
	CheckLimit(ctx context.Context, key string, limit int, windowSeconds int) (bool, error)
	Increment(ctx context.Context, key string, windowSeconds int) (int64, error)
}

type rateLimitService struct {
	repo repository.RateLimitRepository
	log  logger.Logger
}

func NewRateLimitService(repo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{repo: repo, log: log}
}

func (s *rateLimitService) CheckLimit(ctx context.Context, key string, limit int, windowSeconds int) (bool, error) {
	return s.repo.CheckLimit(ctx, s.key(key), limit, time.Duration(windowSeconds)*time.Second)
}

func (s *rateLimitService) Increment(ctx context.Context, key string, windowSeconds int) (int64, error) {
	return s.repo.Increment(ctx, s.key(key), time.Duration(windowSeconds)*time.Second)
}

func (s *rateLimitService) key(key string) string {
	return fmt.Sprintf("ratelimit:%s", key)
}
