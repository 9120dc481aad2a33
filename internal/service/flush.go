package service

import (
	"context"
	"sync"
	"time"

	"chatroom_backend/internal/repository"
	"chatroom_backend/pkg/logger"
)

// FlushScheduler периодически переносит буферизованные сообщения из кэша в БД.
// Перенос идемпотентен на уровне отдельного сообщения: перед вставкой
// проверяется существование по составному ключу, поэтому частично упавший
// flush безопасно повторяется на следующем тике.
type FlushScheduler struct {
	cache    repository.MessageCache
	messages repository.MessageRepository
	interval time.Duration
	log      logger.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewFlushScheduler(cache repository.MessageCache, messages repository.MessageRepository, interval time.Duration, log logger.Logger) *FlushScheduler {
	return &FlushScheduler{
		cache:    cache,
		messages: messages,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start запускает фоновый цикл. Вызывается один раз при старте процесса.
func (f *FlushScheduler) Start() {
	go f.run()
}

// Stop останавливает цикл и дожидается завершения текущего тика.
func (f *FlushScheduler) Stop() {
	f.stopOnce.Do(func() {
		close(f.stop)
	})
	<-f.done
}

func (f *FlushScheduler) run() {
	defer close(f.done)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.FlushAll(context.Background())
		case <-f.stop:
			return
		}
	}
}

// FlushAll обрабатывает все ключи кэша. Ошибка одного ключа не прерывает
// остальные и не фатальна: ключ остается в кэше до следующего тика.
func (f *FlushScheduler) FlushAll(ctx context.Context) {
	roomIDs, err := f.cache.ListRoomIDs(ctx)
	if err != nil {
		f.log.Error("Flush failed to enumerate cache keys", "error", err)
		return
	}

	for _, roomID := range roomIDs {
		if err := f.flushRoom(ctx, roomID); err != nil {
			f.log.Error("Flush failed, will retry next tick", "error", err, "room_id", roomID)
		}
	}
}

func (f *FlushScheduler) flushRoom(ctx context.Context, roomID string) error {
	msgs, err := f.cache.Range(ctx, roomID, 0, -1)
	if err != nil {
		return err
	}

	for _, m := range msgs {
		exists, err := f.messages.Exists(ctx, m.RoomID, m.Timestamp, m.Sender)
		if err != nil {
			return err
		}
		if exists {
			// Уже сохранено предыдущим, частично упавшим flush'ем
			continue
		}
		if err := f.messages.Insert(ctx, m); err != nil {
			return err
		}
	}

	// Ключ удаляется целиком и только после того, как все его сообщения в БД
	return f.cache.DeleteKey(ctx, roomID)
}
