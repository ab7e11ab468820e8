package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onurbyrmv0/chat-relay/internal/domain"
	"github.com/onurbyrmv0/chat-relay/pkg/log"
)

// GormStore implements Store using GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-based history store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Load fetches the newest limit messages for room and reverses them so
// the caller receives oldest-first order.
func (s *GormStore) Load(ctx context.Context, room string, limit int) ([]domain.Message, error) {
	l := log.Ctx(ctx)

	var models []domain.MessageModel
	result := s.db.WithContext(ctx).
		Where("room = ?", room).
		Order("timestamp DESC").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoom, room).Msg("failed to load history from db")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, result.Error)
	}

	messages := make([]domain.Message, len(models))
	for i, model := range models {
		messages[len(models)-1-i] = *model.ToDomain()
	}
	return messages, nil
}

// Append persists a message, assigning id and persist-time timestamp.
func (s *GormStore) Append(ctx context.Context, msg domain.Message) (domain.Message, error) {
	l := log.Ctx(ctx)

	msg.ID = uuid.New().String()
	msg.Timestamp = time.Now().UTC()

	model := domain.MessageToModel(&msg)
	result := s.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoom, msg.Room).Msg("failed to persist message")
		return domain.Message{}, fmt.Errorf("%w: %v", ErrPersist, result.Error)
	}

	return *model.ToDomain(), nil
}

// Clear deletes all messages for room.
func (s *GormStore) Clear(ctx context.Context, room string) (int64, error) {
	l := log.Ctx(ctx)

	result := s.db.WithContext(ctx).
		Where("room = ?", room).
		Delete(&domain.MessageModel{})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoom, room).Msg("failed to clear room history")
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, result.Error)
	}

	l.Debug().Str(log.FieldRoom, room).Int64("removed", result.RowsAffected).Msg("room history cleared")
	return result.RowsAffected, nil
}

// Ping checks connectivity to the backing database.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
