package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/onurbyrmv0/chat-relay/internal/domain"
)

type gormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a GORM-backed room repository.
func NewGormRoomRepository(db *gorm.DB) RoomRepository {
	return &gormRoomRepository{db: db}
}

func (r *gormRoomRepository) Create(ctx context.Context, name, password, createdBy string) (*domain.Room, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.RoomModel{}).
		Where("name = ?", name).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check room name: %w", err)
	}
	if count > 0 {
		return nil, ErrRoomExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	model := &domain.RoomModel{
		ID:        uuid.New().String(),
		Name:      name,
		Password:  string(hash),
		CreatedBy: createdBy,
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return fmt.Errorf("failed to create room: %w", err)
		}
		return r.joinTx(tx, model, createdBy)
	})
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *gormRoomRepository) Verify(ctx context.Context, name, password, userID string) (*domain.Room, error) {
	var model domain.RoomModel
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(model.Password), []byte(password)) != nil {
		return nil, ErrWrongPassword
	}

	if err := r.joinTx(r.db.WithContext(ctx), &model, userID); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *gormRoomRepository) List(ctx context.Context) ([]*domain.Room, error) {
	var models []domain.RoomModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	rooms := make([]*domain.Room, 0, len(models))
	for i := range models {
		rooms = append(rooms, models[i].ToDomain())
	}
	return rooms, nil
}

func (r *gormRoomRepository) GetByName(ctx context.Context, name string) (*domain.Room, error) {
	var model domain.RoomModel
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	return model.ToDomain(), nil
}

func (r *gormRoomRepository) Delete(ctx context.Context, id, requesterID string, isAdmin bool) (*domain.Room, error) {
	var model domain.RoomModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}

	if !isAdmin && model.CreatedBy != requesterID {
		return nil, ErrNotRoomCreator
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM user_rooms WHERE room_model_id = ?", model.ID).Error; err != nil {
			return fmt.Errorf("failed to drop memberships: %w", err)
		}
		if err := tx.Delete(&model).Error; err != nil {
			return fmt.Errorf("failed to delete room: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// joinTx records userID as a member of room, ignoring duplicates.
func (r *gormRoomRepository) joinTx(tx *gorm.DB, room *domain.RoomModel, userID string) error {
	user := domain.UserModel{ID: userID}
	if err := tx.Model(&user).Omit("JoinedRooms.*").Association("JoinedRooms").Append(room); err != nil {
		return fmt.Errorf("failed to record membership: %w", err)
	}
	return nil
}
