package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/onurbyrmv0/chat-relay/internal/domain"
	"github.com/onurbyrmv0/chat-relay/pkg/log"
)

type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a GORM-backed user repository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) Create(ctx context.Context, nickname, password, avatar string, isAdmin bool) (*domain.User, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("nickname = ?", nickname).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check nickname: %w", err)
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if avatar == "" {
		avatar = defaultAvatar(nickname)
	}

	model := &domain.UserModel{
		ID:       uuid.New().String(),
		Nickname: nickname,
		Password: string(hash),
		Avatar:   avatar,
		IsAdmin:  isAdmin,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return model.ToDomain(), nil
}

func (r *gormUserRepository) Authenticate(ctx context.Context, nickname, password string) (*domain.User, error) {
	var model domain.UserModel
	err := r.db.WithContext(ctx).Preload("JoinedRooms").
		Where("nickname = ?", nickname).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(model.Password), []byte(password)) != nil {
		return nil, ErrWrongPassword
	}
	return model.ToDomain(), nil
}

func (r *gormUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model domain.UserModel
	err := r.db.WithContext(ctx).Preload("JoinedRooms").
		Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return model.ToDomain(), nil
}

func (r *gormUserRepository) GetByNickname(ctx context.Context, nickname string) (*domain.User, error) {
	var model domain.UserModel
	err := r.db.WithContext(ctx).Preload("JoinedRooms").
		Where("nickname = ?", nickname).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return model.ToDomain(), nil
}

func (r *gormUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var models []domain.UserModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*domain.User, 0, len(models))
	for i := range models {
		users = append(users, models[i].ToDomain())
	}
	return users, nil
}

func (r *gormUserRepository) Delete(ctx context.Context, id string) (*domain.User, error) {
	var model domain.UserModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := r.db.WithContext(ctx).Select("JoinedRooms").Delete(&model).Error; err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	return model.ToDomain(), nil
}

func (r *gormUserRepository) SeedAdmin(ctx context.Context, nickname, password string) error {
	var model domain.UserModel
	err := r.db.WithContext(ctx).Where("nickname = ?", nickname).First(&model).Error
	if err == nil {
		if model.IsAdmin {
			return nil
		}
		// Account pre-dates the admin config; promote it.
		if err := r.db.WithContext(ctx).Model(&model).Update("is_admin", true).Error; err != nil {
			return fmt.Errorf("failed to promote admin account: %w", err)
		}
		l := log.L()
		l.Info().Str(log.FieldNickname, nickname).Msg("existing account promoted to admin")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check admin account: %w", err)
	}

	if _, err := r.Create(ctx, nickname, password, "", true); err != nil {
		return err
	}
	l := log.L()
	l.Info().Str(log.FieldNickname, nickname).Msg("admin account seeded")
	return nil
}

// defaultAvatar mirrors the client's generated avatars for accounts
// registered without one.
func defaultAvatar(nickname string) string {
	return "https://api.dicebear.com/9.x/avataaars/svg?seed=" + nickname
}
