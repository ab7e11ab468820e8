// Package repository persists accounts and rooms behind GORM.
package repository

import (
	"context"
	"errors"

	"github.com/onurbyrmv0/chat-relay/internal/domain"
)

var (
	ErrUserNotFound   = errors.New("repository: user not found")
	ErrUserExists     = errors.New("repository: nickname already taken")
	ErrRoomNotFound   = errors.New("repository: room not found")
	ErrRoomExists     = errors.New("repository: room already exists")
	ErrWrongPassword  = errors.New("repository: wrong password")
	ErrNotRoomCreator = errors.New("repository: not the room creator")
)

// UserRepository manages registered accounts.
type UserRepository interface {
	// Create registers a new account with a bcrypt-hashed password.
	Create(ctx context.Context, nickname, password, avatar string, isAdmin bool) (*domain.User, error)

	// Authenticate checks nickname/password and returns the profile.
	Authenticate(ctx context.Context, nickname, password string) (*domain.User, error)

	// GetByID returns a profile with joined rooms preloaded.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByNickname returns a profile with joined rooms preloaded.
	GetByNickname(ctx context.Context, nickname string) (*domain.User, error)

	// List returns all accounts, newest first.
	List(ctx context.Context) ([]*domain.User, error)

	// Delete removes an account and its room memberships.
	Delete(ctx context.Context, id string) (*domain.User, error)

	// SeedAdmin ensures the admin account exists.
	SeedAdmin(ctx context.Context, nickname, password string) error
}

// RoomRepository manages password-gated rooms.
type RoomRepository interface {
	// Create adds a room with a bcrypt-hashed password and joins the creator.
	Create(ctx context.Context, name, password, createdBy string) (*domain.Room, error)

	// Verify checks a room password and records the user as a member.
	Verify(ctx context.Context, name, password, userID string) (*domain.Room, error)

	// List returns all rooms, newest first.
	List(ctx context.Context) ([]*domain.Room, error)

	// GetByName looks a room up by name.
	GetByName(ctx context.Context, name string) (*domain.Room, error)

	// Delete removes a room. Admins may delete any room; everyone else
	// only their own.
	Delete(ctx context.Context, id, requesterID string, isAdmin bool) (*domain.Room, error)
}
