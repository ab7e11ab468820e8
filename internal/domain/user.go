package domain

import "time"

// User is a registered chat account.
type User struct {
	ID          string    `json:"id"`
	Nickname    string    `json:"nickname"`
	Avatar      string    `json:"avatar"`
	IsAdmin     bool      `json:"isAdmin"`
	JoinedRooms []RoomRef `json:"joinedRooms,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RoomRef is a lightweight room reference carried on user profiles.
type RoomRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedBy string `json:"createdBy"`
}

// RegisterRequest is the payload for account registration.
type RegisterRequest struct {
	Nickname string `json:"nickname" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=4"`
	Avatar   string `json:"avatar"`
}

// LoginRequest is the payload for login.
type LoginRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the profile and token pair returned on login.
type LoginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
