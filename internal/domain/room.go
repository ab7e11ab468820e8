package domain

import "time"

// Room is a password-gated named room managed over REST. Relay-side,
// any string is an acceptable room name whether or not a Room record
// exists for it.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateRoomRequest is the payload for room creation.
type CreateRoomRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=200"`
	Password string `json:"password" binding:"required,min=1"`
}

// VerifyRoomRequest is the payload for the room password gate.
type VerifyRoomRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}
