package model

import "time"

// ActiveUser is a collaborator currently present in a playlist's room.
type ActiveUser struct {
	UserID    string    `json:"userId"`
	UserEmail string    `json:"userEmail"`
	JoinedAt  time.Time `json:"joinedAt"`
}
