package domain

import "time"

// SessionInfo summarizes a stored conversation.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Items     int       `json:"items"`
}
