package models

import "time"

const MessageTypeText = "text"

// ChatMessage is immutable once stored.
type ChatMessage struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"fullname,omitempty"`
	Body        string    `json:"message"`
	Type        string    `json:"message_type"`
	Timestamp   time.Time `json:"timestamp"`
	CreatedAt   time.Time `json:"created_at"`
}
