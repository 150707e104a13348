package session

import (
	"time"

	"github.com/ChamsBouzaiene/tally/internal/engine"
)

// Session is one persistent analysis conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one stored conversation turn.
type Message struct {
	ID        string             `json:"id"`
	SessionID string             `json:"session_id"`
	Role      engine.MessageRole `json:"role"`
	Content   string             `json:"content"`
	Timestamp time.Time          `json:"timestamp"`
}
