package store

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Bookmark struct {
	ID        int64     `json:"id"`
	BookID    int       `json:"book_id"`
	Chapter   int       `json:"chapter"`
	Verse     int       `json:"verse"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatMessage struct {
	ID        string    `json:"id"`   // UUID
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
