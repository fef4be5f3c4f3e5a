package domain

import "time"

// Conversation is the server-side record behind a conversation identifier
type Conversation struct {
	ID        string    `json:"id"`
	SiteToken string    `json:"site_token"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoredMessage is a persisted turn half on the server
type StoredMessage struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	Role           Role       `json:"role"`
	Content        string     `json:"content"`
	Citations      []Citation `json:"citations,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
