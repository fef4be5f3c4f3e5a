package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/liliang-cn/askstream/internal/domain"
)

// ConversationRepository handles conversation persistence
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create creates a new conversation
func (r *ConversationRepository) Create(conv *domain.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO conversations (id, site_token, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, conv.ID, conv.SiteToken, conv.CreatedAt, conv.UpdatedAt)

	return err
}

// Get retrieves a conversation by ID. It returns nil when none matches.
func (r *ConversationRepository) Get(id string) (*domain.Conversation, error) {
	conv := &domain.Conversation{}

	err := r.db.QueryRow(`
		SELECT id, site_token, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id).Scan(&conv.ID, &conv.SiteToken, &conv.CreatedAt, &conv.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return conv, nil
}

// Touch updates a conversation's updated_at timestamp
func (r *ConversationRepository) Touch(id string) error {
	_, err := r.db.Exec(`UPDATE conversations SET updated_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

// CreateMessage stores one side of a turn
func (r *ConversationRepository) CreateMessage(message *domain.StoredMessage) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.CreatedAt = time.Now()

	var citations sql.NullString
	if len(message.Citations) > 0 {
		data, err := json.Marshal(message.Citations)
		if err != nil {
			return fmt.Errorf("failed to marshal citations: %w", err)
		}
		citations = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.db.Exec(`
		INSERT INTO messages (id, conversation_id, role, content, citations, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, message.ID, message.ConversationID, message.Role, message.Content,
		citations, message.CreatedAt)

	return err
}

// GetMessages retrieves all messages of a conversation, oldest first
func (r *ConversationRepository) GetMessages(conversationID string) ([]*domain.StoredMessage, error) {
	rows, err := r.db.Query(`
		SELECT id, conversation_id, role, content, citations, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.StoredMessage
	for rows.Next() {
		message := &domain.StoredMessage{}
		var citations sql.NullString

		if err := rows.Scan(&message.ID, &message.ConversationID, &message.Role,
			&message.Content, &citations, &message.CreatedAt); err != nil {
			return nil, err
		}

		if citations.Valid && citations.String != "" {
			if err := json.Unmarshal([]byte(citations.String), &message.Citations); err != nil {
				return nil, fmt.Errorf("failed to decode citations: %w", err)
			}
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

// CountTurns returns the total number of user messages
func (r *ConversationRepository) CountTurns() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE role = 'user'`).Scan(&count)
	return count, err
}
