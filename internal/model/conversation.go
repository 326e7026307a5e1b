package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MessageRole is the author role of a chat message.
type MessageRole string

const (
	RoleMessageUser      MessageRole = "user"
	RoleMessageAssistant MessageRole = "assistant"
	RoleMessageSystem    MessageRole = "system"
)

// ChatMessage is one turn inside a conversation transcript.
type ChatMessage struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// MessageList is an ordered transcript stored as a JSON column.
type MessageList []ChatMessage

// Value implements driver.Valuer.
func (m MessageList) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("model: marshal messages: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (m *MessageList) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("model: scan messages: unsupported type %T", value)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, m)
}

// ConversationStatus is the workflow state of a conversation, independent
// of its trash state.
type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "active"
	ConversationCompleted ConversationStatus = "completed"
	ConversationArchived  ConversationStatus = "archived"
)

// Conversation is a logged chat transcript. UserID is nil for anonymous
// external-chat sessions; visibility then derives from the agent's owner
// and assignees.
//
// DeletedAt and DeletedBy are set together on soft-delete and cleared
// together on restore. MessageCount always equals len(Messages) after any
// mutation. Queries must pass an explicit trash filter; there is no
// default scope hiding trashed rows.
type Conversation struct {
	ID               uint               `json:"id" gorm:"primaryKey;autoIncrement"`
	AgentID          *uint              `json:"agent_id" gorm:"index"`
	UserID           *uint              `json:"user_id" gorm:"index"`
	Title            string             `json:"title" gorm:"size:255"`
	ConversationType string             `json:"conversation_type" gorm:"size:32;default:general;index"`
	SessionID        string             `json:"session_id" gorm:"size:64;index"`
	ThreadID         string             `json:"thread_id" gorm:"size:64"`
	Messages         MessageList        `json:"messages" gorm:"type:json"`
	MessageCount     int                `json:"message_count" gorm:"default:0"`
	Status           ConversationStatus `json:"status" gorm:"size:16;default:active;index"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	DeletedAt        *time.Time         `json:"deleted_at" gorm:"index"`
	DeletedBy        *uint              `json:"deleted_by"`

	Agent *Agent `json:"-" gorm:"foreignKey:AgentID"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Trashed reports whether the conversation is in the trash.
func (c *Conversation) Trashed() bool { return c.DeletedAt != nil }

// Append adds a message to the transcript and keeps MessageCount in sync.
func (c *Conversation) Append(msg ChatMessage) {
	c.Messages = append(c.Messages, msg)
	c.MessageCount = len(c.Messages)
}
