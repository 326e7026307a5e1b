package model

import "time"

// Provider identifies the external chat backend an agent relays to.
type Provider string

const (
	ProviderDify   Provider = "dify"
	ProviderOpenAI Provider = "openai"
)

// AgentStatus is the lifecycle state of an agent.
type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentInactive AgentStatus = "inactive"
)

// Agent is a configured external-chat-backed persona. It is owned by one
// user and may be shared with others through assignments.
type Agent struct {
	ID        uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    uint        `json:"user_id" gorm:"not null;index"`
	Name      string      `json:"name" gorm:"size:128;not null"`
	PageURL   string      `json:"page_url" gorm:"size:128;not null;uniqueIndex"`
	Provider  Provider    `json:"provider" gorm:"size:16;default:dify"`
	APIKey    string      `json:"-" gorm:"size:255"`
	Status    AgentStatus `json:"status" gorm:"size:16;default:active;index"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	Owner User `json:"-" gorm:"foreignKey:UserID"`
}

// TableName returns the database table name for Agent.
func (Agent) TableName() string { return "agents" }

// AccessLevel is the grant level of a user-agent assignment.
type AccessLevel string

const (
	// AccessUser lets the assignee chat with the agent.
	AccessUser AccessLevel = "user"
	// AccessManager additionally lets the assignee view stats.
	AccessManager AccessLevel = "manager"
)

// UserAgentAssignment grants a user access to an agent they do not own.
type UserAgentAssignment struct {
	ID          uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID      uint        `json:"user_id" gorm:"not null;uniqueIndex:ux_user_agent"`
	AgentID     uint        `json:"agent_id" gorm:"not null;uniqueIndex:ux_user_agent;index"`
	AccessLevel AccessLevel `json:"access_level" gorm:"size:16;default:user"`
	CreatedAt   time.Time   `json:"created_at"`

	User  User  `json:"-" gorm:"foreignKey:UserID"`
	Agent Agent `json:"-" gorm:"foreignKey:AgentID;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name for UserAgentAssignment.
func (UserAgentAssignment) TableName() string { return "user_agent_assignments" }
