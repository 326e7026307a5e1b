// Package store is the GORM-backed persistence layer. Every query that can
// touch conversations takes an explicit trash filter; nothing here relies
// on ORM default scopes to hide soft-deleted rows.
package store

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agentdesk/admin-platform/internal/model"
)

// Store bundles the per-entity stores over one database handle.
type Store struct {
	db *gorm.DB

	Users         *UserStore
	Agents        *AgentStore
	Conversations *ConversationStore
	CRM           *CRMStore
}

// Open connects to MySQL and runs migrations.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	return New(db)
}

// New wraps an existing GORM handle and runs migrations. Tests use this
// with an in-memory SQLite database.
func New(db *gorm.DB) (*Store, error) {
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return &Store{
		db:            db,
		Users:         &UserStore{db: db},
		Agents:        &AgentStore{db: db},
		Conversations: &ConversationStore{db: db},
		CRM:           &CRMStore{db: db},
	}, nil
}

// DB exposes the underlying handle for transactions.
func (s *Store) DB() *gorm.DB { return s.db }

// Ping verifies database connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.WithContext(ctx).DB()
	if err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// AllModels returns every GORM model for migration.
func AllModels() []any {
	return []any{
		&model.User{},
		&model.Agent{},
		&model.UserAgentAssignment{},
		&model.Conversation{},
		&model.Customer{},
		&model.Product{},
		&model.Invoice{},
		&model.Payment{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("store: auto-migrate: %w", err)
	}
	return nil
}
