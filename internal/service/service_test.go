package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agentdesk/admin-platform/internal/model"
	"github.com/agentdesk/admin-platform/internal/permission"
	"github.com/agentdesk/admin-platform/internal/store"
	"github.com/agentdesk/admin-platform/pkg/logger"
)

// newTestStore opens an isolated in-memory database with migrations run.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	st, err := store.New(db)
	require.NoError(t, err)
	return st
}

func newConversationService(t *testing.T) (*ConversationService, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	return NewConversationService(st, nil, logger.NewNop()), st
}

var seedCounter int

func nextSuffix() string {
	seedCounter++
	return strconv.Itoa(seedCounter)
}

func seedUser(t *testing.T, st *store.Store, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		Name:         "user",
		Email:        string(role) + "-" + nextSuffix() + "@example.com",
		PasswordHash: "x",
		Role:         role,
		Active:       true,
	}
	require.NoError(t, st.Users.Create(context.Background(), u))
	return u
}

func seedAgent(t *testing.T, st *store.Store, owner uint, slug string) *model.Agent {
	t.Helper()
	a := &model.Agent{
		UserID:   owner,
		Name:     "agent " + slug,
		PageURL:  slug,
		Provider: model.ProviderDify,
		APIKey:   "key",
		Status:   model.AgentActive,
	}
	require.NoError(t, st.Agents.Create(context.Background(), a))
	return a
}

func seedConversation(t *testing.T, st *store.Store, userID, agentID *uint) *model.Conversation {
	t.Helper()
	c := &model.Conversation{
		UserID:    userID,
		AgentID:   agentID,
		Title:     "test conversation",
		SessionID: "session-" + nextSuffix(),
		Status:    model.ConversationActive,
	}
	require.NoError(t, st.Conversations.Create(context.Background(), c))
	return c
}

func principalFor(u *model.User) permission.Principal {
	return permission.Principal{ID: u.ID, Role: u.Role}
}

func uintPtr(v uint) *uint { return &v }
