package permission

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentdesk/admin-platform/internal/model"
)

func uintPtr(v uint) *uint { return &v }

func agentOwnedBy(owner uint) AgentLookup {
	return func(agentID uint) (*model.Agent, error) {
		return &model.Agent{ID: agentID, UserID: owner}, nil
	}
}

func assigned(ok bool) AssignmentLookup {
	return func(userID, agentID uint) (bool, error) { return ok, nil }
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin(Principal{ID: 1, Role: model.RoleAdmin}))
	assert.False(t, IsAdmin(Principal{ID: 1, Role: model.RoleUser}))
	assert.False(t, IsAdmin(Principal{ID: 1}))
}

func TestCanAccessConversation(t *testing.T) {
	admin := Principal{ID: 1, Role: model.RoleAdmin}
	owner := Principal{ID: 2, Role: model.RoleUser}
	agentOwner := Principal{ID: 3, Role: model.RoleUser}
	assignee := Principal{ID: 4, Role: model.RoleUser}
	stranger := Principal{ID: 5, Role: model.RoleUser}

	withAgent := &model.Conversation{ID: 10, UserID: uintPtr(2), AgentID: uintPtr(7)}
	anonymous := &model.Conversation{ID: 11, AgentID: uintPtr(7)}
	noAgent := &model.Conversation{ID: 12, UserID: uintPtr(2)}

	agents := agentOwnedBy(3)

	t.Run("nil conversation denied", func(t *testing.T) {
		assert.False(t, CanAccessConversation(admin, nil, nil, nil))
	})

	t.Run("admin sees everything", func(t *testing.T) {
		assert.True(t, CanAccessConversation(admin, withAgent, nil, nil))
		assert.True(t, CanAccessConversation(admin, anonymous, nil, nil))
	})

	t.Run("direct owner allowed without lookups", func(t *testing.T) {
		assert.True(t, CanAccessConversation(owner, withAgent, nil, nil))
		assert.True(t, CanAccessConversation(owner, noAgent, nil, nil))
	})

	t.Run("agent owner allowed", func(t *testing.T) {
		assert.True(t, CanAccessConversation(agentOwner, withAgent, agents, assigned(false)))
		assert.True(t, CanAccessConversation(agentOwner, anonymous, agents, assigned(false)))
	})

	t.Run("assignee allowed", func(t *testing.T) {
		assert.True(t, CanAccessConversation(assignee, withAgent, agents, assigned(true)))
	})

	t.Run("unrelated user denied", func(t *testing.T) {
		assert.False(t, CanAccessConversation(stranger, withAgent, agents, assigned(false)))
	})

	t.Run("no agent id skips lookups", func(t *testing.T) {
		called := false
		lookup := func(agentID uint) (*model.Agent, error) {
			called = true
			return nil, nil
		}
		assert.False(t, CanAccessConversation(stranger, noAgent, lookup, assigned(true)))
		assert.False(t, called)
	})

	t.Run("lookup failure is a denial", func(t *testing.T) {
		failing := func(agentID uint) (*model.Agent, error) {
			return nil, errors.New("db down")
		}
		failingAssign := func(userID, agentID uint) (bool, error) {
			return true, errors.New("db down")
		}
		assert.False(t, CanAccessConversation(agentOwner, anonymous, failing, failingAssign))
	})
}

func TestCanModifyResource(t *testing.T) {
	admin := Principal{ID: 1, Role: model.RoleAdmin}
	user := Principal{ID: 2, Role: model.RoleUser}

	assert.True(t, CanModifyResource(admin, nil))
	assert.True(t, CanModifyResource(admin, uintPtr(99)))
	assert.True(t, CanModifyResource(user, uintPtr(2)))
	assert.False(t, CanModifyResource(user, uintPtr(3)))
	assert.False(t, CanModifyResource(user, nil))
}

func TestAccessibleAgentIDs(t *testing.T) {
	tests := []struct {
		name     string
		owned    []uint
		assigned []uint
		want     []uint
	}{
		{"both empty", nil, nil, []uint{}},
		{"owned only", []uint{1, 2}, nil, []uint{1, 2}},
		{"assigned only", nil, []uint{3}, []uint{3}},
		{"overlap deduped", []uint{1, 2}, []uint{2, 3}, []uint{1, 2, 3}},
		{"duplicates within set", []uint{1, 1}, []uint{1}, []uint{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AccessibleAgentIDs(tt.owned, tt.assigned))
		})
	}
}
