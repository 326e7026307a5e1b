package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdesk/admin-platform/internal/apperr"
	"github.com/agentdesk/admin-platform/internal/model"
	"github.com/agentdesk/admin-platform/internal/pagination"
	"github.com/agentdesk/admin-platform/internal/store"
)

func TestGetAccessControl(t *testing.T) {
	svc, st := newConversationService(t)
	ctx := context.Background()

	admin := seedUser(t, st, model.RoleAdmin)
	owner := seedUser(t, st, model.RoleUser)
	agentOwner := seedUser(t, st, model.RoleUser)
	assignee := seedUser(t, st, model.RoleUser)
	stranger := seedUser(t, st, model.RoleUser)

	agent := seedAgent(t, st, agentOwner.ID, "support-bot")
	require.NoError(t, st.Agents.Assign(ctx, &model.UserAgentAssignment{
		UserID: assignee.ID, AgentID: agent.ID, AccessLevel: model.AccessUser,
	}))

	conv := seedConversation(t, st, uintPtr(owner.ID), uintPtr(agent.ID))
	anonymous := seedConversation(t, st, nil, uintPtr(agent.ID))

	t.Run("owner reads own conversation", func(t *testing.T) {
		got, err := svc.Get(ctx, principalFor(owner), conv.ID)
		require.NoError(t, err)
		assert.Equal(t, conv.ID, got.ID)
	})

	t.Run("admin reads anything", func(t *testing.T) {
		_, err := svc.Get(ctx, principalFor(admin), anonymous.ID)
		require.NoError(t, err)
	})

	t.Run("agent owner reads anonymous session", func(t *testing.T) {
		_, err := svc.Get(ctx, principalFor(agentOwner), anonymous.ID)
		require.NoError(t, err)
	})

	t.Run("assignee reads agent conversation", func(t *testing.T) {
		_, err := svc.Get(ctx, principalFor(assignee), conv.ID)
		require.NoError(t, err)
	})

	t.Run("unrelated user is denied", func(t *testing.T) {
		_, err := svc.Get(ctx, principalFor(stranger), conv.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("missing id is not found", func(t *testing.T) {
		_, err := svc.Get(ctx, principalFor(admin), 9999)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestSoftDeleteAndRestore(t *testing.T) {
	svc, st := newConversationService(t)
	ctx := context.Background()

	owner := seedUser(t, st, model.RoleUser)
	conv := seedConversation(t, st, uintPtr(owner.ID), nil)
	p := principalFor(owner)

	require.NoError(t, svc.SoftDelete(ctx, p, conv.ID))

	t.Run("trashed row hidden from get", func(t *testing.T) {
		_, err := svc.Get(ctx, p, conv.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("both markers set together", func(t *testing.T) {
		row, err := st.Conversations.ByID(ctx, conv.ID, store.FilterTrashed)
		require.NoError(t, err)
		require.NotNil(t, row.DeletedAt)
		require.NotNil(t, row.DeletedBy)
		assert.Equal(t, owner.ID, *row.DeletedBy)
	})

	t.Run("trashed row listed in trash", func(t *testing.T) {
		rows, page, err := svc.ListTrash(ctx, p, pagination.Params{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
		require.Len(t, rows, 1)
		assert.Equal(t, conv.ID, rows[0].ID)
	})

	t.Run("second delete is not found", func(t *testing.T) {
		err := svc.SoftDelete(ctx, p, conv.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("restore clears both markers", func(t *testing.T) {
		require.NoError(t, svc.Restore(ctx, p, conv.ID))

		row, err := svc.Get(ctx, p, conv.ID)
		require.NoError(t, err)
		assert.Nil(t, row.DeletedAt)
		assert.Nil(t, row.DeletedBy)
	})

	t.Run("restoring an active row is a conflict", func(t *testing.T) {
		err := svc.Restore(ctx, p, conv.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})
}

func TestDeletePermissions(t *testing.T) {
	svc, st := newConversationService(t)
	ctx := context.Background()

	owner := seedUser(t, st, model.RoleUser)
	agentOwner := seedUser(t, st, model.RoleUser)
	assignee := seedUser(t, st, model.RoleUser)

	agent := seedAgent(t, st, agentOwner.ID, "widget")
	require.NoError(t, st.Agents.Assign(ctx, &model.UserAgentAssignment{
		UserID: assignee.ID, AgentID: agent.ID,
	}))
	conv := seedConversation(t, st, uintPtr(owner.ID), uintPtr(agent.ID))

	t.Run("assignee may read but not delete", func(t *testing.T) {
		_, err := svc.Get(ctx, principalFor(assignee), conv.ID)
		require.NoError(t, err)

		err = svc.SoftDelete(ctx, principalFor(assignee), conv.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("agent owner may read but not delete", func(t *testing.T) {
		err := svc.SoftDelete(ctx, principalFor(agentOwner), conv.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("restore by non-owner denied", func(t *testing.T) {
		require.NoError(t, svc.SoftDelete(ctx, principalFor(owner), conv.ID))
		err := svc.Restore(ctx, principalFor(assignee), conv.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})
}

func TestBulkSoftDeleteScopesToOwnedRows(t *testing.T) {
	svc, st := newConversationService(t)
	ctx := context.Background()

	caller := seedUser(t, st, model.RoleUser)
	other := seedUser(t, st, model.RoleUser)

	mine1 := seedConversation(t, st, uintPtr(caller.ID), nil)
	mine2 := seedConversation(t, st, uintPtr(caller.ID), nil)
	theirs := seedConversation(t, st, uintPtr(other.ID), nil)

	count, err := svc.BulkSoftDelete(ctx, principalFor(caller), []uint{mine1.ID, mine2.ID, theirs.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// The foreign row is untouched.
	row, err := st.Conversations.ByID(ctx, theirs.ID, store.FilterActive)
	require.NoError(t, err)
	assert.Nil(t, row.DeletedAt)

	// Admin bulk delete is unscoped.
	admin := seedUser(t, st, model.RoleAdmin)
	count, err = svc.BulkSoftDelete(ctx, principalFor(admin), []uint{theirs.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestBulkRestoreIsAllOrNothing(t *testing.T) {
	svc, st := newConversationService(t)
	ctx := context.Background()

	caller := seedUser(t, st, model.RoleUser)
	other := seedUser(t, st, model.RoleUser)

	mine := seedConversation(t, st, uintPtr(caller.ID), nil)
	theirs := seedConversation(t, st, uintPtr(other.ID), nil)

	require.NoError(t, svc.SoftDelete(ctx, principalFor(caller), mine.ID))
	require.NoError(t, svc.SoftDelete(ctx, principalFor(other), theirs.ID))

	t.Run("foreign row fails the whole batch", func(t *testing.T) {
		_, err := svc.BulkRestore(ctx, principalFor(caller), []uint{mine.ID, theirs.ID})
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

		// Nothing was restored.
		row, err := st.Conversations.ByID(ctx, mine.ID, store.FilterTrashed)
		require.NoError(t, err)
		assert.NotNil(t, row.DeletedAt)
	})

	t.Run("owned batch restores", func(t *testing.T) {
		count, err := svc.BulkRestore(ctx, principalFor(caller), []uint{mine.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("nothing trashed in batch is not found", func(t *testing.T) {
		_, err := svc.BulkRestore(ctx, principalFor(caller), []uint{mine.ID, 9999})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("admin restores any rows", func(t *testing.T) {
		admin := seedUser(t, st, model.RoleAdmin)
		count, err := svc.BulkRestore(ctx, principalFor(admin), []uint{theirs.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestEmptyTrash(t *testing.T) {
	svc, st := newConversationService(t)
	ctx := context.Background()

	admin := seedUser(t, st, model.RoleAdmin)
	user := seedUser(t, st, model.RoleUser)

	active := seedConversation(t, st, uintPtr(user.ID), nil)
	trashed1 := seedConversation(t, st, uintPtr(user.ID), nil)
	trashed2 := seedConversation(t, st, uintPtr(user.ID), nil)
	require.NoError(t, svc.SoftDelete(ctx, principalFor(user), trashed1.ID))
	require.NoError(t, svc.SoftDelete(ctx, principalFor(user), trashed2.ID))

	t.Run("non-admin denied", func(t *testing.T) {
		_, err := svc.EmptyTrash(ctx, principalFor(user))
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("purges only trashed rows and reports count", func(t *testing.T) {
		count, err := svc.EmptyTrash(ctx, principalFor(admin))
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		_, err = st.Conversations.ByID(ctx, active.ID, store.FilterActive)
		assert.NoError(t, err)
		_, err = st.Conversations.ByID(ctx, trashed1.ID, store.FilterAny)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("empty trash twice reports zero", func(t *testing.T) {
		count, err := svc.EmptyTrash(ctx, principalFor(admin))
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestPermanentDelete(t *testing.T) {
	svc, st := newConversationService(t)
	ctx := context.Background()

	admin := seedUser(t, st, model.RoleAdmin)
	user := seedUser(t, st, model.RoleUser)
	conv := seedConversation(t, st, uintPtr(user.ID), nil)

	t.Run("non-admin denied even for own row", func(t *testing.T) {
		err := svc.PermanentDelete(ctx, principalFor(user), conv.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("admin removes the row for good", func(t *testing.T) {
		require.NoError(t, svc.PermanentDelete(ctx, principalFor(admin), conv.ID))
		_, err := st.Conversations.ByID(ctx, conv.ID, store.FilterAny)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("missing row is not found", func(t *testing.T) {
		err := svc.PermanentDelete(ctx, principalFor(admin), conv.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestListVisibility(t *testing.T) {
	svc, st := newConversationService(t)
	ctx := context.Background()

	admin := seedUser(t, st, model.RoleAdmin)
	agentOwner := seedUser(t, st, model.RoleUser)
	stranger := seedUser(t, st, model.RoleUser)

	agent := seedAgent(t, st, agentOwner.ID, "faq-bot")
	own := seedConversation(t, st, uintPtr(agentOwner.ID), nil)
	routed := seedConversation(t, st, nil, uintPtr(agent.ID))
	foreign := seedConversation(t, st, uintPtr(stranger.ID), nil)

	params := pagination.Params{Page: 1, Limit: 10}

	t.Run("user sees own plus agent-routed rows", func(t *testing.T) {
		rows, page, err := svc.List(ctx, principalFor(agentOwner), ListOptions{}, params)
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)

		ids := make(map[uint]bool, len(rows))
		for _, c := range rows {
			ids[c.ID] = true
		}
		assert.True(t, ids[own.ID])
		assert.True(t, ids[routed.ID])
		assert.False(t, ids[foreign.ID])
	})

	t.Run("admin sees everything", func(t *testing.T) {
		_, page, err := svc.List(ctx, principalFor(admin), ListOptions{}, params)
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
	})

	t.Run("trashed rows drop out of the listing", func(t *testing.T) {
		require.NoError(t, svc.SoftDelete(ctx, principalFor(agentOwner), own.ID))
		_, page, err := svc.List(ctx, principalFor(agentOwner), ListOptions{}, params)
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
	})
}

func TestSearchScopedBySession(t *testing.T) {
	svc, st := newConversationService(t)
	ctx := context.Background()

	user := seedUser(t, st, model.RoleUser)
	other := seedUser(t, st, model.RoleUser)

	mine := &model.Conversation{
		UserID:    uintPtr(user.ID),
		SessionID: "widget-alpha-123",
		Status:    model.ConversationActive,
	}
	require.NoError(t, st.Conversations.Create(ctx, mine))
	theirs := &model.Conversation{
		UserID:    uintPtr(other.ID),
		SessionID: "widget-alpha-456",
		Status:    model.ConversationActive,
	}
	require.NoError(t, st.Conversations.Create(ctx, theirs))

	rows, page, err := svc.Search(ctx, principalFor(user), "alpha", pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, rows, 1)
	assert.Equal(t, mine.ID, rows[0].ID)
}

func TestAppendTurnKeepsCountInSync(t *testing.T) {
	svc, st := newConversationService(t)
	ctx := context.Background()

	user := seedUser(t, st, model.RoleUser)
	conv := seedConversation(t, st, uintPtr(user.ID), nil)

	now := time.Now().UTC()
	got, err := svc.AppendTurn(ctx, conv.ID,
		model.ChatMessage{Role: model.RoleMessageUser, Content: "hello", Timestamp: now},
		model.ChatMessage{Role: model.RoleMessageAssistant, Content: "hi there", Timestamp: now},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MessageCount)
	assert.Len(t, got.Messages, 2)

	reloaded, err := st.Conversations.ByID(ctx, conv.ID, store.FilterActive)
	require.NoError(t, err)
	assert.Equal(t, len(reloaded.Messages), reloaded.MessageCount)

	t.Run("append to trashed row is not found", func(t *testing.T) {
		require.NoError(t, svc.SoftDelete(ctx, principalFor(user), conv.ID))
		_, err := svc.AppendTurn(ctx, conv.ID, model.ChatMessage{Role: model.RoleMessageUser, Content: "x"})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}
