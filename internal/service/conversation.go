// Package service implements the business logic between handlers and the
// store: permission-scoped visibility, the conversation trash lifecycle,
// user and agent administration, billing, and the chat relay.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/agentdesk/admin-platform/internal/apperr"
	"github.com/agentdesk/admin-platform/internal/events"
	"github.com/agentdesk/admin-platform/internal/model"
	"github.com/agentdesk/admin-platform/internal/pagination"
	"github.com/agentdesk/admin-platform/internal/permission"
	"github.com/agentdesk/admin-platform/internal/store"
	"github.com/agentdesk/admin-platform/pkg/logger"
	"github.com/agentdesk/admin-platform/pkg/metrics"
)

// ConversationService drives the conversation lifecycle: Active rows,
// Trashed rows (deleted_at set), and Purged rows (physically removed).
type ConversationService struct {
	store    *store.Store
	events   *events.Publisher
	logger   *logger.Logger
	appendMu *keyedMutex
}

// NewConversationService creates a conversation service.
func NewConversationService(st *store.Store, pub *events.Publisher, log *logger.Logger) *ConversationService {
	return &ConversationService{
		store:    st,
		events:   pub,
		logger:   log,
		appendMu: newKeyedMutex(),
	}
}

// agentLookup adapts the store for the permission predicates. Lookup
// errors surface as nil results, which the predicates treat as denial.
func (s *ConversationService) agentLookup(ctx context.Context) permission.AgentLookup {
	return func(agentID uint) (*model.Agent, error) {
		return s.store.Agents.ByID(ctx, agentID)
	}
}

func (s *ConversationService) assignmentLookup(ctx context.Context) permission.AssignmentLookup {
	return func(userID, agentID uint) (bool, error) {
		return s.store.Agents.IsAssigned(ctx, userID, agentID)
	}
}

// visibleScope builds the list-query scope for a principal: their own
// rows plus rows routed through agents they own or are assigned to.
func (s *ConversationService) visibleScope(ctx context.Context, p permission.Principal, params pagination.Params) (store.ListQuery, error) {
	q := store.ListQuery{
		UserID: p.ID,
		Admin:  permission.IsAdmin(p),
		Limit:  params.Limit,
		Offset: params.Offset,
	}
	if q.Admin {
		return q, nil
	}

	owned, err := s.store.Agents.OwnedIDs(ctx, p.ID)
	if err != nil {
		return q, apperr.Internal("failed to resolve agent access", err)
	}
	assigned, err := s.store.Agents.AssignedIDs(ctx, p.ID)
	if err != nil {
		return q, apperr.Internal("failed to resolve agent access", err)
	}
	q.AgentIDs = permission.AccessibleAgentIDs(owned, assigned)
	return q, nil
}

// ListOptions narrows a conversation listing.
type ListOptions struct {
	Status  model.ConversationStatus
	AgentID *uint
}

// List returns the active conversations visible to the principal.
func (s *ConversationService) List(ctx context.Context, p permission.Principal, opts ListOptions, params pagination.Params) ([]model.Conversation, pagination.Response, error) {
	q, err := s.visibleScope(ctx, p, params)
	if err != nil {
		return nil, pagination.Response{}, err
	}
	q.Status = opts.Status
	q.AgentID = opts.AgentID

	convs, total, err := s.store.Conversations.List(ctx, q)
	if err != nil {
		return nil, pagination.Response{}, apperr.Internal("failed to list conversations", err)
	}
	return convs, pagination.NewResponse(total, params), nil
}

// Get fetches one active conversation, subject to access control.
func (s *ConversationService) Get(ctx context.Context, p permission.Principal, id uint) (*model.Conversation, error) {
	conv, err := s.store.Conversations.ByID(ctx, id, store.FilterActive)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("conversation")
	}
	if err != nil {
		return nil, apperr.Internal("failed to fetch conversation", err)
	}

	if !permission.CanAccessConversation(p, conv, s.agentLookup(ctx), s.assignmentLookup(ctx)) {
		return nil, apperr.Forbidden("access denied")
	}
	return conv, nil
}

// Search matches active conversations whose session id contains query,
// within the principal's visibility scope.
func (s *ConversationService) Search(ctx context.Context, p permission.Principal, query string, params pagination.Params) ([]model.Conversation, pagination.Response, error) {
	q, err := s.visibleScope(ctx, p, params)
	if err != nil {
		return nil, pagination.Response{}, err
	}

	convs, total, err := s.store.Conversations.Search(ctx, q, query)
	if err != nil {
		return nil, pagination.Response{}, apperr.Internal("failed to search conversations", err)
	}
	return convs, pagination.NewResponse(total, params), nil
}

// SoftDelete moves an active conversation to the trash. Modification
// requires direct authorship or the admin role; agent assignees may read
// but never delete.
func (s *ConversationService) SoftDelete(ctx context.Context, p permission.Principal, id uint) error {
	conv, err := s.store.Conversations.ByID(ctx, id, store.FilterActive)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("conversation")
	}
	if err != nil {
		return apperr.Internal("failed to fetch conversation", err)
	}

	if !permission.CanModifyResource(p, conv.UserID) {
		return apperr.Forbidden("access denied")
	}

	if err := s.store.Conversations.SoftDelete(ctx, id, p.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("conversation")
		}
		return apperr.Internal("failed to delete conversation", err)
	}

	metrics.ConversationsTrashedTotal.Inc()
	s.events.Publish(ctx, events.Event{Type: events.TypeTrashed, ConversationID: id, ActorID: p.ID})
	s.logger.Info("conversation trashed", "conversation_id", id, "actor_id", p.ID)
	return nil
}

// BulkSoftDelete trashes the given conversations. Non-admin callers are
// implicitly scoped to rows they own: ids they do not own silently no-op
// while the rest succeed. Returns the number of rows trashed.
func (s *ConversationService) BulkSoftDelete(ctx context.Context, p permission.Principal, ids []uint) (int64, error) {
	var ownerScope *uint
	if !permission.IsAdmin(p) {
		ownerScope = &p.ID
	}

	count, err := s.store.Conversations.BulkSoftDelete(ctx, ids, ownerScope, p.ID, time.Now().UTC())
	if err != nil {
		return 0, apperr.Internal("failed to delete conversations", err)
	}

	metrics.ConversationsTrashedTotal.Add(float64(count))
	s.events.Publish(ctx, events.Event{Type: events.TypeTrashed, ActorID: p.ID, Count: count})
	s.logger.Info("conversations bulk trashed", "requested", len(ids), "trashed", count, "actor_id", p.ID)
	return count, nil
}

// Restore takes a conversation out of the trash, clearing both markers.
// Restoring a row that is not trashed is a conflict.
func (s *ConversationService) Restore(ctx context.Context, p permission.Principal, id uint) error {
	conv, err := s.store.Conversations.ByID(ctx, id, store.FilterAny)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("conversation")
	}
	if err != nil {
		return apperr.Internal("failed to fetch conversation", err)
	}

	if !conv.Trashed() {
		return apperr.Conflict("conversation is not in trash")
	}
	if !permission.CanModifyResource(p, conv.UserID) {
		return apperr.Forbidden("access denied")
	}

	if err := s.store.Conversations.Restore(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("conversation")
		}
		return apperr.Internal("failed to restore conversation", err)
	}

	metrics.ConversationsRestoredTotal.Inc()
	s.events.Publish(ctx, events.Event{Type: events.TypeRestored, ConversationID: id, ActorID: p.ID})
	return nil
}

// BulkRestore restores the given trashed conversations. Unlike bulk
// delete, restore is all-or-nothing for non-admins: if any fetched row is
// not owned by the caller the whole batch fails and nothing is restored.
// Returns the number of rows restored.
func (s *ConversationService) BulkRestore(ctx context.Context, p permission.Principal, ids []uint) (int64, error) {
	rows, err := s.store.Conversations.TrashedByIDs(ctx, ids)
	if err != nil {
		return 0, apperr.Internal("failed to fetch conversations", err)
	}
	if len(rows) == 0 {
		return 0, apperr.NotFound("conversation")
	}

	if !permission.IsAdmin(p) {
		for i := range rows {
			if !permission.CanModifyResource(p, rows[i].UserID) {
				return 0, apperr.Forbidden("access denied")
			}
		}
	}

	fetched := make([]uint, len(rows))
	for i := range rows {
		fetched[i] = rows[i].ID
	}

	count, err := s.store.Conversations.RestoreIDs(ctx, fetched)
	if err != nil {
		return 0, apperr.Internal("failed to restore conversations", err)
	}

	metrics.ConversationsRestoredTotal.Add(float64(count))
	s.events.Publish(ctx, events.Event{Type: events.TypeRestored, ActorID: p.ID, Count: count})
	return count, nil
}

// PermanentDelete removes a conversation row entirely, trashed or not.
// Admin only; irreversible.
func (s *ConversationService) PermanentDelete(ctx context.Context, p permission.Principal, id uint) error {
	if !permission.IsAdmin(p) {
		return apperr.Forbidden("admin role required")
	}

	if err := s.store.Conversations.PermanentDelete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("conversation")
		}
		return apperr.Internal("failed to delete conversation", err)
	}

	metrics.ConversationsPurgedTotal.Inc()
	s.events.Publish(ctx, events.Event{Type: events.TypePurged, ConversationID: id, ActorID: p.ID})
	s.logger.Info("conversation purged", "conversation_id", id, "actor_id", p.ID)
	return nil
}

// EmptyTrash removes every trashed conversation in one sweep. Admin only.
// Returns the count removed.
func (s *ConversationService) EmptyTrash(ctx context.Context, p permission.Principal) (int64, error) {
	if !permission.IsAdmin(p) {
		return 0, apperr.Forbidden("admin role required")
	}

	count, err := s.store.Conversations.EmptyTrash(ctx)
	if err != nil {
		return 0, apperr.Internal("failed to empty trash", err)
	}

	metrics.ConversationsPurgedTotal.Add(float64(count))
	s.events.Publish(ctx, events.Event{Type: events.TypeTrashEmptied, ActorID: p.ID, Count: count})
	s.logger.Info("trash emptied", "purged", count, "actor_id", p.ID)
	return count, nil
}

// ListTrash returns trashed conversations, newest-deleted first. Admins
// see every trashed row; other callers see only their own.
func (s *ConversationService) ListTrash(ctx context.Context, p permission.Principal, params pagination.Params) ([]model.Conversation, pagination.Response, error) {
	var ownerScope *uint
	if !permission.IsAdmin(p) {
		ownerScope = &p.ID
	}

	convs, total, err := s.store.Conversations.ListTrash(ctx, ownerScope, params.Limit, params.Offset)
	if err != nil {
		return nil, pagination.Response{}, apperr.Internal("failed to list trash", err)
	}
	return convs, pagination.NewResponse(total, params), nil
}

// AppendTurn appends messages to a conversation transcript, serialized
// per conversation id so concurrent turns cannot lose an append.
func (s *ConversationService) AppendTurn(ctx context.Context, id uint, msgs ...model.ChatMessage) (*model.Conversation, error) {
	unlock := s.appendMu.Lock(id)
	defer unlock()

	conv, err := s.store.Conversations.AppendMessages(ctx, id, msgs...)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("conversation")
	}
	if err != nil {
		return nil, apperr.Internal("failed to append messages", err)
	}
	return conv, nil
}
