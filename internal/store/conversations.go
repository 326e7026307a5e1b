package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/agentdesk/admin-platform/internal/model"
)

// ErrNotFound is returned when a row does not match the id and filter.
var ErrNotFound = errors.New("store: not found")

// TrashFilter selects which trash states a conversation query sees.
type TrashFilter int

const (
	// FilterActive matches only rows with a null deleted_at.
	FilterActive TrashFilter = iota
	// FilterTrashed matches only soft-deleted rows.
	FilterTrashed
	// FilterAny matches rows regardless of trash state.
	FilterAny
)

// ConversationStore persists conversations.
type ConversationStore struct {
	db *gorm.DB
}

func (s *ConversationStore) scoped(db *gorm.DB, filter TrashFilter) *gorm.DB {
	switch filter {
	case FilterActive:
		return db.Where("deleted_at IS NULL")
	case FilterTrashed:
		return db.Where("deleted_at IS NOT NULL")
	default:
		return db
	}
}

// visibility restricts a query to rows the caller may see: rows they own
// directly, or rows routed through agents they can access. A nil userID
// with an empty agent set matches nothing.
func visibility(db *gorm.DB, userID uint, agentIDs []uint) *gorm.DB {
	if len(agentIDs) == 0 {
		return db.Where("user_id = ?", userID)
	}
	return db.Where("user_id = ? OR agent_id IN ?", userID, agentIDs)
}

// Create inserts a conversation, normalizing the derived message count.
func (s *ConversationStore) Create(ctx context.Context, conv *model.Conversation) error {
	conv.MessageCount = len(conv.Messages)
	if err := s.db.WithContext(ctx).Create(conv).Error; err != nil {
		return fmt.Errorf("store: create conversation: %w", err)
	}
	return nil
}

// ByID fetches one conversation subject to the trash filter.
func (s *ConversationStore) ByID(ctx context.Context, id uint, filter TrashFilter) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.scoped(s.db.WithContext(ctx), filter).First(&conv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: conversation %d: %w", id, err)
	}
	return &conv, nil
}

// BySession fetches the conversation for an agent chat session.
func (s *ConversationStore) BySession(ctx context.Context, agentID uint, sessionID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.scoped(s.db.WithContext(ctx), FilterActive).
		Where("agent_id = ? AND session_id = ?", agentID, sessionID).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: conversation session %s: %w", sessionID, err)
	}
	return &conv, nil
}

// ListQuery narrows a conversation listing.
type ListQuery struct {
	// Visibility scope; ignored when Admin is true.
	UserID   uint
	AgentIDs []uint
	Admin    bool

	// Optional filters.
	Status  model.ConversationStatus
	AgentID *uint

	Limit  int
	Offset int
}

// List returns visible active conversations plus the unpaginated total.
func (s *ConversationStore) List(ctx context.Context, q ListQuery) ([]model.Conversation, int64, error) {
	db := s.scoped(s.db.WithContext(ctx).Model(&model.Conversation{}), FilterActive)
	if !q.Admin {
		db = visibility(db, q.UserID, q.AgentIDs)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.AgentID != nil {
		db = db.Where("agent_id = ?", *q.AgentID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("store: count conversations: %w", err)
	}

	var convs []model.Conversation
	err := db.Order("updated_at DESC").Limit(q.Limit).Offset(q.Offset).Find(&convs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("store: list conversations: %w", err)
	}
	return convs, total, nil
}

// Search matches active conversations whose session id contains q,
// restricted to the caller's visibility scope unless admin.
func (s *ConversationStore) Search(ctx context.Context, q ListQuery, sessionQuery string) ([]model.Conversation, int64, error) {
	db := s.scoped(s.db.WithContext(ctx).Model(&model.Conversation{}), FilterActive).
		Where("session_id LIKE ?", "%"+sessionQuery+"%")
	if !q.Admin {
		db = visibility(db, q.UserID, q.AgentIDs)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("store: count search: %w", err)
	}

	var convs []model.Conversation
	err := db.Order("updated_at DESC").Limit(q.Limit).Offset(q.Offset).Find(&convs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("store: search conversations: %w", err)
	}
	return convs, total, nil
}

// SoftDelete marks an active conversation trashed. Both markers are set in
// one update; the explicit trash filter makes the second write the source
// needed to bypass its default scope unnecessary. Returns ErrNotFound when
// the row is missing or already trashed.
func (s *ConversationStore) SoftDelete(ctx context.Context, id, deletedBy uint, now time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]any{"deleted_at": now, "deleted_by": deletedBy})
	if res.Error != nil {
		return fmt.Errorf("store: soft-delete conversation %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkSoftDelete trashes every active row in ids. When ownerID is non-nil
// the update is additionally scoped to rows owned by that user, so ids the
// caller does not own silently no-op. Returns the number of rows trashed.
func (s *ConversationStore) BulkSoftDelete(ctx context.Context, ids []uint, ownerID *uint, deletedBy uint, now time.Time) (int64, error) {
	db := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id IN ? AND deleted_at IS NULL", ids)
	if ownerID != nil {
		db = db.Where("user_id = ?", *ownerID)
	}
	res := db.Updates(map[string]any{"deleted_at": now, "deleted_by": deletedBy})
	if res.Error != nil {
		return 0, fmt.Errorf("store: bulk soft-delete: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Restore clears both trash markers on a trashed conversation. Returns
// ErrNotFound when no trashed row matches.
func (s *ConversationStore) Restore(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Updates(map[string]any{"deleted_at": nil, "deleted_by": nil})
	if res.Error != nil {
		return fmt.Errorf("store: restore conversation %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TrashedByIDs fetches the trashed rows matching ids, unscoped by owner.
// The service layer applies the all-or-nothing ownership check on top.
func (s *ConversationStore) TrashedByIDs(ctx context.Context, ids []uint) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := s.scoped(s.db.WithContext(ctx), FilterTrashed).
		Where("id IN ?", ids).
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("store: fetch trashed: %w", err)
	}
	return convs, nil
}

// RestoreIDs clears the trash markers for every trashed row in ids and
// returns the number restored.
func (s *ConversationStore) RestoreIDs(ctx context.Context, ids []uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id IN ? AND deleted_at IS NOT NULL", ids).
		Updates(map[string]any{"deleted_at": nil, "deleted_by": nil})
	if res.Error != nil {
		return 0, fmt.Errorf("store: bulk restore: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// PermanentDelete removes the row regardless of trash state.
func (s *ConversationStore) PermanentDelete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.Conversation{}, id)
	if res.Error != nil {
		return fmt.Errorf("store: permanent delete %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// EmptyTrash removes every trashed row and returns the count removed.
func (s *ConversationStore) EmptyTrash(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("deleted_at IS NOT NULL").
		Delete(&model.Conversation{})
	if res.Error != nil {
		return 0, fmt.Errorf("store: empty trash: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListTrash returns trashed rows, newest-deleted first. A non-nil ownerID
// restricts the listing to that user's rows.
func (s *ConversationStore) ListTrash(ctx context.Context, ownerID *uint, limit, offset int) ([]model.Conversation, int64, error) {
	db := s.scoped(s.db.WithContext(ctx).Model(&model.Conversation{}), FilterTrashed)
	if ownerID != nil {
		db = db.Where("user_id = ?", *ownerID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("store: count trash: %w", err)
	}

	var convs []model.Conversation
	err := db.Order("deleted_at DESC").Limit(limit).Offset(offset).Find(&convs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("store: list trash: %w", err)
	}
	return convs, total, nil
}

// AppendMessages reloads the row inside a transaction, appends the turns,
// and rewrites the transcript with the derived count. Callers serialize
// per conversation id; the transactional reload keeps the append correct
// even if that serialization is bypassed on a second process.
func (s *ConversationStore) AppendMessages(ctx context.Context, id uint, msgs ...model.ChatMessage) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deleted_at IS NULL").First(&conv, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		for _, m := range msgs {
			conv.Append(m)
		}
		return tx.Model(&conv).Updates(map[string]any{
			"messages":      conv.Messages,
			"message_count": conv.MessageCount,
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: append messages %d: %w", id, err)
	}
	return &conv, nil
}
