package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/agentdesk/admin-platform/internal/model"
)

// AgentStore persists agents and user-agent assignments.
type AgentStore struct {
	db *gorm.DB
}

// Create inserts an agent. The page URL slug must be globally unique.
func (s *AgentStore) Create(ctx context.Context, agent *model.Agent) error {
	if err := s.db.WithContext(ctx).Create(agent).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: create agent: %w", err)
	}
	return nil
}

// ByID fetches an agent by id.
func (s *AgentStore) ByID(ctx context.Context, id uint) (*model.Agent, error) {
	var agent model.Agent
	err := s.db.WithContext(ctx).First(&agent, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: agent %d: %w", id, err)
	}
	return &agent, nil
}

// BySlug fetches an active agent by its routing slug.
func (s *AgentStore) BySlug(ctx context.Context, slug string) (*model.Agent, error) {
	var agent model.Agent
	err := s.db.WithContext(ctx).
		Where("page_url = ? AND status = ?", slug, model.AgentActive).
		First(&agent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: agent slug %s: %w", slug, err)
	}
	return &agent, nil
}

// List returns agents visible to the owner scope. A nil ownerID lists all.
func (s *AgentStore) List(ctx context.Context, ownerID *uint, limit, offset int) ([]model.Agent, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.Agent{})
	if ownerID != nil {
		db = db.Where("user_id = ?", *ownerID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("store: count agents: %w", err)
	}

	var agents []model.Agent
	err := db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&agents).Error
	if err != nil {
		return nil, 0, fmt.Errorf("store: list agents: %w", err)
	}
	return agents, total, nil
}

// Update saves changed agent fields.
func (s *AgentStore) Update(ctx context.Context, agent *model.Agent) error {
	err := s.db.WithContext(ctx).Model(agent).
		Select("name", "page_url", "provider", "api_key", "status").
		Updates(agent).Error
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: update agent %d: %w", agent.ID, err)
	}
	return nil
}

// Delete removes an agent and its assignments.
func (s *AgentStore) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("agent_id = ?", id).Delete(&model.UserAgentAssignment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Agent{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("store: delete agent %d: %w", id, err)
	}
	return nil
}

// OwnedIDs returns the ids of agents the user owns.
func (s *AgentStore) OwnedIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&model.Agent{}).
		Where("user_id = ?", userID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("store: owned agent ids: %w", err)
	}
	return ids, nil
}

// AssignedIDs returns the ids of agents assigned to the user.
func (s *AgentStore) AssignedIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&model.UserAgentAssignment{}).
		Where("user_id = ?", userID).
		Pluck("agent_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("store: assigned agent ids: %w", err)
	}
	return ids, nil
}

// Assign grants a user access to an agent.
func (s *AgentStore) Assign(ctx context.Context, assignment *model.UserAgentAssignment) error {
	if err := s.db.WithContext(ctx).Create(assignment).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: assign agent: %w", err)
	}
	return nil
}

// Unassign revokes a user's access to an agent.
func (s *AgentStore) Unassign(ctx context.Context, userID, agentID uint) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND agent_id = ?", userID, agentID).
		Delete(&model.UserAgentAssignment{})
	if res.Error != nil {
		return fmt.Errorf("store: unassign agent: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IsAssigned reports whether the user has any assignment for the agent.
func (s *AgentStore) IsAssigned(ctx context.Context, userID, agentID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.UserAgentAssignment{}).
		Where("user_id = ? AND agent_id = ?", userID, agentID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("store: check assignment: %w", err)
	}
	return count > 0, nil
}
