package service

import (
	"context"
	"errors"

	"github.com/agentdesk/admin-platform/internal/apperr"
	"github.com/agentdesk/admin-platform/internal/model"
	"github.com/agentdesk/admin-platform/internal/pagination"
	"github.com/agentdesk/admin-platform/internal/permission"
	"github.com/agentdesk/admin-platform/internal/store"
	"github.com/agentdesk/admin-platform/pkg/logger"
)

// AgentService manages agents and their access assignments.
type AgentService struct {
	store  *store.Store
	logger *logger.Logger
}

// NewAgentService creates an agent service.
func NewAgentService(st *store.Store, log *logger.Logger) *AgentService {
	return &AgentService{store: st, logger: log}
}

// Create registers a new agent owned by the principal.
func (s *AgentService) Create(ctx context.Context, p permission.Principal, agent *model.Agent) error {
	agent.UserID = p.ID
	if agent.Provider == "" {
		agent.Provider = model.ProviderDify
	}
	if agent.Status == "" {
		agent.Status = model.AgentActive
	}

	if err := s.store.Agents.Create(ctx, agent); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Conflict("page URL is already taken")
		}
		return apperr.Internal("failed to create agent", err)
	}
	s.logger.Info("agent created", "agent_id", agent.ID, "owner_id", p.ID)
	return nil
}

// Get fetches one agent. Owners, assignees, and admins may read it.
func (s *AgentService) Get(ctx context.Context, p permission.Principal, id uint) (*model.Agent, error) {
	agent, err := s.store.Agents.ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("agent")
	}
	if err != nil {
		return nil, apperr.Internal("failed to fetch agent", err)
	}

	if permission.IsAdmin(p) || agent.UserID == p.ID {
		return agent, nil
	}
	assigned, err := s.store.Agents.IsAssigned(ctx, p.ID, id)
	if err != nil {
		return nil, apperr.Internal("failed to check assignment", err)
	}
	if !assigned {
		return nil, apperr.Forbidden("access denied")
	}
	return agent, nil
}

// List returns agents: every agent for admins, owned agents otherwise.
func (s *AgentService) List(ctx context.Context, p permission.Principal, params pagination.Params) ([]model.Agent, pagination.Response, error) {
	var ownerScope *uint
	if !permission.IsAdmin(p) {
		ownerScope = &p.ID
	}

	agents, total, err := s.store.Agents.List(ctx, ownerScope, params.Limit, params.Offset)
	if err != nil {
		return nil, pagination.Response{}, apperr.Internal("failed to list agents", err)
	}
	return agents, pagination.NewResponse(total, params), nil
}

// Update modifies an agent. Only the owner or an admin may modify it.
func (s *AgentService) Update(ctx context.Context, p permission.Principal, agent *model.Agent) error {
	existing, err := s.store.Agents.ByID(ctx, agent.ID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("agent")
	}
	if err != nil {
		return apperr.Internal("failed to fetch agent", err)
	}

	if !permission.CanModifyResource(p, &existing.UserID) {
		return apperr.Forbidden("access denied")
	}

	if err := s.store.Agents.Update(ctx, agent); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Conflict("page URL is already taken")
		}
		return apperr.Internal("failed to update agent", err)
	}
	return nil
}

// Delete removes an agent and its assignments. Owner or admin only.
func (s *AgentService) Delete(ctx context.Context, p permission.Principal, id uint) error {
	existing, err := s.store.Agents.ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("agent")
	}
	if err != nil {
		return apperr.Internal("failed to fetch agent", err)
	}

	if !permission.CanModifyResource(p, &existing.UserID) {
		return apperr.Forbidden("access denied")
	}

	if err := s.store.Agents.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("agent")
		}
		return apperr.Internal("failed to delete agent", err)
	}
	s.logger.Info("agent deleted", "agent_id", id, "actor_id", p.ID)
	return nil
}

// Assign grants a user access to an agent. Owner or admin only.
func (s *AgentService) Assign(ctx context.Context, p permission.Principal, agentID, userID uint, level model.AccessLevel) error {
	agent, err := s.store.Agents.ByID(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("agent")
	}
	if err != nil {
		return apperr.Internal("failed to fetch agent", err)
	}

	if !permission.CanModifyResource(p, &agent.UserID) {
		return apperr.Forbidden("access denied")
	}
	if level != model.AccessUser && level != model.AccessManager {
		return apperr.Validation("access level must be user or manager")
	}
	if _, err := s.store.Users.ByID(ctx, userID); errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("user")
	} else if err != nil {
		return apperr.Internal("failed to fetch user", err)
	}

	assignment := &model.UserAgentAssignment{
		UserID:      userID,
		AgentID:     agentID,
		AccessLevel: level,
	}
	if err := s.store.Agents.Assign(ctx, assignment); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Conflict("user is already assigned to this agent")
		}
		return apperr.Internal("failed to assign agent", err)
	}
	return nil
}

// Unassign revokes a user's access to an agent. Owner or admin only.
func (s *AgentService) Unassign(ctx context.Context, p permission.Principal, agentID, userID uint) error {
	agent, err := s.store.Agents.ByID(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("agent")
	}
	if err != nil {
		return apperr.Internal("failed to fetch agent", err)
	}

	if !permission.CanModifyResource(p, &agent.UserID) {
		return apperr.Forbidden("access denied")
	}

	if err := s.store.Agents.Unassign(ctx, userID, agentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("assignment")
		}
		return apperr.Internal("failed to unassign agent", err)
	}
	return nil
}
