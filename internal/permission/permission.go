// Package permission holds the pure access predicates for the platform.
// Functions here never return errors; a failed lookup counts as a denial
// and callers translate false into a forbidden response at the boundary.
package permission

import (
	"github.com/agentdesk/admin-platform/internal/model"
)

// Principal is the authenticated actor making a request.
type Principal struct {
	ID   uint
	Role model.Role
}

// AgentLookup resolves an agent by id. Returning nil means not found.
type AgentLookup func(agentID uint) (*model.Agent, error)

// AssignmentLookup reports whether the user has an assignment for the agent.
type AssignmentLookup func(userID, agentID uint) (bool, error)

// IsAdmin reports whether the principal may perform admin-only actions.
func IsAdmin(p Principal) bool { return p.Role == model.RoleAdmin }

// CanAccessConversation decides read access to a conversation.
//
// Decision order, first match wins: admin; direct owner; agent owner;
// assignee. The agent and assignment lookups only run when the
// conversation carries an agent id, keeping the cheap checks first.
func CanAccessConversation(p Principal, conv *model.Conversation, agents AgentLookup, assignments AssignmentLookup) bool {
	if conv == nil {
		return false
	}
	if IsAdmin(p) {
		return true
	}
	if conv.UserID != nil && *conv.UserID == p.ID {
		return true
	}
	if conv.AgentID == nil {
		return false
	}

	if agents != nil {
		agent, err := agents(*conv.AgentID)
		if err == nil && agent != nil && agent.UserID == p.ID {
			return true
		}
	}
	if assignments != nil {
		assigned, err := assignments(p.ID, *conv.AgentID)
		if err == nil && assigned {
			return true
		}
	}
	return false
}

// CanModifyResource decides write access to an owned resource. Unlike
// CanAccessConversation it never consults agent ownership or assignments:
// an assignee may read a conversation but not delete or restore it.
func CanModifyResource(p Principal, ownerID *uint) bool {
	if IsAdmin(p) {
		return true
	}
	return ownerID != nil && *ownerID == p.ID
}

// AccessibleAgentIDs returns the deduplicated union of agents the
// principal owns and agents assigned to the principal. The result feeds
// the `user_id = ? OR agent_id IN (?)` visibility filter on list queries.
func AccessibleAgentIDs(owned, assigned []uint) []uint {
	seen := make(map[uint]struct{}, len(owned)+len(assigned))
	ids := make([]uint, 0, len(owned)+len(assigned))
	for _, set := range [][]uint{owned, assigned} {
		for _, id := range set {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
