package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentdesk/admin-platform/internal/apperr"
	"github.com/agentdesk/admin-platform/internal/events"
	"github.com/agentdesk/admin-platform/internal/llm"
	"github.com/agentdesk/admin-platform/internal/model"
	"github.com/agentdesk/admin-platform/internal/store"
	"github.com/agentdesk/admin-platform/pkg/logger"
	"github.com/agentdesk/admin-platform/pkg/metrics"
)

const maxTitleLength = 80

// ChatService relays public chat turns to an agent's external provider
// and persists the transcript once the upstream stream ends.
type ChatService struct {
	store         *store.Store
	conversations *ConversationService
	factory       *llm.Factory
	events        *events.Publisher
	logger        *logger.Logger
}

// NewChatService creates a chat relay service.
func NewChatService(st *store.Store, convs *ConversationService, factory *llm.Factory, pub *events.Publisher, log *logger.Logger) *ChatService {
	return &ChatService{
		store:         st,
		conversations: convs,
		factory:       factory,
		events:        pub,
		logger:        log,
	}
}

// RelayResult is the buffered outcome of a relayed chat turn.
type RelayResult struct {
	ConversationID uint   `json:"conversation_id"`
	SessionID      string `json:"session_id"`
	Answer         string `json:"answer"`
}

// Relay resolves the agent behind slug, streams the provider response
// through onChunk, and persists the user and assistant turns. The caller
// disconnecting cancels ctx, which aborts the upstream read.
func (s *ChatService) Relay(ctx context.Context, slug, sessionID, query string, onChunk llm.StreamCallback) (*RelayResult, error) {
	agent, err := s.store.Agents.BySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("agent")
	}
	if err != nil {
		return nil, apperr.Internal("failed to resolve agent", err)
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conv, err := s.conversationForSession(ctx, agent, sessionID, query)
	if err != nil {
		return nil, err
	}

	client, err := s.factory.ForAgent(agent)
	if err != nil {
		return nil, apperr.Internal("agent is misconfigured", err)
	}

	history := make([]llm.ChatMessage, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		history = append(history, llm.ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	start := time.Now()
	resp, err := client.CompleteStream(ctx, &llm.CompletionRequest{
		Query:       query,
		History:     history,
		ThreadID:    conv.ThreadID,
		SessionUser: sessionID,
	}, onChunk)
	if err != nil {
		metrics.RecordRelayStream(client.Name(), "error", time.Since(start).Seconds(), 0, 0)
		s.logger.Error("relay stream failed", "agent_id", agent.ID, "session_id", sessionID, "error", err)
		return nil, apperr.Internal("chat provider request failed", err)
	}
	metrics.RecordRelayStream(client.Name(), "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	now := time.Now().UTC()
	if _, err := s.conversations.AppendTurn(ctx, conv.ID,
		model.ChatMessage{Role: model.RoleMessageUser, Content: query, Timestamp: now},
		model.ChatMessage{Role: model.RoleMessageAssistant, Content: resp.Content, Timestamp: now},
	); err != nil {
		return nil, err
	}

	if resp.ThreadID != "" && resp.ThreadID != conv.ThreadID {
		if err := s.store.DB().WithContext(ctx).Model(conv).Update("thread_id", resp.ThreadID).Error; err != nil {
			s.logger.Warn("failed to persist thread id", "conversation_id", conv.ID, "error", err)
		}
	}

	metrics.ChatTurnsTotal.WithLabelValues(client.Name()).Inc()
	s.events.Publish(ctx, events.Event{Type: events.TypeChatTurn, ConversationID: conv.ID})

	return &RelayResult{
		ConversationID: conv.ID,
		SessionID:      sessionID,
		Answer:         resp.Content,
	}, nil
}

// conversationForSession finds the session's conversation or starts a new
// anonymous one titled after the opening query.
func (s *ChatService) conversationForSession(ctx context.Context, agent *model.Agent, sessionID, query string) (*model.Conversation, error) {
	conv, err := s.store.Conversations.BySession(ctx, agent.ID, sessionID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("failed to fetch conversation", err)
	}

	title := strings.TrimSpace(query)
	if len(title) > maxTitleLength {
		title = title[:maxTitleLength]
	}

	agentID := agent.ID
	conv = &model.Conversation{
		AgentID:          &agentID,
		Title:            title,
		ConversationType: string(agent.Provider),
		SessionID:        sessionID,
		Status:           model.ConversationActive,
	}
	if err := s.store.Conversations.Create(ctx, conv); err != nil {
		return nil, apperr.Internal("failed to create conversation", err)
	}
	return conv, nil
}
