// Package events publishes audit events for conversation lifecycle
// transitions to NATS JetStream. Publishing is best-effort: a nil
// Publisher or a failed publish never blocks the request path.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/agentdesk/admin-platform/pkg/logger"
)

const (
	// StreamName is the audit stream.
	StreamName = "AUDIT"

	// SubjectPrefix is the prefix for all audit subjects.
	SubjectPrefix = "audit"
)

// Type is the kind of audit event.
type Type string

const (
	TypeTrashed      Type = "conversation.trashed"
	TypeRestored     Type = "conversation.restored"
	TypePurged       Type = "conversation.purged"
	TypeTrashEmptied Type = "conversation.trash_emptied"
	TypeChatTurn     Type = "conversation.chat_turn"
)

// Event is one audit record.
type Event struct {
	Type           Type      `json:"type"`
	ConversationID uint      `json:"conversation_id,omitempty"`
	ActorID        uint      `json:"actor_id,omitempty"`
	Count          int64     `json:"count,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher writes audit events to JetStream.
type Publisher struct {
	conn *nats.Conn
	js   jetstream.JetStream
	log  *logger.Logger
}

// Connect establishes the NATS connection and ensures the audit stream
// exists. Returns nil (disabled) when url is empty.
func Connect(ctx context.Context, url, token string, log *logger.Logger) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}

	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("events: connect NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: init JetStream: %w", err)
	}

	p := &Publisher{conn: conn, js: js, log: log}
	if err := p.ensureStream(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

func (p *Publisher) ensureStream(ctx context.Context) error {
	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Conversation lifecycle audit events",
	})
	if err != nil {
		return fmt.Errorf("events: create stream: %w", err)
	}
	return nil
}

// Publish writes one audit event. Safe to call on a nil Publisher.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("failed to marshal audit event", "type", event.Type, "error", err)
		return
	}

	subject := fmt.Sprintf("%s.%s", SubjectPrefix, event.Type)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		p.log.Warn("failed to publish audit event", "subject", subject, "error", err)
	}
}

// Close drains the NATS connection. Safe on a nil Publisher.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}
