// Package events publishes moderation activity to an external stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"alumnihub/internal/models"

	"github.com/segmentio/kafka-go"
)

// ModerationEvent is the wire form of a moderation log row.
type ModerationEvent struct {
	ID           uint                        `json:"id"`
	TenantID     uint                        `json:"tenant_id"`
	CommunityID  uint                        `json:"community_id"`
	EntityType   models.ModerationEntityType `json:"entity_type"`
	EntityID     uint                        `json:"entity_id"`
	Action       models.ModerationActionType `json:"action"`
	ActorID      uint                        `json:"actor_id"`
	TargetUserID *uint                       `json:"target_user_id,omitempty"`
	Reason       string                      `json:"reason,omitempty"`
	OccurredAt   time.Time                   `json:"occurred_at"`
}

// FromAction converts a stored moderation action into its event form.
func FromAction(a *models.ModerationAction) ModerationEvent {
	return ModerationEvent{
		ID:           a.ID,
		TenantID:     a.TenantID,
		CommunityID:  a.CommunityID,
		EntityType:   a.EntityType,
		EntityID:     a.EntityID,
		Action:       a.Action,
		ActorID:      a.ActorID,
		TargetUserID: a.TargetUserID,
		Reason:       a.Reason,
		OccurredAt:   a.CreatedAt,
	}
}

// Publisher sends moderation events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishModeration(ctx context.Context, action *models.ModerationAction) error
	Close() error
}

// Noop drops every event. It is used when no brokers are configured.
type Noop struct{}

func (Noop) PublishModeration(context.Context, *models.ModerationAction) error { return nil }
func (Noop) Close() error                                                    { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the moderation topic producer.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher writes moderation events keyed by community so a
// community's history stays ordered within one partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
		Async:        false,
	}
	return &KafkaPublisher{writer: w, topic: cfg.Topic}
}

// New returns a Kafka publisher when brokers are set, otherwise Noop.
func New(cfg KafkaConfig) Publisher {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return Noop{}
	}
	return NewKafkaPublisher(cfg)
}

func (p *KafkaPublisher) PublishModeration(ctx context.Context, action *models.ModerationAction) error {
	if action == nil {
		return nil
	}
	value, err := json.Marshal(FromAction(action))
	if err != nil {
		return fmt.Errorf("encode moderation event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(communityKey(action.CommunityID)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(action.Action)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func communityKey(id uint) string {
	return fmt.Sprintf("community:%d", id)
}
