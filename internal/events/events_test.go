package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"alumnihub/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestNew_NoBrokersIsNoop(t *testing.T) {
	_, ok := New(KafkaConfig{Topic: "t"}).(Noop)
	assert.True(t, ok)
	_, ok = New(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}).(*KafkaPublisher)
	assert.True(t, ok)
}

func TestKafkaPublisher_PublishModeration(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaPublisher{writer: w, topic: "alumnihub.moderation"}
	target := uint(9)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := p.PublishModeration(context.Background(), &models.ModerationAction{
		ID: 1, TenantID: 2, CommunityID: 3, EntityType: models.ModerationEntityMembership, EntityID: 4,
		Action: models.ActionMembershipSuspend, ActorID: 5, TargetUserID: &target, Reason: "spam", CreatedAt: at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "community:3", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, string(models.ActionMembershipSuspend), string(msg.Headers[0].Value))

	var ev ModerationEvent
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, uint(4), ev.EntityID)
	assert.Equal(t, "spam", ev.Reason)
	assert.True(t, at.Equal(ev.OccurredAt))

	require.NoError(t, p.PublishModeration(context.Background(), nil))
	assert.Len(t, w.msgs, 1)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WrapsWriteErrors(t *testing.T) {
	p := &KafkaPublisher{writer: &captureWriter{err: errors.New("broker down")}, topic: "mod"}
	err := p.PublishModeration(context.Background(), &models.ModerationAction{CommunityID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish to mod")
}
