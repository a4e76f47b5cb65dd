package collaborator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"sacco-workflow/internal/domain/notify"
	"sacco-workflow/internal/logger"

	"github.com/segmentio/kafka-go"
)

var (
	_ notify.Service = (*KafkaNotifier)(nil)
	_ notify.Service = (*LogNotifier)(nil)
)

// messageWriter is the part of *kafka.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the message published for every member notification.
type Envelope struct {
	EventID    string         `json:"event_id"`
	Event      string         `json:"event"`
	MemberID   string         `json:"member_id"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// KafkaNotifier hands notifications to the delivery pipeline through a
// Kafka topic keyed by member so a member's events stay ordered.
type KafkaNotifier struct {
	writer messageWriter
	topic  string
	now    func() time.Time
	newID  func() string
}

func NewKafkaNotifier(brokers []string, topic string, newID func() string) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}
	logger.Info("kafka notifier created", "brokers", brokers, "topic", topic)
	return newKafkaNotifier(w, topic, newID)
}

func newKafkaNotifier(w messageWriter, topic string, newID func() string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: w,
		topic:  topic,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  newID,
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, memberID string, event notify.EventType, payload map[string]any) error {
	env := Envelope{
		EventID:    n.newID(),
		Event:      string(event),
		MemberID:   memberID,
		Payload:    payload,
		OccurredAt: n.now(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(memberID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event, n.topic, err)
	}
	logger.Get().DebugContext(ctx, "notification published", "topic", n.topic, "event", string(event), "member_id", memberID)
	return nil
}

func (n *KafkaNotifier) Close() error { return n.writer.Close() }

// LogNotifier only logs; used when no brokers are configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier() *LogNotifier { return &LogNotifier{log: logger.WithComponent("notifier")} }

func (n *LogNotifier) Notify(ctx context.Context, memberID string, event notify.EventType, payload map[string]any) error {
	n.log.InfoContext(ctx, "member notification", "event", string(event), "member_id", memberID, "payload", payload)
	return nil
}
