// Package events publishes reply and follow-up events for downstream
// consumers such as dashboards and sales tooling.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/qualify"
)

// Event types.
const (
	TypeReplyProcessed = "reply.processed"
	TypeFollowUpDue    = "followup.due"
)

// Event is the envelope written to the topic.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	ReplyProcessed *ReplyProcessed `json:"reply_processed,omitempty"`
	FollowUpDue    *FollowUpDue    `json:"followup_due,omitempty"`
}

// ReplyProcessed summarizes one processed reply.
type ReplyProcessed struct {
	ReplyID          string                `json:"reply_id"`
	MessageKey       string                `json:"message_key"`
	Email            string                `json:"email"`
	CampaignID       string                `json:"campaign_id,omitempty"`
	ResponseType     classify.ResponseType `json:"response_type"`
	Confidence       float64               `json:"confidence"`
	Tier             qualify.Tier          `json:"tier"`
	TotalScore       int                   `json:"total_score"`
	Priority         qualify.PriorityLevel `json:"priority"`
	EstimatedValue   int64                 `json:"estimated_value"`
	AutoresponseSent bool                  `json:"autoresponse_sent"`
	NextAction       string                `json:"next_action,omitempty"`
}

// FollowUpDue announces a scheduled follow-up that has come due.
type FollowUpDue struct {
	FollowUpID string          `json:"followup_id"`
	Email      string          `json:"email"`
	DayOffset  int             `json:"day_offset"`
	Action     string          `json:"action"`
	Channel    qualify.Channel `json:"channel"`
	DueAt      time.Time       `json:"due_at"`
}

// NewReplyProcessed wraps p in an event envelope.
func NewReplyProcessed(p ReplyProcessed) Event {
	return Event{Type: TypeReplyProcessed, OccurredAt: time.Now().UTC(), ReplyProcessed: &p}
}

// NewFollowUpDue wraps f in an event envelope.
func NewFollowUpDue(f FollowUpDue) Event {
	return Event{Type: TypeFollowUpDue, OccurredAt: time.Now().UTC(), FollowUpDue: &f}
}

// Publisher sends events keyed for partitioning.
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON to a Kafka topic.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
		topic: topic,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return eris.Wrap(err, "events: marshal event")
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return eris.Wrapf(err, "events: write %s to %s", event.Type, p.topic)
	}

	zap.L().Debug("events: published",
		zap.String("type", event.Type),
		zap.String("key", key),
		zap.String("topic", p.topic),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return eris.Wrap(p.writer.Close(), "events: close writer")
}

// NopPublisher drops events. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
