// Package notification delivers human-readable ticket notifications to the
// plant group channels.
//
// Delivery is best-effort and asynchronous: the ticket service dispatches
// events through the notify worker pool, so a slow or failing channel never
// blocks or fails a ticket operation.
//
// Import Path: batchtrack.io/tracker/internal/notification
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/pkg/logger"
)

// Message is one notification.
type Message struct {
	Type     domain.EventType    `json:"type"`
	TicketID string              `json:"ticket_id,omitempty"`
	Text     string              `json:"text"`
	Event    *domain.TicketEvent `json:"event,omitempty"`
}

// Sender defines the interface for sending notifications.
type Sender interface {
	// Send delivers msg to the group channel.
	Send(ctx context.Context, msg Message) error
}

// LogSender writes notifications to the structured log. It is the fallback
// channel when no broker is configured.
type LogSender struct{}

// NewLogSender creates a log sender.
func NewLogSender() *LogSender { return &LogSender{} }

// Send logs msg.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	logger.Info("Ticket notification",
		zap.String("type", string(msg.Type)),
		logger.TicketID(msg.TicketID),
		zap.String("text", msg.Text),
	)
	return nil
}

// Publisher is the subset of the Redis client used for delivery.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSender publishes notifications as JSON over Redis pub/sub. The chat
// bot and dashboard subscribe to the channel.
type RedisSender struct {
	client  Publisher
	channel string
}

// NewRedisSender creates a Redis sender publishing to channel.
func NewRedisSender(client Publisher, channel string) *RedisSender {
	return &RedisSender{client: client, channel: channel}
}

// Send publishes msg on the group channel.
func (s *RedisSender) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	receivers, err := s.client.Publish(ctx, s.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", s.channel, err)
	}

	logger.Debug("notification published",
		zap.String("channel", s.channel),
		zap.String("type", string(msg.Type)),
		logger.TicketID(msg.TicketID),
		zap.Int64("receivers", receivers),
	)
	return nil
}

// Fanout delivers to several senders, continuing past failures.
type Fanout []Sender

// Send delivers msg through every sender.
func (f Fanout) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// compile-time checks
var (
	_ Sender = (*LogSender)(nil)
	_ Sender = (*RedisSender)(nil)
	_ Sender = Fanout(nil)
)
