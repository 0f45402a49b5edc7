package service

import (
	"context"
	"encoding/json"
	"fmt"

	"order-notifier/internal/domain/notification"
	"order-notifier/internal/general/contracts"
	"order-notifier/internal/general/logger"
	"order-notifier/internal/ports"
)

// Publisher sends a message to an exchange.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// MQSink publishes notifications on the notifications fanout for the gateway.
type MQSink struct {
	pub    Publisher
	logger *logger.Logger
}

var _ ports.NotificationSink = (*MQSink)(nil)

// NewMQSink constructs an MQSink.
func NewMQSink(pub Publisher, logger *logger.Logger) *MQSink {
	return &MQSink{pub: pub, logger: logger}
}

// Notify publishes n and waits for the broker to confirm it.
func (sink *MQSink) Notify(ctx context.Context, n notification.Notification) error {
	event := contracts.NewNotificationEvent(n, logger.PollIDFrom(ctx))
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode notification event: %w", err)
	}

	if err := sink.pub.Publish(ctx, contracts.ExchangeNotificationsFanout, "", body); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	sink.logger.Debug(ctx, "notification_published", "Notification event published", map[string]any{
		"driver_id": n.DriverID,
		"order_id":  n.OrderID,
	})
	return nil
}
