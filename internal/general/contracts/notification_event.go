package contracts

import (
	"time"

	"order-notifier/internal/domain/notification"
)

// NotificationEvent is published on the notifications fanout for delivery to a driver device.
type NotificationEvent struct {
	Type      string               `json:"type"` // "new_order"
	DriverID  string               `json:"driver_id"`
	OrderID   string               `json:"order_id"`
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Channel   notification.Channel `json:"channel"`
	CreatedAt time.Time            `json:"created_at"`
	Envelope
}

// NewNotificationEvent wraps a notification into the wire event.
func NewNotificationEvent(n notification.Notification, correlationID string) NotificationEvent {
	now := time.Now().UTC()
	return NotificationEvent{
		Type:      "new_order",
		DriverID:  n.DriverID,
		OrderID:   n.OrderID,
		Title:     n.Title,
		Body:      n.Body,
		Channel:   n.Channel,
		CreatedAt: now,
		Envelope: Envelope{
			CorrelationID: correlationID,
			Producer:      ProducerOrderPoller,
			SentAt:        now,
		},
	}
}
