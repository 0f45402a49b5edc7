package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"order-notifier/internal/general/contracts"
	"order-notifier/internal/general/websocket"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RunPushConsumer forwards notification events to connected drivers until ctx is done.
func (service *gatewayService) RunPushConsumer(ctx context.Context) error {
	service.logger.Info(ctx, "push_consumer_started", "Notification push consumer started",
		map[string]any{"queue": contracts.QueueNotificationsPush, "prefetch": service.prefetch})

	return service.consumer.ConsumeForever(ctx, contracts.QueueNotificationsPush, contracts.ProducerNotificationGateway, service.prefetch,
		func(ctx context.Context, d amqp.Delivery) error {
			return service.handlePush(ctx, d.Body)
		})
}

// handlePush delivers one event. Delivery is best effort: an offline driver
// drops the event rather than blocking the queue.
func (service *gatewayService) handlePush(ctx context.Context, body []byte) error {
	var event contracts.NotificationEvent
	if err := json.Unmarshal(body, &event); err != nil {
		service.logger.Error(ctx, "mq_message_parse_failed", "Failed to parse notification event", err, nil)
		return fmt.Errorf("decode notification event: %w", err)
	}
	if strings.TrimSpace(event.DriverID) == "" {
		service.logger.Error(ctx, "mq_message_invalid", "Notification event without driver", nil,
			map[string]any{"order_id": event.OrderID})
		return fmt.Errorf("%w: notification event without driver_id", ErrInvalidInput)
	}

	ctx = service.logger.WithPollID(ctx, event.CorrelationID)
	details := map[string]any{
		"driver_id":  event.DriverID,
		"order_id":   event.OrderID,
		"latency_ms": service.now().Sub(event.CreatedAt).Milliseconds(),
	}

	if err := service.pusher.SendToDriver(event.DriverID, event); err != nil {
		if errors.Is(err, websocket.ErrDriverNotConnected) {
			service.logger.Info(ctx, "notification_dropped", "Driver not connected, notification dropped", details)
			return nil
		}
		service.logger.Error(ctx, "notification_push_failed", "Failed to push notification to driver", err, details)
		return nil
	}

	service.logger.Info(ctx, "notification_pushed", "Notification pushed to driver", details)
	return nil
}
