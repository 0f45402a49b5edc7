package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"order-notifier/internal/domain/notification"
	"order-notifier/internal/general/contracts"
	"order-notifier/internal/general/logger"
)

type capturePublisher struct {
	exchange, key string
	body          []byte
	err           error
}

func (c *capturePublisher) Publish(_ context.Context, exchange, key string, body []byte) error {
	c.exchange, c.key, c.body = exchange, key, body
	return c.err
}

func TestMQSinkPublishesEvent(t *testing.T) {
	pub := &capturePublisher{}
	sink := NewMQSink(pub, logger.Discard())

	lg := logger.Discard()
	ctx := lg.WithPollID(context.Background(), "poll-1")
	n := notification.Notification{DriverID: "9", OrderID: "42", Title: "t", Body: "b", Channel: notification.NewOrdersChannel}
	if err := sink.Notify(ctx, n); err != nil {
		t.Fatal(err)
	}

	if pub.exchange != contracts.ExchangeNotificationsFanout || pub.key != "" {
		t.Fatalf("published to %q/%q", pub.exchange, pub.key)
	}
	var ev contracts.NotificationEvent
	if err := json.Unmarshal(pub.body, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "new_order" || ev.DriverID != "9" || ev.OrderID != "42" || ev.CorrelationID != "poll-1" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Channel.NotificationID != 1001 {
		t.Fatalf("channel = %+v", ev.Channel)
	}
}

func TestMQSinkSurfacesPublishError(t *testing.T) {
	boom := errors.New("nack")
	sink := NewMQSink(&capturePublisher{err: boom}, logger.Discard())
	if err := sink.Notify(context.Background(), notification.Notification{}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
