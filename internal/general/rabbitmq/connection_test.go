package rabbitmq

import (
	"context"
	"testing"

	"order-notifier/internal/general/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// closedConfirms mimics a NotifyPublish listener after the library shut the channel down.
func closedConfirms() chan amqp.Confirmation {
	c := make(chan amqp.Confirmation, 1)
	close(c)
	return c
}

func newTestClient() *Client {
	return &Client{
		logger:    logger.Discard(),
		logCtx:    context.Background(),
		closed:    make(chan struct{}),
		reconnect: make(chan struct{}, 1),
	}
}

func TestCloseAfterLibraryClosedConfirms(t *testing.T) {
	client := newTestClient()
	client.pubConfirms = closedConfirms()

	client.Close()
	client.Close()

	if client.pubConfirms != nil {
		t.Fatal("confirm stream should be dropped on close")
	}
	select {
	case <-client.closed:
	default:
		t.Fatal("closed signal not raised")
	}
}

func TestSetConfirmsReplacesClosedStream(t *testing.T) {
	client := newTestClient()
	client.setConfirms(closedConfirms())

	next := make(chan amqp.Confirmation, 1)
	client.setConfirms(next)
	if client.pubConfirms != next {
		t.Fatal("confirm stream not replaced")
	}

	// the replaced stream is still usable
	next <- amqp.Confirmation{DeliveryTag: 1, Ack: true}
	if c := <-client.pubConfirms; !c.Ack {
		t.Fatalf("confirmation = %+v", c)
	}
}

func TestPublishWithoutConnectionFails(t *testing.T) {
	client := newTestClient()
	client.Close()

	if err := client.PublishMessage(context.Background(), "notifications_fanout", "", []byte(`{}`)); err == nil {
		t.Fatal("expected error without a connection")
	}
}
