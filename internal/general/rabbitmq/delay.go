package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PublishDelayed routes body into order_poll.delay.<ms>. The queue is declared on
// first use with a TTL and dead-letters into the poll exchange, so each distinct
// delay gets its own FIFO and a long delay never blocks a short one.
// A non-positive delay publishes straight to the poll exchange.
func (client *Client) PublishDelayed(ctx context.Context, delay time.Duration, body []byte) error {
	if delay <= 0 {
		return client.publishTask(ctx, body)
	}

	ttl := delay.Milliseconds()
	if ttl == 0 {
		ttl = 1
	}
	name := delayQueueName(ttl)

	if err := client.ensureDelayQueue(name, ttl); err != nil {
		return err
	}

	// default exchange routes by queue name
	return client.publish(ctx, "", name, body)
}

func (client *Client) ensureDelayQueue(name string, ttl int64) error {
	if _, ok := client.delayQueues.Load(name); ok {
		return nil
	}

	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()
	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: connection is not open")
	}

	// a declare failure closes the channel, so use a throwaway one
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(name, true, false, false, false, delayQueueArgs(ttl)); err != nil {
		return fmt.Errorf("declare delay queue %s: %w", name, err)
	}
	client.delayQueues.Store(name, struct{}{})
	return nil
}
