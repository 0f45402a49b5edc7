package rabbitmq

import (
	"fmt"

	"order-notifier/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

func declareTopology(ch *amqp.Channel) error {
	// 1. Exchanges
	exchanges := []struct {
		name string
		kind string
	}{
		{contracts.ExchangePollDirect, "direct"},
		{contracts.ExchangeNotificationsFanout, "fanout"},
	}

	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex.name, ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	// 2. Queues; rejected poll tasks end up in the dead queue for inspection
	queues := []struct {
		name string
		args amqp.Table
	}{
		{contracts.QueuePollDead, nil},
		{contracts.QueuePollTasks, amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": contracts.QueuePollDead,
		}},
		{contracts.QueueNotificationsPush, nil},
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	// 3. Bindings
	bindings := []struct {
		queue      string
		exchange   string
		routingKey string
	}{
		{contracts.QueuePollTasks, contracts.ExchangePollDirect, contracts.RoutePollTask},
		{contracts.QueueNotificationsPush, contracts.ExchangeNotificationsFanout, ""},
	}

	for _, b := range bindings {
		if err := ch.QueueBind(b.queue, b.routingKey, b.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// delayQueueName returns the per-delay holding queue for a TTL.
func delayQueueName(ttlMillis int64) string {
	return fmt.Sprintf("%s%d", contracts.QueuePollDelayPrefix, ttlMillis)
}

// delayQueueArgs makes expired messages dead-letter back into the poll exchange.
func delayQueueArgs(ttlMillis int64) amqp.Table {
	return amqp.Table{
		"x-message-ttl":             ttlMillis,
		"x-dead-letter-exchange":    contracts.ExchangePollDirect,
		"x-dead-letter-routing-key": contracts.RoutePollTask,
	}
}
