package rabbitmq

import (
	"testing"
	"time"

	"order-notifier/internal/general/contracts"
)

func TestDelayQueueArgs(t *testing.T) {
	if got := delayQueueName(15000); got != "order_poll.delay.15000" {
		t.Fatalf("name = %q", got)
	}

	args := delayQueueArgs(15000)
	if args["x-message-ttl"] != int64(15000) {
		t.Fatalf("ttl = %v", args["x-message-ttl"])
	}
	if args["x-dead-letter-exchange"] != contracts.ExchangePollDirect || args["x-dead-letter-routing-key"] != contracts.RoutePollTask {
		t.Fatalf("dead letter = %v", args)
	}
}

func TestNextBackoff(t *testing.T) {
	d := reconnectInitial
	for i := 0; i < 10; i++ {
		d = nextBackoff(d, reconnectMax)
	}
	if d != reconnectMax {
		t.Fatalf("backoff = %v, want cap %v", d, reconnectMax)
	}
	if got := nextBackoff(2*time.Second, time.Minute); got != 4*time.Second {
		t.Fatalf("got %v", got)
	}
}
