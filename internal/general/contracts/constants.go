package contracts

// Exchanges
const (
	ExchangePollDirect          = "order_poll_direct"
	ExchangeNotificationsFanout = "notifications_fanout"
)

// Queues
const (
	QueuePollTasks         = "order_poll.tasks"
	QueueNotificationsPush = "notifications.driver_push"
	QueuePollDelayPrefix   = "order_poll.delay." // {delay_ms}
	QueuePollDead          = "order_poll.dead"
)

// Routing keys
const (
	RoutePollTask = "order_poll.run"
)

// Producers
const (
	ProducerOrderPoller         = "order-poller"
	ProducerNotificationGateway = "notification-gateway"
)
