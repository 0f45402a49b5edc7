package service

import (
	"context"
	"errors"
	"time"

	"order-notifier/internal/general/logger"
	"order-notifier/internal/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrInvalidInput = errors.New("invalid input")

// Pusher delivers a JSON frame to a connected driver.
type Pusher interface {
	SendToDriver(driverID string, msg any) error
}

// Consumer runs a queue consumer until ctx is done.
type Consumer interface {
	ConsumeForever(ctx context.Context, queue, consumerTag string, prefetch int, handler func(context.Context, amqp.Delivery) error) error
}

// gatewayService holds all dependencies required by the notification gateway.
type gatewayService struct {
	logger   *logger.Logger
	uow      ports.UnitOfWork
	sessions ports.SessionRepository
	pusher   Pusher
	consumer Consumer
	prefetch int
	now      func() time.Time
}

// NewGatewayService constructs the service with required dependencies.
func NewGatewayService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	sessions ports.SessionRepository,
	pusher Pusher,
	consumer Consumer,
	prefetch int,
) ports.GatewayService {
	return &gatewayService{
		logger:   logger,
		uow:      uow,
		sessions: sessions,
		pusher:   pusher,
		consumer: consumer,
		prefetch: prefetch,
		now:      time.Now,
	}
}
