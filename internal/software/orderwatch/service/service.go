package service

import (
	"order-notifier/internal/domain/notification"
	"order-notifier/internal/general/logger"
	"order-notifier/internal/ports"
)

// detector holds the dependencies of one new-order poll. It keeps no state
// between polls, so overlapping polls are safe to run.
type detector struct {
	logger    *logger.Logger
	sessions  ports.SessionRepository
	orders    ports.OrderSource
	sink      ports.NotificationSink
	formatter *notification.Formatter
}

// NewDetector constructs the new-order detector.
func NewDetector(
	logger *logger.Logger,
	sessions ports.SessionRepository,
	orders ports.OrderSource,
	sink ports.NotificationSink,
	formatter *notification.Formatter,
) ports.Detector {
	return &detector{
		logger:    logger,
		sessions:  sessions,
		orders:    orders,
		sink:      sink,
		formatter: formatter,
	}
}
