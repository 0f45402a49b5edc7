package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"order-notifier/internal/domain/session"
	"order-notifier/internal/general/contracts"
	"order-notifier/internal/general/logger"
	"order-notifier/internal/ports"
)

// RecurringWorkName names the single recurring poll schedule.
const RecurringWorkName = "order_notification_work"

// Scheduler requests polls for one device namespace.
type Scheduler struct {
	logger    *logger.Logger
	tasks     ports.TaskScheduler
	namespace string
	burst     []time.Duration
	every     time.Duration
}

var (
	_ ports.PollScheduler = (*Scheduler)(nil)
	_ ports.PollRequester = (*Scheduler)(nil)
)

// NewScheduler builds a Scheduler. burst and every come from config.
func NewScheduler(
	logger *logger.Logger,
	tasks ports.TaskScheduler,
	namespace string,
	burst []time.Duration,
	every time.Duration,
) *Scheduler {
	return &Scheduler{
		logger:    logger,
		tasks:     tasks,
		namespace: namespace,
		burst:     append([]time.Duration(nil), burst...),
		every:     every,
	}
}

// Start requests an immediate poll, the startup burst and the recurring poll.
// Every request is attempted even when an earlier one fails; the failures are
// returned joined.
func (s *Scheduler) Start(ctx context.Context) error {
	if strings.TrimSpace(s.namespace) == "" {
		return session.ErrNamespaceEmpty
	}

	var errs []error

	if err := s.tasks.Enqueue(ctx, contracts.NewPollTask(s.namespace, contracts.OriginImmediate), 0); err != nil {
		s.logger.Error(ctx, "poll_enqueue_failed", "Failed to enqueue immediate poll", err, nil)
		errs = append(errs, err)
	}

	for _, delay := range s.burst {
		if err := s.tasks.Enqueue(ctx, contracts.NewPollTask(s.namespace, contracts.OriginBurst), delay); err != nil {
			s.logger.Error(ctx, "poll_enqueue_failed", "Failed to enqueue burst poll", err,
				map[string]any{"delay_sec": delay.Seconds()})
			errs = append(errs, err)
		}
	}

	if err := s.tasks.UpsertRecurring(ctx, RecurringWorkName, s.every, s.namespace); err != nil {
		s.logger.Error(ctx, "recurring_schedule_failed", "Failed to schedule recurring poll", err, nil)
		errs = append(errs, err)
	}

	s.logger.Info(ctx, "poll_schedule_started", "Order poll schedule requested", map[string]any{
		"namespace":   s.namespace,
		"burst":       len(s.burst),
		"every_min":   s.every.Minutes(),
		"failed_jobs": len(errs),
	})

	return errors.Join(errs...)
}

// RequestPoll enqueues one immediate manual poll.
func (s *Scheduler) RequestPoll(ctx context.Context) (contracts.PollTask, error) {
	task := contracts.NewPollTask(s.namespace, contracts.OriginManual)
	if err := s.tasks.Enqueue(ctx, task, 0); err != nil {
		return contracts.PollTask{}, err
	}
	return task, nil
}
