package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"order-notifier/internal/domain/order"
	"order-notifier/internal/general/contracts"
	"order-notifier/internal/general/logger"
	"order-notifier/internal/ports"
)

// RetryPolicy is the exponential backoff applied to transient poll failures.
type RetryPolicy struct {
	Initial     time.Duration
	Max         time.Duration
	MaxAttempts int
}

// Backoff returns min(Initial * 2^attempt, Max).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.Initial
	for i := 0; i < attempt; i++ {
		if d >= p.Max/2 {
			return p.Max
		}
		d *= 2
	}
	if d > p.Max {
		return p.Max
	}
	return d
}

// Worker runs poll tasks delivered by the broker.
type Worker struct {
	logger   *logger.Logger
	detector ports.Detector
	tasks    ports.TaskScheduler
	policy   RetryPolicy
}

// NewWorker constructs a Worker.
func NewWorker(logger *logger.Logger, detector ports.Detector, tasks ports.TaskScheduler, policy RetryPolicy) *Worker {
	return &Worker{logger: logger, detector: detector, tasks: tasks, policy: policy}
}

// Handle decodes and runs one task. It returns an error only for payloads that
// can never succeed, so the broker can dead-letter them; poll failures are
// handled by re-enqueueing.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var task contracts.PollTask
	if err := json.Unmarshal(body, &task); err != nil {
		w.logger.Error(ctx, "mq_message_parse_failed", "Failed to parse poll task", err, nil)
		return fmt.Errorf("decode poll task: %w", err)
	}
	if err := task.Validate(); err != nil {
		w.logger.Error(ctx, "mq_message_invalid", "Poll task is invalid", err, map[string]any{"task_id": task.TaskID})
		return err
	}

	ctx = w.logger.WithPollID(ctx, task.CorrelationID)
	start := time.Now()
	outcome := w.detector.Poll(ctx, task.Namespace)

	details := map[string]any{
		"task_id":     task.TaskID,
		"origin":      task.Origin,
		"attempt":     task.Attempt,
		"outcome":     outcome.Kind.String(),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if outcome.Reason != "" {
		details["reason"] = outcome.Reason
	}
	if outcome.Order != nil {
		details["order_id"] = outcome.Order.ID
	}

	if !outcome.Retryable() {
		w.logger.Info(ctx, "poll_completed", "Poll completed", details)
		return nil
	}

	w.retry(ctx, task, outcome, details)
	return nil
}

func (w *Worker) retry(ctx context.Context, task contracts.PollTask, outcome order.Outcome, details map[string]any) {
	if task.Attempt+1 >= w.policy.MaxAttempts {
		w.logger.Error(ctx, "poll_retries_exhausted", "Poll failed and will not be retried", outcome.Err, details)
		return
	}

	next := task.Retry()
	delay := w.policy.Backoff(task.Attempt)
	details["retry_in_sec"] = delay.Seconds()

	if err := w.tasks.Enqueue(ctx, next, delay); err != nil {
		// the recurring schedule still covers this namespace
		w.logger.Error(ctx, "poll_retry_enqueue_failed", "Failed to enqueue poll retry", err, details)
		return
	}
	w.logger.Error(ctx, "retry_attempted", "Poll failed, retry scheduled", outcome.Err, details)
}
