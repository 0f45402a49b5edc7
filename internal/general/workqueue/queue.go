// Package workqueue is the scheduler host: one-shot delayed poll tasks and named
// recurring schedules, backed by the broker.
package workqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"order-notifier/internal/general/contracts"
	"order-notifier/internal/general/logger"
	"order-notifier/internal/ports"
)

var ErrStopped = errors.New("workqueue: stopped")

// Publisher parks a message for delay before it reaches the poll workers.
type Publisher interface {
	PublishDelayed(ctx context.Context, delay time.Duration, body []byte) error
}

type schedule struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Queue implements ports.TaskScheduler.
type Queue struct {
	pub    Publisher
	logger *logger.Logger

	mu        sync.Mutex
	recurring map[string]*schedule
	stopped   bool
}

var _ ports.TaskScheduler = (*Queue)(nil)

// New returns a Queue publishing through pub.
func New(pub Publisher, logger *logger.Logger) *Queue {
	return &Queue{
		pub:       pub,
		logger:    logger,
		recurring: make(map[string]*schedule),
	}
}

// Enqueue publishes task to run after delay.
func (q *Queue) Enqueue(ctx context.Context, task contracts.PollTask, delay time.Duration) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if delay < 0 {
		delay = 0
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode poll task: %w", err)
	}

	if err := q.pub.PublishDelayed(ctx, delay, body); err != nil {
		return fmt.Errorf("enqueue poll task %s: %w", task.TaskID, err)
	}

	q.logger.Debug(ctx, "poll_enqueued", "Poll task enqueued", map[string]any{
		"task_id":  task.TaskID,
		"origin":   task.Origin,
		"attempt":  task.Attempt,
		"delay_ms": delay.Milliseconds(),
	})
	return nil
}

// UpsertRecurring enqueues a poll for namespace every interval until ctx is done,
// the schedule is replaced by another call with the same name, or Stop is called.
func (q *Queue) UpsertRecurring(ctx context.Context, name string, every time.Duration, namespace string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("workqueue: recurring schedule needs a name")
	}
	if every <= 0 {
		return fmt.Errorf("workqueue: invalid interval %s", every)
	}
	if strings.TrimSpace(namespace) == "" {
		return contracts.ErrInvalidPollTask
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrStopped
	}
	prev := q.recurring[name]
	runCtx, cancel := context.WithCancel(ctx)
	next := &schedule{cancel: cancel, done: make(chan struct{})}
	q.recurring[name] = next
	q.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
		q.logger.Info(ctx, "recurring_replaced", "Replaced recurring poll schedule", map[string]any{"name": name})
	}

	go q.runRecurring(runCtx, next, name, every, namespace)

	q.logger.Info(ctx, "recurring_scheduled", "Recurring poll scheduled", map[string]any{
		"name":      name,
		"every_sec": every.Seconds(),
	})
	return nil
}

func (q *Queue) runRecurring(ctx context.Context, s *schedule, name string, every time.Duration, namespace string) {
	defer close(s.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task := contracts.NewPollTask(namespace, contracts.OriginRecurring)
			if err := q.Enqueue(ctx, task, 0); err != nil {
				q.logger.Error(ctx, "recurring_enqueue_failed", "Failed to enqueue recurring poll", err,
					map[string]any{"name": name})
			}
		}
	}
}

// Active reports whether a recurring schedule with name is running.
func (q *Queue) Active(name string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.recurring[name]
	if !ok {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Stop cancels every recurring schedule and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	all := q.recurring
	q.recurring = make(map[string]*schedule)
	q.mu.Unlock()

	for _, s := range all {
		s.cancel()
		<-s.done
	}
}
