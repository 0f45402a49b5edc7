package workqueue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"order-notifier/internal/general/contracts"
	"order-notifier/internal/general/logger"
)

type published struct {
	delay time.Duration
	task  contracts.PollTask
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) PublishDelayed(_ context.Context, delay time.Duration, body []byte) error {
	if f.err != nil {
		return f.err
	}
	var task contracts.PollTask
	if err := json.Unmarshal(body, &task); err != nil {
		return err
	}
	f.mu.Lock()
	f.msgs = append(f.msgs, published{delay: delay, task: task})
	f.mu.Unlock()
	return nil
}

func (f *fakePublisher) snapshot() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

func TestEnqueuePublishesTaskWithDelay(t *testing.T) {
	pub := &fakePublisher{}
	q := New(pub, logger.Discard())

	task := contracts.NewPollTask("driver-1", contracts.OriginBurst)
	if err := q.Enqueue(context.Background(), task, 45*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(context.Background(), contracts.NewPollTask("driver-1", contracts.OriginImmediate), -time.Second); err != nil {
		t.Fatal(err)
	}

	msgs := pub.snapshot()
	if len(msgs) != 2 {
		t.Fatalf("published %d", len(msgs))
	}
	if msgs[0].delay != 45*time.Second || msgs[0].task.TaskID != task.TaskID || msgs[0].task.Namespace != "driver-1" {
		t.Fatalf("first = %+v", msgs[0])
	}
	if msgs[1].delay != 0 {
		t.Fatalf("negative delay should be clamped, got %v", msgs[1].delay)
	}
}

func TestEnqueueRejectsInvalidTaskAndWrapsPublishError(t *testing.T) {
	q := New(&fakePublisher{}, logger.Discard())
	if err := q.Enqueue(context.Background(), contracts.PollTask{}, 0); !errors.Is(err, contracts.ErrInvalidPollTask) {
		t.Fatalf("err = %v", err)
	}

	boom := errors.New("broker down")
	q = New(&fakePublisher{err: boom}, logger.Discard())
	if err := q.Enqueue(context.Background(), contracts.NewPollTask("ns", contracts.OriginManual), 0); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestUpsertRecurringTicksAndReplaces(t *testing.T) {
	pub := &fakePublisher{}
	q := New(pub, logger.Discard())
	defer q.Stop()

	ctx := context.Background()
	if err := q.UpsertRecurring(ctx, "work", 10*time.Millisecond, "old-ns"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(pub.snapshot()) >= 2 })

	if err := q.UpsertRecurring(ctx, "work", 10*time.Millisecond, "new-ns"); err != nil {
		t.Fatal(err)
	}
	cut := len(pub.snapshot())
	waitFor(t, func() bool { return len(pub.snapshot()) >= cut+2 })

	// the replaced schedule has exited, so everything after the upsert is for the new namespace
	for _, m := range pub.snapshot()[cut:] {
		if m.task.Namespace != "new-ns" || m.task.Origin != contracts.OriginRecurring {
			t.Fatalf("unexpected task after replace: %+v", m.task)
		}
	}
	if !q.Active("work") {
		t.Fatal("schedule should be active")
	}
}

func TestStopCancelsSchedules(t *testing.T) {
	pub := &fakePublisher{}
	q := New(pub, logger.Discard())

	if err := q.UpsertRecurring(context.Background(), "work", 5*time.Millisecond, "ns"); err != nil {
		t.Fatal(err)
	}
	q.Stop()
	n := len(pub.snapshot())
	time.Sleep(30 * time.Millisecond)
	if len(pub.snapshot()) != n {
		t.Fatal("schedule kept publishing after Stop")
	}
	if q.Active("work") {
		t.Fatal("schedule still active")
	}
	if err := q.UpsertRecurring(context.Background(), "work", time.Second, "ns"); !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v", err)
	}
}

func TestUpsertRecurringValidates(t *testing.T) {
	q := New(&fakePublisher{}, logger.Discard())
	defer q.Stop()

	if err := q.UpsertRecurring(context.Background(), "", time.Second, "ns"); err == nil {
		t.Fatal("empty name accepted")
	}
	if err := q.UpsertRecurring(context.Background(), "x", 0, "ns"); err == nil {
		t.Fatal("zero interval accepted")
	}
	if err := q.UpsertRecurring(context.Background(), "x", time.Second, " "); err == nil {
		t.Fatal("empty namespace accepted")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
