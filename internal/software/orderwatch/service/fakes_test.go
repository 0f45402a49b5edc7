package service

import (
	"context"
	"sync"
	"time"

	"order-notifier/internal/domain/notification"
	"order-notifier/internal/domain/order"
	"order-notifier/internal/domain/session"
	"order-notifier/internal/general/contracts"
)

// fakeSessions is an in-memory SessionRepository keyed by namespace.
type fakeSessions struct {
	mu        sync.Mutex
	data      map[string]map[string]string
	loadErr   error
	saveErr   error
	saveCalls int
}

func newFakeSessions(ns string, values map[string]string) *fakeSessions {
	return &fakeSessions{data: map[string]map[string]string{ns: values}}
}

func (f *fakeSessions) Snapshot(_ context.Context, ns string) (session.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return session.Snapshot{}, f.loadErr
	}
	return session.NewSnapshot(f.data[ns]), nil
}

func (f *fakeSessions) SaveMarker(_ context.Context, ns string, m session.Marker) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.data[ns] == nil {
		f.data[ns] = map[string]string{}
	}
	f.data[ns][session.KeyLastNotified] = m.OrderID
	return nil
}

func (f *fakeSessions) SetValues(_ context.Context, ns string, values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[ns] == nil {
		f.data[ns] = map[string]string{}
	}
	for k, v := range values {
		f.data[ns][k] = v
	}
	return nil
}

func (f *fakeSessions) DeleteKeys(_ context.Context, ns string, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data[ns], k)
	}
	return nil
}

func (f *fakeSessions) marker(ns string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[ns][session.KeyLastNotified]
	return v, ok
}

// fakeOrders returns a fixed list and counts calls.
type fakeOrders struct {
	mu        sync.Mutex
	orders    []order.Summary
	err       error
	calls     int
	companyID string
	creds     session.BackendCredentials
	limit     int
}

func (f *fakeOrders) FetchRecentPending(_ context.Context, creds session.BackendCredentials, companyID string, limit int) ([]order.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.creds, f.companyID, f.limit = creds, companyID, limit
	if f.err != nil {
		return nil, f.err
	}
	return append([]order.Summary(nil), f.orders...), nil
}

// fakeSink records notifications.
type fakeSink struct {
	mu   sync.Mutex
	sent []notification.Notification
	err  error
}

func (f *fakeSink) Notify(_ context.Context, n notification.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeTasks records scheduler requests.
type fakeTasks struct {
	mu         sync.Mutex
	enqueued   []enqueued
	recurring  []recurring
	enqueueErr func(task contracts.PollTask, delay time.Duration) error
	upsertErr  error
}

type enqueued struct {
	task  contracts.PollTask
	delay time.Duration
}

type recurring struct {
	name      string
	every     time.Duration
	namespace string
}

func (f *fakeTasks) Enqueue(_ context.Context, task contracts.PollTask, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enqueueErr != nil {
		if err := f.enqueueErr(task, delay); err != nil {
			return err
		}
	}
	f.enqueued = append(f.enqueued, enqueued{task: task, delay: delay})
	return nil
}

func (f *fakeTasks) UpsertRecurring(_ context.Context, name string, every time.Duration, namespace string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.recurring = append(f.recurring, recurring{name: name, every: every, namespace: namespace})
	return nil
}

// fakeDetector returns queued outcomes in order.
type fakeDetector struct {
	mu         sync.Mutex
	outcomes   []order.Outcome
	namespaces []string
}

func (f *fakeDetector) Poll(_ context.Context, ns string) order.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.namespaces = append(f.namespaces, ns)
	if len(f.outcomes) == 0 {
		return order.NoNewOrder()
	}
	o := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return o
}
