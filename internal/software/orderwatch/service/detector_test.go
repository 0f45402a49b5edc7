package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"order-notifier/internal/domain/notification"
	"order-notifier/internal/domain/order"
	"order-notifier/internal/domain/session"
	"order-notifier/internal/general/logger"
	"order-notifier/internal/general/supabase"
)

const ns = "driver-1"

func onlineSession() map[string]string {
	return map[string]string{
		session.KeyDriver:     `{"id": 9, "companyId": "c-7"}`,
		session.KeyIsOnline:   `"true"`,
		session.KeyBackendURL: "https://backend.example/",
		session.KeyBackendKey: "anon-key",
	}
}

func orders(ids ...string) []order.Summary {
	out := make([]order.Summary, 0, len(ids))
	for _, id := range ids {
		out = append(out, order.Summary{ID: id, ClientName: "Ana", LocalName: "Pizza", DeliveryAddress: "Main 1", SuggestedPrice: 10})
	}
	return out
}

type fixture struct {
	sessions *fakeSessions
	orders   *fakeOrders
	sink     *fakeSink
	det      *detector
}

func newFixture(t *testing.T, values map[string]string, list []order.Summary) *fixture {
	t.Helper()
	f, err := notification.NewFormatter("en", "USD")
	if err != nil {
		t.Fatal(err)
	}
	fx := &fixture{
		sessions: newFakeSessions(ns, values),
		orders:   &fakeOrders{orders: list},
		sink:     &fakeSink{},
	}
	fx.det = NewDetector(logger.Discard(), fx.sessions, fx.orders, fx.sink, f).(*detector)
	return fx
}

func TestPollNotifiesNewestWithoutMarker(t *testing.T) {
	fx := newFixture(t, onlineSession(), orders("o5", "o4", "o3"))

	out := fx.det.Poll(context.Background(), ns)
	if out.Kind != order.OutcomeNotified || out.Order.ID != "o5" {
		t.Fatalf("outcome = %+v", out)
	}
	if m, _ := fx.sessions.marker(ns); m != "o5" {
		t.Fatalf("marker = %q", m)
	}
	if fx.sink.count() != 1 {
		t.Fatalf("sent = %d", fx.sink.count())
	}

	n := fx.sink.sent[0]
	if n.DriverID != "9" || n.OrderID != "o5" || !strings.Contains(n.Title, "ORD-o5") {
		t.Fatalf("notification = %+v", n)
	}
	if n.Channel.ID != notification.NewOrdersChannel.ID || !n.Channel.AutoCancel {
		t.Fatalf("channel = %+v", n.Channel)
	}

	if fx.orders.companyID != "c-7" || fx.orders.limit != order.RecentWindow {
		t.Fatalf("fetch args company=%q limit=%d", fx.orders.companyID, fx.orders.limit)
	}
	if fx.orders.creds.BaseURL != "https://backend.example" || fx.orders.creds.APIKey != "anon-key" {
		t.Fatalf("creds = %+v", fx.orders.creds)
	}
}

func TestPollNotifiesOrderRightAfterMarker(t *testing.T) {
	values := onlineSession()
	values[session.KeyLastNotified] = "o3"
	fx := newFixture(t, values, orders("o5", "o4", "o3", "o2", "o1"))

	out := fx.det.Poll(context.Background(), ns)
	if out.Kind != order.OutcomeNotified || out.Order.ID != "o4" {
		t.Fatalf("outcome = %+v", out)
	}
	if m, _ := fx.sessions.marker(ns); m != "o4" {
		t.Fatalf("marker = %q", m)
	}
}

func TestPollNeverRenotifiesOnStaticList(t *testing.T) {
	fx := newFixture(t, onlineSession(), orders("o5", "o4", "o3"))

	first := fx.det.Poll(context.Background(), ns)
	if first.Kind != order.OutcomeNotified {
		t.Fatalf("first = %+v", first)
	}
	for i := 0; i < 5; i++ {
		if out := fx.det.Poll(context.Background(), ns); out.Kind != order.OutcomeNoNewOrder {
			t.Fatalf("poll %d = %+v", i, out)
		}
	}
	if fx.sink.count() != 1 {
		t.Fatalf("sent = %d", fx.sink.count())
	}
}

func TestPollOneNotificationPerPoll(t *testing.T) {
	values := onlineSession()
	values[session.KeyLastNotified] = "o1"
	fx := newFixture(t, values, orders("o4", "o3", "o2", "o1"))

	out := fx.det.Poll(context.Background(), ns)
	if out.Kind != order.OutcomeNotified || fx.sink.count() != 1 {
		t.Fatalf("outcome = %+v sent = %d", out, fx.sink.count())
	}
}

func TestPollSkipsWithoutNetworkCall(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"offline flag", func(v map[string]string) { v[session.KeyIsOnline] = "false" }},
		{"quoted offline", func(v map[string]string) { v[session.KeyIsOnline] = `"false"` }},
		{"flag absent", func(v map[string]string) { delete(v, session.KeyIsOnline) }},
		{"driver absent", func(v map[string]string) { delete(v, session.KeyDriver) }},
		{"garbage flag", func(v map[string]string) { v[session.KeyIsOnline] = "yes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := onlineSession()
			tt.mutate(values)
			fx := newFixture(t, values, orders("o1"))

			out := fx.det.Poll(context.Background(), ns)
			if out.Kind != order.OutcomeSkipped || out.Reason != order.SkipOffline {
				t.Fatalf("outcome = %+v", out)
			}
			if fx.orders.calls != 0 {
				t.Fatal("backend was queried while offline")
			}
		})
	}
}

func TestPollSkipsUnconfiguredAndMissingIdentifiers(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
		reason string
	}{
		{"no url", func(v map[string]string) { delete(v, session.KeyBackendURL) }, order.SkipUnconfigured},
		{"blank key", func(v map[string]string) { v[session.KeyBackendKey] = "  " }, order.SkipUnconfigured},
		{"url without scheme", func(v map[string]string) { v[session.KeyBackendURL] = "x.supabase.co" }, order.SkipUnconfigured},
		{"url without host", func(v map[string]string) { v[session.KeyBackendURL] = "https://" }, order.SkipUnconfigured},
		{"no company", func(v map[string]string) { v[session.KeyDriver] = `{"id": "9"}` }, order.SkipMissingIdentifiers},
		{"snake case company", func(v map[string]string) {
			v[session.KeyDriver] = `{"id": "9", "company_id": 3}`
			delete(v, session.KeyBackendURL)
		}, order.SkipUnconfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := onlineSession()
			tt.mutate(values)
			fx := newFixture(t, values, orders("o1"))

			out := fx.det.Poll(context.Background(), ns)
			if out.Kind != order.OutcomeSkipped || out.Reason != tt.reason {
				t.Fatalf("outcome = %+v", out)
			}
			if out.Retryable() {
				t.Fatal("skip must not be retried")
			}
			if fx.orders.calls != 0 {
				t.Fatalf("backend called %d times", fx.orders.calls)
			}
		})
	}
}

func TestPollSkipsOrderWithoutID(t *testing.T) {
	fx := newFixture(t, onlineSession(), []order.Summary{{ID: ""}, {ID: "o1"}})
	out := fx.det.Poll(context.Background(), ns)
	if out.Kind != order.OutcomeSkipped || out.Reason != order.SkipMissingOrderID {
		t.Fatalf("outcome = %+v", out)
	}
	if fx.sink.count() != 0 {
		t.Fatal("notified without an id")
	}
}

func TestPollEmptyListIsNoNewOrder(t *testing.T) {
	fx := newFixture(t, onlineSession(), nil)
	if out := fx.det.Poll(context.Background(), ns); out.Kind != order.OutcomeNoNewOrder {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestPollTransientFailuresLeaveMarker(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		setup func(fx *fixture)
		want  error
	}{
		{"malformed response", func(fx *fixture) { fx.orders.err = supabase.ErrMalformedBody }, supabase.ErrMalformedBody},
		{"bad status", func(fx *fixture) { fx.orders.err = supabase.ErrUnexpectedStatus }, supabase.ErrUnexpectedStatus},
		{"session store down", func(fx *fixture) { fx.sessions.loadErr = boom }, boom},
		{"sink down", func(fx *fixture) { fx.sink.err = boom }, boom},
		{"malformed driver", func(fx *fixture) {
			fx.sessions.data[ns][session.KeyDriver] = `{"id":`
		}, session.ErrMalformedDriver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := onlineSession()
			values[session.KeyLastNotified] = "o3"
			fx := newFixture(t, values, orders("o5", "o4", "o3"))
			tt.setup(fx)

			out := fx.det.Poll(context.Background(), ns)
			if out.Kind != order.OutcomeTransientFailure || !errors.Is(out.Err, tt.want) {
				t.Fatalf("outcome = %+v", out)
			}
			if !out.Retryable() {
				t.Fatal("transient failure must be retryable")
			}
			if m, _ := fx.sessions.marker(ns); m != "o3" {
				t.Fatalf("marker moved to %q", m)
			}
		})
	}
}

func TestPollMarkerSaveFailureIsTransient(t *testing.T) {
	fx := newFixture(t, onlineSession(), orders("o2", "o1"))
	fx.sessions.saveErr = errors.New("db down")

	out := fx.det.Poll(context.Background(), ns)
	if out.Kind != order.OutcomeTransientFailure {
		t.Fatalf("outcome = %+v", out)
	}
	if _, ok := fx.sessions.marker(ns); ok {
		t.Fatal("marker should stay absent")
	}
}

func TestPollZeroPriceBodySaysNegotiate(t *testing.T) {
	list := []order.Summary{{ID: "77", SuggestedPrice: 0}}
	fx := newFixture(t, onlineSession(), list)

	if out := fx.det.Poll(context.Background(), ns); out.Kind != order.OutcomeNotified {
		t.Fatalf("outcome = %+v", out)
	}
	body := fx.sink.sent[0].Body
	if !strings.Contains(body, "price to negotiate") {
		t.Fatalf("body = %q", body)
	}
	if !strings.Contains(body, "Pickup → Client") || !strings.Contains(body, "No address") {
		t.Fatalf("defaults missing in body %q", body)
	}
}

func TestPollConcurrentOverlapIsSafe(t *testing.T) {
	fx := newFixture(t, onlineSession(), orders("o3", "o2", "o1"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = fx.det.Poll(context.Background(), ns)
		}()
	}
	wg.Wait()

	// overlapping polls may duplicate, but the marker always ends on a real order
	if m, _ := fx.sessions.marker(ns); m != "o3" {
		t.Fatalf("marker = %q", m)
	}
	if fx.sink.count() < 1 {
		t.Fatal("no notification sent")
	}
	if out := fx.det.Poll(context.Background(), ns); out.Kind != order.OutcomeNoNewOrder {
		t.Fatalf("settled poll = %+v", out)
	}
}
