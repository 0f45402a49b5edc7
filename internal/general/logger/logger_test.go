package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestErrorLineCarriesContextIDs(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("order-poller", &buf)

	ctx := l.WithPollID(l.WithRequestID(context.Background(), "req-1"), "poll-1")
	l.Error(ctx, "poll_failed", " backend down ", errors.New("boom"), map[string]any{"attempt": 2})

	var e LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &e); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if e.Level != "ERROR" || e.Service != "order-poller" || e.Action != "poll_failed" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Message != "backend down" || e.RequestID != "req-1" || e.PollID != "poll-1" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Error == nil || e.Error.Msg != "boom" {
		t.Fatalf("missing error object: %+v", e.Error)
	}
}

func TestUnmarshalableDetailsAreDropped(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("svc", &buf)

	l.Info(context.Background(), "", "hello", map[string]any{"ch": make(chan int)})

	var e LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &e); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if e.Action != "unspecified" || e.Details != nil {
		t.Fatalf("unexpected entry %+v", e)
	}
}
