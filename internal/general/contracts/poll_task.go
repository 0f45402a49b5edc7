package contracts

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Poll task origins.
const (
	OriginImmediate = "immediate"
	OriginBurst     = "burst"
	OriginRecurring = "recurring"
	OriginRetry     = "retry"
	OriginManual    = "manual"
)

var ErrInvalidPollTask = errors.New("invalid poll task")

// PollTask asks a worker to run one poll for a device namespace.
type PollTask struct {
	TaskID     string    `json:"task_id"`
	Namespace  string    `json:"namespace"`
	Origin     string    `json:"origin"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Envelope
}

// NewPollTask builds a first-attempt task with a fresh id.
func NewPollTask(namespace, origin string) PollTask {
	id := uuid.NewString()
	return PollTask{
		TaskID:     id,
		Namespace:  namespace,
		Origin:     origin,
		EnqueuedAt: time.Now().UTC(),
		Envelope: Envelope{
			CorrelationID: id,
			Producer:      ProducerOrderPoller,
			SentAt:        time.Now().UTC(),
		},
	}
}

// Retry returns a copy of the task for the next attempt. The correlation id is kept
// so every attempt of one logical poll can be traced together.
func (t PollTask) Retry() PollTask {
	next := t
	next.TaskID = uuid.NewString()
	next.Origin = OriginRetry
	next.Attempt = t.Attempt + 1
	next.EnqueuedAt = time.Now().UTC()
	next.SentAt = next.EnqueuedAt
	return next
}

// Validate checks the fields a worker relies on.
func (t PollTask) Validate() error {
	if strings.TrimSpace(t.TaskID) == "" || strings.TrimSpace(t.Namespace) == "" || t.Attempt < 0 {
		return ErrInvalidPollTask
	}
	return nil
}
