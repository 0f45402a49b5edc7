package order

import "fmt"

// OutcomeKind classifies the result of one poll.
type OutcomeKind int

const (
	OutcomeSkipped OutcomeKind = iota
	OutcomeNotified
	OutcomeNoNewOrder
	OutcomeTransientFailure
)

// Skip reasons.
const (
	SkipOffline            = "offline"
	SkipUnconfigured       = "unconfigured"
	SkipMissingIdentifiers = "missing_identifiers"
	SkipMissingOrderID     = "missing_order_id"
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNotified:
		return "notified"
	case OutcomeNoNewOrder:
		return "no_new_order"
	case OutcomeTransientFailure:
		return "transient_failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is what a poll resolved to. Only TransientFailure outcomes are retried.
type Outcome struct {
	Kind   OutcomeKind
	Reason string   // set for Skipped
	Order  *Summary // set for Notified
	Err    error    // set for TransientFailure
}

func Skipped(reason string) Outcome {
	return Outcome{Kind: OutcomeSkipped, Reason: reason}
}

func Notified(o Summary) Outcome {
	return Outcome{Kind: OutcomeNotified, Order: &o}
}

func NoNewOrder() Outcome {
	return Outcome{Kind: OutcomeNoNewOrder}
}

func TransientFailure(err error) Outcome {
	if err == nil {
		err = fmt.Errorf("unknown transient failure")
	}
	return Outcome{Kind: OutcomeTransientFailure, Err: err}
}

// Retryable reports whether the scheduler should retry this poll.
func (o Outcome) Retryable() bool {
	return o.Kind == OutcomeTransientFailure
}
