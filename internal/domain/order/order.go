package order

import "time"

// Status is an order status as stored in the backend `orders` table.
type Status string

// StatusPending is the only status a poll asks the backend for.
const StatusPending Status = "Pendiente"

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// RecentWindow is how many of the newest pending orders a poll looks at.
const RecentWindow = 5

// Summary is the transient view of a pending order fetched on each poll.
type Summary struct {
	ID              string
	ClientName      string
	LocalName       string
	DeliveryAddress string
	SuggestedPrice  float64
	CreatedAt       time.Time
}

// DisplayID is the id shown to drivers, e.g. "ORD-42".
func (s Summary) DisplayID() string {
	return "ORD-" + s.ID
}

// HasPrice reports whether the order carries a positive suggested price.
func (s Summary) HasPrice() bool {
	return s.SuggestedPrice > 0
}

// FindCandidate picks the order to notify from a list sorted newest first.
//
// Without a marker the newest order is the candidate. With a marker the list is
// walked until the marked order; each order passed on the way replaces the
// candidate, so the result is the order right after the marker. When the marker
// is not in the list the walk ends on the last entry.
func FindCandidate(orders []Summary, marker string) (Summary, bool) {
	if len(orders) == 0 {
		return Summary{}, false
	}
	if marker == "" {
		return orders[0], true
	}

	var (
		candidate Summary
		found     bool
	)
	for _, o := range orders {
		if o.ID == marker {
			break
		}
		candidate = o
		found = true
	}
	return candidate, found
}
