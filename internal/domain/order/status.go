package order

import (
	"fmt"
	"time"
)

// transitions holds the forward edges of the status state machine.
// CANCELLED and REFUNDED are additionally reachable through the CanCancel
// and CanRefund rules below.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {StatusRefunded},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// NextStatuses returns the statuses reachable from the given status.
// Terminal statuses return an empty slice.
func NextStatuses(s Status) []Status {
	next, ok := transitions[s]
	if !ok {
		return nil
	}
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether no further transition is defined from s.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// CanCancel reports whether the order may still be cancelled. Orders that
// have shipped, or are already in a terminal state, cannot.
func CanCancel(o *Order) bool {
	switch o.Status {
	case StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded:
		return false
	}
	return true
}

// CanRefund reports whether the order may be refunded: the payment must have
// been captured and the order must not already be cancelled or refunded.
func CanRefund(o *Order) bool {
	if o.PaymentStatus != PaymentPaid {
		return false
	}
	switch o.Status {
	case StatusCancelled, StatusRefunded:
		return false
	}
	return true
}

// InvalidTransitionError reports an attempt to move an order to a status not
// reachable from its current one.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// Transition moves the order to the next status, enforcing the state machine
// before any persistence write. The first arrival at SHIPPED or DELIVERED
// stamps shipped_at/delivered_at; the timestamps are never overwritten.
func Transition(o *Order, next Status, now time.Time) error {
	if !allowed(o, next) {
		return &InvalidTransitionError{From: o.Status, To: next}
	}

	o.Status = next
	switch next {
	case StatusShipped:
		if o.ShippedAt == nil {
			t := now
			o.ShippedAt = &t
		}
	case StatusDelivered:
		if o.DeliveredAt == nil {
			t := now
			o.DeliveredAt = &t
		}
	}
	return nil
}

func allowed(o *Order, next Status) bool {
	for _, s := range transitions[o.Status] {
		if s == next {
			return true
		}
	}
	// Cancellation and refund cut across the forward path.
	switch next {
	case StatusCancelled:
		return CanCancel(o)
	case StatusRefunded:
		return CanRefund(o)
	}
	return false
}

// CanDelete reports whether the order may be removed entirely. Shipped and
// delivered orders are kept for record keeping.
func CanDelete(o *Order) bool {
	return o.Status != StatusShipped && o.Status != StatusDelivered
}
