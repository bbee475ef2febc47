package order

import (
	"time"
)

// Machine enforces the order status and payment status lifecycles. It owns
// every mutation of an order after creation: transition validation, per-status
// timestamps, and the append-only history log.
//
// The machine mutates the aggregate in memory only; persistence (and the
// optimistic-version check) happens when the caller saves the order.
type Machine struct {
	now func() time.Time
}

// NewMachine creates a Machine using the wall clock.
func NewMachine() *Machine {
	return &Machine{now: time.Now}
}

// NewMachineWithClock creates a Machine with an injectable clock for
// deterministic tests.
func NewMachineWithClock(now func() time.Time) *Machine {
	return &Machine{now: now}
}

// Initialize stamps a freshly built order into its initial state and records
// the first history entry.
func (m *Machine) Initialize(o *Order, actor string) {
	now := m.now()

	o.Status = StatusAwaitingConfirmation
	o.PaymentStatus = PaymentPending
	o.CreatedAt = now
	o.History = append(o.History, HistoryEntry{
		Status:    StatusAwaitingConfirmation,
		Actor:     actor,
		Note:      "order created",
		CreatedAt: now,
	})
}

// Transition moves the order to target if the edge is in the allowed table.
//
// Re-applying the current status is an idempotent no-op. Attempting to mutate
// a terminal order fails with ErrAlreadyTerminal; an edge missing from the
// table fails with InvalidTransitionError. On success the target's timestamp
// is stamped (once, never overwritten) and a history entry is appended.
func (m *Machine) Transition(o *Order, target Status, actor, note string) error {
	if target == o.Status {
		return nil
	}
	if o.Status.Terminal() {
		return ErrAlreadyTerminal
	}
	if !o.Status.CanTransitionTo(target) {
		return &InvalidTransitionError{From: o.Status, To: target}
	}

	now := m.now()
	o.Status = target
	o.setStatusTimestamp(target, now)
	o.History = append(o.History, HistoryEntry{
		Status:    target,
		Actor:     actor,
		Note:      note,
		CreatedAt: now,
	})

	return nil
}

// Cancel moves the order to CANCELED and records the reason.
//
// Cancellation is allowed from any non-terminal state. Canceling an already
// canceled order is idempotent: the original reason and timestamp are kept.
// When the payment had been captured, the payment status moves to REFUNDED;
// executing the refund is an external concern, only the state change is
// recorded here.
func (m *Machine) Cancel(o *Order, reason, actor string) error {
	if o.Status == StatusCanceled {
		return nil
	}
	if o.Status.Terminal() {
		return ErrAlreadyTerminal
	}

	if err := m.Transition(o, StatusCanceled, actor, reason); err != nil {
		return err
	}
	o.CancellationReason = reason

	if o.PaymentStatus == PaymentApproved {
		o.PaymentStatus = PaymentRefunded
	}

	return nil
}

// TransitionPayment moves the payment status along its own edge table.
// Re-applying the current payment status is a no-op.
func (m *Machine) TransitionPayment(o *Order, target PaymentStatus) error {
	if target == o.PaymentStatus {
		return nil
	}
	if !o.PaymentStatus.CanTransitionTo(target) {
		return &InvalidTransitionError{
			From: Status(o.PaymentStatus),
			To:   Status(target),
		}
	}

	o.PaymentStatus = target
	return nil
}
