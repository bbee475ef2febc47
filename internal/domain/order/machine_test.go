package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickingClock returns a clock advancing one minute per call, so that
// successive transitions get distinct timestamps.
func tickingClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		now := t
		t = t.Add(time.Minute)
		return now
	}
}

func TestMachine_Initialize(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMachineWithClock(tickingClock(start))

	o := &Order{ID: "o-1"}
	m.Initialize(o, "customer")

	assert.Equal(t, StatusAwaitingConfirmation, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, start, o.CreatedAt)
	require.Len(t, o.History, 1)
	assert.Equal(t, StatusAwaitingConfirmation, o.History[0].Status)
	assert.Equal(t, "customer", o.History[0].Actor)
}

func TestMachine_Transition_HappyPath(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMachineWithClock(tickingClock(start))

	o := &Order{ID: "o-1"}
	m.Initialize(o, "customer")

	path := []Status{
		StatusConfirmed,
		StatusPreparing,
		StatusReady,
		StatusOutForDelivery,
		StatusDelivered,
	}
	for _, target := range path {
		require.NoError(t, m.Transition(o, target, "restaurant", ""))
		assert.Equal(t, target, o.Status)
		require.NotNil(t, o.StatusTimestamp(target), "timestamp for %s", target)
	}

	// Every status got a distinct, non-decreasing timestamp.
	prev := o.CreatedAt
	for _, s := range path {
		ts := o.StatusTimestamp(s)
		require.NotNil(t, ts)
		assert.False(t, ts.Before(prev), "timestamp for %s went backwards", s)
		prev = *ts
	}

	// Initialize plus five transitions.
	assert.Len(t, o.History, 6)
}

func TestMachine_Transition_SameStatusIsNoOp(t *testing.T) {
	m := NewMachine()
	o := &Order{ID: "o-1"}
	m.Initialize(o, "customer")
	require.NoError(t, m.Transition(o, StatusConfirmed, "restaurant", ""))

	confirmedAt := o.ConfirmedAt
	historyLen := len(o.History)

	require.NoError(t, m.Transition(o, StatusConfirmed, "restaurant", "again"))
	assert.Equal(t, confirmedAt, o.ConfirmedAt)
	assert.Len(t, o.History, historyLen)
}

func TestMachine_Transition_InvalidEdge(t *testing.T) {
	m := NewMachine()
	o := &Order{ID: "o-1"}
	m.Initialize(o, "customer")

	err := m.Transition(o, StatusReady, "restaurant", "")
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusAwaitingConfirmation, invalid.From)
	assert.Equal(t, StatusReady, invalid.To)
	assert.Equal(t, StatusAwaitingConfirmation, o.Status)
}

func TestMachine_Transition_TerminalOrder(t *testing.T) {
	m := NewMachine()
	o := &Order{ID: "o-1"}
	m.Initialize(o, "customer")
	require.NoError(t, m.Cancel(o, "customer gave up", "customer"))

	err := m.Transition(o, StatusConfirmed, "restaurant", "")
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestMachine_Cancel(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMachineWithClock(tickingClock(start))

	o := &Order{ID: "o-1"}
	m.Initialize(o, "customer")
	require.NoError(t, m.Transition(o, StatusConfirmed, "restaurant", ""))

	require.NoError(t, m.Cancel(o, "out of stock", "restaurant"))
	assert.Equal(t, StatusCanceled, o.Status)
	assert.Equal(t, "out of stock", o.CancellationReason)
	require.NotNil(t, o.CanceledAt)
}

func TestMachine_Cancel_Idempotent(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMachineWithClock(tickingClock(start))

	o := &Order{ID: "o-1"}
	m.Initialize(o, "customer")
	require.NoError(t, m.Cancel(o, "first reason", "customer"))

	canceledAt := o.CanceledAt
	historyLen := len(o.History)

	require.NoError(t, m.Cancel(o, "second reason", "customer"))
	assert.Equal(t, "first reason", o.CancellationReason)
	assert.Equal(t, canceledAt, o.CanceledAt)
	assert.Len(t, o.History, historyLen)
}

func TestMachine_Cancel_DeliveredOrder(t *testing.T) {
	m := NewMachine()
	o := &Order{ID: "o-1"}
	m.Initialize(o, "customer")
	for _, s := range []Status{StatusConfirmed, StatusPreparing, StatusReady, StatusOutForDelivery, StatusDelivered} {
		require.NoError(t, m.Transition(o, s, "restaurant", ""))
	}

	err := m.Cancel(o, "too late", "customer")
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	assert.Empty(t, o.CancellationReason)
}

func TestMachine_Cancel_RefundsApprovedPayment(t *testing.T) {
	m := NewMachine()
	o := &Order{ID: "o-1"}
	m.Initialize(o, "customer")
	require.NoError(t, m.TransitionPayment(o, PaymentProcessing))
	require.NoError(t, m.TransitionPayment(o, PaymentApproved))

	require.NoError(t, m.Cancel(o, "address unreachable", "courier"))
	assert.Equal(t, PaymentRefunded, o.PaymentStatus)
}

func TestMachine_Cancel_PendingPaymentStaysPending(t *testing.T) {
	m := NewMachine()
	o := &Order{ID: "o-1"}
	m.Initialize(o, "customer")

	require.NoError(t, m.Cancel(o, "changed my mind", "customer"))
	assert.Equal(t, PaymentPending, o.PaymentStatus)
}

func TestMachine_TransitionPayment(t *testing.T) {
	m := NewMachine()
	o := &Order{ID: "o-1"}
	m.Initialize(o, "customer")

	require.NoError(t, m.TransitionPayment(o, PaymentProcessing))
	require.NoError(t, m.TransitionPayment(o, PaymentProcessing)) // no-op
	require.NoError(t, m.TransitionPayment(o, PaymentRejected))

	err := m.TransitionPayment(o, PaymentApproved)
	var invalid *InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
}

func TestOrder_TimestampSetOnce(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMachineWithClock(tickingClock(start))

	o := &Order{ID: "o-1"}
	m.Initialize(o, "customer")
	require.NoError(t, m.Transition(o, StatusConfirmed, "restaurant", ""))
	first := *o.ConfirmedAt

	// A later write attempt via the setter must not move the timestamp.
	o.setStatusTimestamp(StatusConfirmed, first.Add(time.Hour))
	assert.Equal(t, first, *o.ConfirmedAt)
}
