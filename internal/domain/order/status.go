package order

// Status is the lifecycle state of an order.
//
// State transitions:
//
//	AWAITING_CONFIRMATION ──> CONFIRMED ──> PREPARING ──> READY ──> OUT_FOR_DELIVERY ──> DELIVERED
//	          │                   │             │           │              │
//	          └───────────────────┴─────────────┴───────────┴──────────────┴──> CANCELED
//
// DELIVERED and CANCELED are terminal.
type Status string

const (
	StatusAwaitingConfirmation Status = "AWAITING_CONFIRMATION"
	StatusConfirmed            Status = "CONFIRMED"
	StatusPreparing            Status = "PREPARING"
	StatusReady                Status = "READY"
	StatusOutForDelivery       Status = "OUT_FOR_DELIVERY"
	StatusDelivered            Status = "DELIVERED"
	StatusCanceled             Status = "CANCELED"
)

// statusTransitions is the allowed-edges table. A transition is legal only if
// the target appears in the current status's successor list.
var statusTransitions = map[Status][]Status{
	StatusAwaitingConfirmation: {StatusConfirmed, StatusCanceled},
	StatusConfirmed:            {StatusPreparing, StatusCanceled},
	StatusPreparing:            {StatusReady, StatusCanceled},
	StatusReady:                {StatusOutForDelivery, StatusCanceled},
	StatusOutForDelivery:       {StatusDelivered, StatusCanceled},
	StatusDelivered:            nil,
	StatusCanceled:             nil,
}

// statusDescriptions maps each status to its human-readable label. Display
// only: business rules never branch on these strings.
var statusDescriptions = map[Status]string{
	StatusAwaitingConfirmation: "Awaiting confirmation",
	StatusConfirmed:            "Confirmed",
	StatusPreparing:            "Preparing",
	StatusReady:                "Ready for pickup",
	StatusOutForDelivery:       "Out for delivery",
	StatusDelivered:            "Delivered",
	StatusCanceled:             "Canceled",
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCanceled
}

// CanTransitionTo reports whether the edge s -> target is in the table.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range statusTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Description returns the human-readable label for the status.
func (s Status) Description() string {
	if desc, ok := statusDescriptions[s]; ok {
		return desc
	}
	return string(s)
}

// PaymentStatus is the payment lifecycle state, independent of the order
// status: PENDING -> PROCESSING -> APPROVED | REJECTED; APPROVED -> REFUNDED.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentApproved   PaymentStatus = "APPROVED"
	PaymentRejected   PaymentStatus = "REJECTED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentProcessing},
	PaymentProcessing: {PaymentApproved, PaymentRejected},
	PaymentApproved:   {PaymentRefunded},
	PaymentRejected:   nil,
	PaymentRefunded:   nil,
}

var paymentDescriptions = map[PaymentStatus]string{
	PaymentPending:    "Payment pending",
	PaymentProcessing: "Processing payment",
	PaymentApproved:   "Payment approved",
	PaymentRejected:   "Payment rejected",
	PaymentRefunded:   "Payment refunded",
}

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[p]
	return ok
}

// CanTransitionTo reports whether the edge p -> target is in the table.
func (p PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, next := range paymentTransitions[p] {
		if next == target {
			return true
		}
	}
	return false
}

// Description returns the human-readable label for the payment status.
func (p PaymentStatus) Description() string {
	if desc, ok := paymentDescriptions[p]; ok {
		return desc
	}
	return string(p)
}
