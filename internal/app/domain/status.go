package domain

// OrderStatus is the shop order state.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusOnHold     OrderStatus = "on-hold"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
	StatusFailed     OrderStatus = "failed"
)

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusOnHold, StatusCancelled, StatusFailed, StatusCompleted},
	StatusOnHold:     {StatusPending, StatusProcessing, StatusCancelled, StatusFailed, StatusCompleted},
	StatusFailed:     {StatusPending, StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusOnHold, StatusCancelled, StatusRefunded},
	StatusCancelled:  {StatusPending, StatusProcessing},
	StatusCompleted:  {StatusRefunded},
	StatusRefunded:   nil,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// AwaitingPayment is true while a charge can still be paid or expire.
func (s OrderStatus) AwaitingPayment() bool {
	switch s {
	case StatusPending, StatusOnHold, StatusFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether from -> to is allowed. Same-status is a no-op and always allowed.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return from.Valid()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
