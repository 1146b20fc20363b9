package enums

import "fmt"

// OrderStatus maps to the order_status enum in Postgres. The lifecycle is
// linear: pending -> in_progress -> completed -> delivered.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusDelivered  OrderStatus = "delivered"
)

var orderStatusSequence = []OrderStatus{
	OrderStatusPending,
	OrderStatusInProgress,
	OrderStatusCompleted,
	OrderStatusDelivered,
}

func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical order status enum.
func (s OrderStatus) IsValid() bool {
	return s.rank() >= 0
}

// Next returns the single status reachable from s, if any.
func (s OrderStatus) Next() (OrderStatus, bool) {
	idx := s.rank()
	if idx < 0 || idx+1 >= len(orderStatusSequence) {
		return "", false
	}
	return orderStatusSequence[idx+1], true
}

// IsTerminal reports whether no further transition exists.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered
}

func (s OrderStatus) rank() int {
	for i, candidate := range orderStatusSequence {
		if candidate == s {
			return i
		}
	}
	return -1
}

// ParseOrderStatus converts raw input into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range orderStatusSequence {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
