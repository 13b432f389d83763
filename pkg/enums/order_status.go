package enums

import "fmt"

// OrderStatus represents the lifecycle state of a customer order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusWaitlist  OrderStatus = "waitlist"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusCompleted,
	OrderStatusWaitlist,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ConsumesInventory reports whether an order in this status counts against
// schedule stock. Waitlisted and cancelled orders do not hold stock.
func (s OrderStatus) ConsumesInventory() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// Immutable reports whether an order in this status can no longer be deleted
// by its owner. Payment has been received or fulfilled at that point.
func (s OrderStatus) Immutable() bool {
	return s == OrderStatusPaid || s == OrderStatusCompleted
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
