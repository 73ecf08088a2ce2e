package enums

import "slices"

// OrderStatus tracks a reservation from placement to pickup. Postgres
// stores it as the order_status enum.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return slices.Contains(orderStatuses, s) }

// IsTerminal reports whether no further transition may leave this status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// HoldsInventory reports whether an order in this status still owns bag units.
func (s OrderStatus) HoldsInventory() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return member(orderStatuses, "order status", value)
}
