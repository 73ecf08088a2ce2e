package orders

import (
	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
	pkgerrors "github.com/Gulhayo05/Surprise-Bag/pkg/errors"
	"github.com/google/uuid"
)

// Event drives an order from one status to the next.
type Event string

const (
	EventConfirm  Event = "confirm"
	EventComplete Event = "complete"
	EventCancel   Event = "cancel"
)

type transition struct {
	from []enums.OrderStatus
	to   enums.OrderStatus
}

var transitions = map[Event]transition{
	EventConfirm: {
		from: []enums.OrderStatus{enums.OrderStatusPending},
		to:   enums.OrderStatusConfirmed,
	},
	EventComplete: {
		from: []enums.OrderStatus{enums.OrderStatusConfirmed},
		to:   enums.OrderStatusCompleted,
	},
	EventCancel: {
		from: []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusConfirmed},
		to:   enums.OrderStatusCancelled,
	},
}

// NextStatus returns the status reached by applying event to current.
func NextStatus(current enums.OrderStatus, event Event) (enums.OrderStatus, error) {
	t, ok := transitions[event]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown order event "+string(event))
	}
	for _, from := range t.from {
		if from == current {
			return t.to, nil
		}
	}
	return "", invalidTransition(current, event)
}

func sourcesFor(event Event) []enums.OrderStatus {
	return transitions[event].from
}

func invalidTransition(current enums.OrderStatus, event Event) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot "+string(event)+" an order that is "+string(current)).
		WithDetails(map[string]any{"status": current, "event": event})
}

// authorizeTransition decides whether actor may apply event to order. The
// owning business may confirm, complete and cancel; the order's customer may
// only cancel.
func authorizeTransition(actor Actor, event Event, order *OrderDetail) error {
	switch actor.Role {
	case enums.UserRoleCustomer:
		if event == EventCancel && isOrderCustomer(actor, order) {
			return nil
		}
	case enums.UserRoleBusinessOwner:
		if order.BusinessID == actor.UserID {
			return nil
		}
	case enums.UserRoleAdmin:
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to "+string(event)+" this order")
}

// authorizeView mirrors the listing scopes: customers see their own orders,
// owners see orders on their bags, admins see everything.
func authorizeView(actor Actor, order *OrderDetail) error {
	switch actor.Role {
	case enums.UserRoleCustomer:
		if isOrderCustomer(actor, order) {
			return nil
		}
	case enums.UserRoleBusinessOwner:
		if order.BusinessID == actor.UserID {
			return nil
		}
	case enums.UserRoleAdmin:
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order is not visible to this user")
}

func authorizeRating(actor Actor, order *OrderDetail) error {
	switch actor.Role {
	case enums.UserRoleCustomer:
		if isOrderCustomer(actor, order) {
			return nil
		}
	case enums.UserRoleBusinessOwner, enums.UserRoleAdmin:
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only the ordering customer can rate this order")
}

func isOrderCustomer(actor Actor, order *OrderDetail) bool {
	return order.CustomerID != nil && *order.CustomerID == actor.UserID && actor.UserID != uuid.Nil
}
