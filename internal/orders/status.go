package orders

import "github.com/mgardella/storefront-backend/pkg/enums"

// allowedTransitions is the whole lifecycle. Delivered and cancelled are
// terminal; cancellation is only possible before shipping.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusPaid, enums.OrderStatusCancelled},
	enums.OrderStatusPaid:      {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:   {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered: {},
	enums.OrderStatusCancelled: {},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
