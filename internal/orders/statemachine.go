package orders

import "github.com/tradepost-app/tradepost-backend/pkg/enums"

// transitionTargets is the adjacency list of the order lifecycle. An order
// advances one step at a time; cancellation is reachable from every
// non-terminal state. The refunded status never appears as a target here
// because it is only assigned when a full-balance refund is approved.
var transitionTargets = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusPaid, enums.OrderStatusCancelled},
	enums.OrderStatusPaid:      {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:   {enums.OrderStatusDelivered, enums.OrderStatusCancelled},
	enums.OrderStatusDelivered: {},
	enums.OrderStatusCancelled: {},
	enums.OrderStatusRefunded:  {},
}

// CanTransition reports whether the lifecycle permits moving from one status
// directly to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, target := range transitionTargets[from] {
		if target == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the statuses reachable in one step from the given status.
func AllowedTargets(from enums.OrderStatus) []enums.OrderStatus {
	targets := transitionTargets[from]
	out := make([]enums.OrderStatus, len(targets))
	copy(out, targets)
	return out
}
