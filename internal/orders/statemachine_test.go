package orders

import (
	"testing"

	"github.com/tradepost-app/tradepost-backend/pkg/enums"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from  enums.OrderStatus
		to    enums.OrderStatus
		allow bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusPaid, true},
		{enums.OrderStatusPending, enums.OrderStatusCancelled, true},
		{enums.OrderStatusPaid, enums.OrderStatusConfirmed, true},
		{enums.OrderStatusPaid, enums.OrderStatusCancelled, true},
		{enums.OrderStatusConfirmed, enums.OrderStatusShipped, true},
		{enums.OrderStatusShipped, enums.OrderStatusDelivered, true},
		{enums.OrderStatusShipped, enums.OrderStatusCancelled, true},

		// no skipping steps
		{enums.OrderStatusPending, enums.OrderStatusConfirmed, false},
		{enums.OrderStatusPending, enums.OrderStatusShipped, false},
		{enums.OrderStatusPaid, enums.OrderStatusDelivered, false},

		// no moving backwards
		{enums.OrderStatusPaid, enums.OrderStatusPending, false},
		{enums.OrderStatusDelivered, enums.OrderStatusShipped, false},

		// terminal states stay terminal
		{enums.OrderStatusDelivered, enums.OrderStatusCancelled, false},
		{enums.OrderStatusCancelled, enums.OrderStatusPaid, false},
		{enums.OrderStatusRefunded, enums.OrderStatusPaid, false},

		// refunded is never a direct target
		{enums.OrderStatusDelivered, enums.OrderStatusRefunded, false},
		{enums.OrderStatusPaid, enums.OrderStatusRefunded, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.allow {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allow)
		}
	}
}

func TestAllowedTargetsTerminalStatesEmpty(t *testing.T) {
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
		enums.OrderStatusRefunded,
	} {
		if targets := AllowedTargets(status); len(targets) != 0 {
			t.Errorf("AllowedTargets(%s) = %v, want empty", status, targets)
		}
	}
}
