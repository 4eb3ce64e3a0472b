package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateRefund  OutboxAggregateType = "refund"
	AggregateReturn  OutboxAggregateType = "return"
	AggregateDispute OutboxAggregateType = "dispute"
	AggregatePayout  OutboxAggregateType = "payout"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateRefund,
	AggregateReturn,
	AggregateDispute,
	AggregatePayout,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderStateChanged OutboxEventType = "order_state_changed"
	EventOrderCancelled    OutboxEventType = "order_cancelled"
	EventOrderDelivered    OutboxEventType = "order_delivered"
	EventRefundRequested   OutboxEventType = "refund_requested"
	EventRefundResolved    OutboxEventType = "refund_resolved"
	EventReturnRequested   OutboxEventType = "return_requested"
	EventReturnTransition  OutboxEventType = "return_transitioned"
	EventDisputeOpened     OutboxEventType = "dispute_opened"
	EventDisputeResolved   OutboxEventType = "dispute_resolved"
	EventPayoutRequested   OutboxEventType = "payout_requested"
	EventPayoutProcessed   OutboxEventType = "payout_processed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderStateChanged,
	EventOrderCancelled,
	EventOrderDelivered,
	EventRefundRequested,
	EventRefundResolved,
	EventReturnRequested,
	EventReturnTransition,
	EventDisputeOpened,
	EventDisputeResolved,
	EventPayoutRequested,
	EventPayoutProcessed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
