package enums

import "fmt"

// AuditAction names a state-changing action recorded in the audit log.
type AuditAction string

const (
	AuditActionOrderStatusChanged AuditAction = "order_status_changed"
	AuditActionRefundRequested    AuditAction = "refund_requested"
	AuditActionRefundApproved     AuditAction = "refund_approved"
	AuditActionRefundRejected     AuditAction = "refund_rejected"
	AuditActionReturnRequested    AuditAction = "return_requested"
	AuditActionReturnTransitioned AuditAction = "return_transitioned"
	AuditActionDisputeOpened      AuditAction = "dispute_opened"
	AuditActionDisputeStatusSet   AuditAction = "dispute_status_set"
	AuditActionDisputeResolved    AuditAction = "dispute_resolved"
	AuditActionPayoutRequested    AuditAction = "payout_requested"
	AuditActionPayoutProcessed    AuditAction = "payout_processed"
)

var validAuditActions = []AuditAction{
	AuditActionOrderStatusChanged,
	AuditActionRefundRequested,
	AuditActionRefundApproved,
	AuditActionRefundRejected,
	AuditActionReturnRequested,
	AuditActionReturnTransitioned,
	AuditActionDisputeOpened,
	AuditActionDisputeStatusSet,
	AuditActionDisputeResolved,
	AuditActionPayoutRequested,
	AuditActionPayoutProcessed,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}

// AuditEntityType names the kind of entity an audit entry references.
type AuditEntityType string

const (
	AuditEntityOrder   AuditEntityType = "order"
	AuditEntityRefund  AuditEntityType = "refund"
	AuditEntityReturn  AuditEntityType = "return"
	AuditEntityDispute AuditEntityType = "dispute"
	AuditEntityPayout  AuditEntityType = "payout"
)

var validAuditEntityTypes = []AuditEntityType{
	AuditEntityOrder,
	AuditEntityRefund,
	AuditEntityReturn,
	AuditEntityDispute,
	AuditEntityPayout,
}

// IsValid reports whether the value is a known AuditEntityType.
func (a AuditEntityType) IsValid() bool {
	for _, candidate := range validAuditEntityTypes {
		if candidate == a {
			return true
		}
	}
	return false
}
