package enums

import (
	"fmt"
	"strings"
)

// DisputeStatus tracks the escalation path between buyer and seller.
type DisputeStatus string

const (
	DisputeStatusOpen           DisputeStatus = "open"
	DisputeStatusInvestigating  DisputeStatus = "investigating"
	DisputeStatusResolvedBuyer  DisputeStatus = "resolved_buyer"
	DisputeStatusResolvedSeller DisputeStatus = "resolved_seller"
	DisputeStatusClosed         DisputeStatus = "closed"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusInvestigating,
	DisputeStatusResolvedBuyer,
	DisputeStatusResolvedSeller,
	DisputeStatusClosed,
}

// String implements fmt.Stringer.
func (d DisputeStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeStatus.
func (d DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsResolution reports whether the status settles the dispute and should stamp
// resolved_at/resolved_by.
func (d DisputeStatus) IsResolution() bool {
	return strings.HasPrefix(string(d), "resolved_") || d == DisputeStatusClosed
}

// ParseDisputeStatus converts raw input into a DisputeStatus.
func ParseDisputeStatus(value string) (DisputeStatus, error) {
	for _, candidate := range validDisputeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}
