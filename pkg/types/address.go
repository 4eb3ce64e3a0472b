package types

import (
	"fmt"
	"strings"
)

// Address is the shipping address snapshot frozen onto an order at checkout.
// It is stored as jsonb and never re-resolved against the buyer's address book.
type Address struct {
	Name       string  `json:"name"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone,omitempty"`
}

// Validate checks that the snapshot carries the minimum deliverable fields.
func (a Address) Validate() error {
	fields := map[string]string{
		"line1":       a.Line1,
		"city":        a.City,
		"state":       a.State,
		"postal_code": a.PostalCode,
	}
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("address %s is required", name)
		}
	}
	return nil
}
