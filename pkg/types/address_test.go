package types

import "testing"

func TestAddressValidate(t *testing.T) {
	addr := Address{
		Name:       "Jordan Reyes",
		Line1:      "500 Market St",
		City:       "Portland",
		State:      "OR",
		PostalCode: "97201",
		Country:    "US",
	}
	if err := addr.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	missing := addr
	missing.PostalCode = "  "
	if err := missing.Validate(); err == nil {
		t.Fatal("expected error for blank postal code")
	}
}
