package enums

import "fmt"

// InventoryRefKind names the aggregate a ledger entry traces back to.
type InventoryRefKind string

const (
	InventoryRefKindOrder         InventoryRefKind = "order"
	InventoryRefKindPurchaseOrder InventoryRefKind = "purchase_order"
	InventoryRefKindAdjustment    InventoryRefKind = "adjustment"
)

var validInventoryRefKinds = []InventoryRefKind{
	InventoryRefKindOrder,
	InventoryRefKindPurchaseOrder,
	InventoryRefKindAdjustment,
}

// String implements fmt.Stringer.
func (i InventoryRefKind) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InventoryRefKind.
func (i InventoryRefKind) IsValid() bool {
	for _, candidate := range validInventoryRefKinds {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInventoryRefKind converts raw input into an InventoryRefKind.
func ParseInventoryRefKind(value string) (InventoryRefKind, error) {
	for _, candidate := range validInventoryRefKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory ref kind %q", value)
}
