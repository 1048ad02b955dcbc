package enums

import "fmt"

// InventoryMovement classifies a stock change recorded in the inventory ledger.
type InventoryMovement string

const (
	InventoryMovementPurchase   InventoryMovement = "purchase"
	InventoryMovementSale       InventoryMovement = "sale"
	InventoryMovementReturn     InventoryMovement = "return"
	InventoryMovementAdjustment InventoryMovement = "adjustment"
	InventoryMovementWriteOff   InventoryMovement = "write_off"
	InventoryMovementTransfer   InventoryMovement = "transfer"
)

var validInventoryMovements = []InventoryMovement{
	InventoryMovementPurchase,
	InventoryMovementSale,
	InventoryMovementReturn,
	InventoryMovementAdjustment,
	InventoryMovementWriteOff,
	InventoryMovementTransfer,
}

// String implements fmt.Stringer.
func (i InventoryMovement) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InventoryMovement.
func (i InventoryMovement) IsValid() bool {
	for _, candidate := range validInventoryMovements {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInventoryMovement converts raw input into an InventoryMovement.
func ParseInventoryMovement(value string) (InventoryMovement, error) {
	for _, candidate := range validInventoryMovements {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory movement %q", value)
}
