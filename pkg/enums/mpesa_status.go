package enums

import "fmt"

// MpesaStatus tracks the lifecycle of an STK push transaction.
type MpesaStatus string

const (
	MpesaStatusPending   MpesaStatus = "pending"
	MpesaStatusSuccess   MpesaStatus = "success"
	MpesaStatusFailed    MpesaStatus = "failed"
	MpesaStatusCancelled MpesaStatus = "cancelled"
	MpesaStatusTimeout   MpesaStatus = "timeout"
)

var validMpesaStatuses = []MpesaStatus{
	MpesaStatusPending,
	MpesaStatusSuccess,
	MpesaStatusFailed,
	MpesaStatusCancelled,
	MpesaStatusTimeout,
}

// String implements fmt.Stringer.
func (m MpesaStatus) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MpesaStatus.
func (m MpesaStatus) IsValid() bool {
	for _, candidate := range validMpesaStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the transaction can still change state.
func (m MpesaStatus) IsTerminal() bool {
	return m != MpesaStatusPending
}

// ParseMpesaStatus converts raw input into an MpesaStatus.
func ParseMpesaStatus(value string) (MpesaStatus, error) {
	for _, candidate := range validMpesaStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid mpesa status %q", value)
}
