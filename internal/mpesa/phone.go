package mpesa

import (
	"strings"

	pkgerrors "github.com/afyakart/storefront-backend/pkg/errors"
)

// NormalizePhone converts the accepted Kenyan phone formats to the canonical
// 254XXXXXXXXX form Daraja requires. Accepted inputs: 07XX/01XX local form,
// 254 or +254 international form, and a bare 7XX/1XX subscriber number.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	phone := digits.String()

	switch {
	case strings.HasPrefix(phone, "0"):
		phone = "254" + phone[1:]
	case strings.HasPrefix(phone, "254"):
	case strings.HasPrefix(phone, "7"), strings.HasPrefix(phone, "1"):
		phone = "254" + phone
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid phone number format")
	}

	if len(phone) != 12 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "phone number must be a valid Kenyan number")
	}
	return phone, nil
}
