package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod is stored as free text; the set below is what writes accept.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodUPI          PaymentMethod = "UPI"
	PaymentMethodBankTransfer PaymentMethod = "Bank Transfer"
	PaymentMethodCard         PaymentMethod = "Card"
	PaymentMethodOther        PaymentMethod = "Other"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodUPI,
	PaymentMethodBankTransfer,
	PaymentMethodCard,
	PaymentMethodOther,
}

func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is an accepted payment method.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMethod accepts the canonical label case-insensitively.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validPaymentMethods {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

// PaymentMethods returns the accepted methods in display order.
func PaymentMethods() []PaymentMethod {
	out := make([]PaymentMethod, len(validPaymentMethods))
	copy(out, validPaymentMethods)
	return out
}

// PaymentMethodNames returns the accepted labels for error messages.
func PaymentMethodNames() []string {
	out := make([]string, 0, len(validPaymentMethods))
	for _, m := range validPaymentMethods {
		out = append(out, string(m))
	}
	return out
}
