// Package ledger holds the input rules shared by every payment-bearing
// operation: order payments, previous-balance payments and settlements.
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkhouse/backoffice/pkg/enums"
	pkgerrors "github.com/inkhouse/backoffice/pkg/errors"
)

// ValidateAmount requires a positive amount with at most two decimal places.
func ValidateAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be greater than zero", field).
			WithDetails(map[string]string{field: "must be > 0"})
	}
	if !amount.Equal(amount.Round(2)) {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s supports at most two decimal places", field).
			WithDetails(map[string]string{field: "max 2 decimal places"})
	}
	return nil
}

// ParseMethod resolves a payment method name, reporting failures against field.
func ParseMethod(field, value string) (enums.PaymentMethod, error) {
	method, err := enums.ParsePaymentMethod(value)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
			WithDetails(map[string]string{field: "must be one of " + strings.Join(enums.PaymentMethodNames(), ", ")})
	}
	return method, nil
}

// PaymentDate defaults a missing date to now and normalizes to UTC.
func PaymentDate(value *time.Time, now time.Time) time.Time {
	if value == nil || value.IsZero() {
		return now
	}
	return value.UTC()
}

// Trimmed drops surrounding whitespace and maps blank text to nil.
func Trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
