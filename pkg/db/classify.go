package db

import (
	"errors"

	"gorm.io/gorm"

	pkgerrors "github.com/inkhouse/backoffice/pkg/errors"
)

// Ceiling constraints backing the guarded amount_paid increments.
var paidCeilingConstraints = []string{
	"orders_amount_paid_le_total",
	"customer_previous_balances_paid_le_total",
}

// Classify converts a raw store failure into a typed error. Typed errors pass
// through untouched so a service can return Classify(err, ...) from the
// outside of a transaction without re-wrapping its own domain errors.
// Constraint failures that slip past service validation still map to the
// error a caller would have seen: a missing parent row is NOT_FOUND and a
// breached paid-amount ceiling is OVERPAYMENT.
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), IsForeignKeyViolation(err):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, message)
	case isPaidCeilingViolation(err):
		return pkgerrors.Wrap(pkgerrors.CodeOverpayment, err, message)
	case IsCheckViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
	case IsUnavailable(err):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
	}
}

func isPaidCeilingViolation(err error) bool {
	for _, name := range paidCeilingConstraints {
		if IsCheckViolation(err, name) {
			return true
		}
	}
	return false
}
