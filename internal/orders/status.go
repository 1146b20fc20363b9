package orders

import (
	"github.com/inkhouse/backoffice/pkg/db/models"
	"github.com/inkhouse/backoffice/pkg/enums"
	pkgerrors "github.com/inkhouse/backoffice/pkg/errors"
)

// ValidateTransition enforces the linear lifecycle. Only the single next
// status is reachable, and delivery requires the order to be fully paid.
func ValidateTransition(order models.Order, target enums.OrderStatus) error {
	if !target.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", target)
	}
	next, ok := order.Status.Next()
	if !ok || next != target {
		return pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "cannot move order from %s to %s", order.Status, target).
			WithDetails(map[string]string{"from": order.Status.String(), "to": target.String()})
	}
	if target == enums.OrderStatusDelivered && !order.FullyPaid() {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order must be fully paid before delivery").
			WithDetails(map[string]string{
				"amount_paid":  order.AmountPaid.StringFixed(2),
				"total_amount": order.TotalAmount.StringFixed(2),
			})
	}
	return nil
}

// AutoDeliverTarget reports whether a payment that fully settled a completed
// order should move it to delivered.
func AutoDeliverTarget(order models.Order) (enums.OrderStatus, bool) {
	if order.Status == enums.OrderStatusCompleted && order.FullyPaid() {
		return enums.OrderStatusDelivered, true
	}
	return "", false
}
