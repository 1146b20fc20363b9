package enums

import "fmt"

// ActivityAction is the verb recorded on every activity log entry.
type ActivityAction string

const (
	ActivityOrderCreated              ActivityAction = "order_created"
	ActivityPaymentAdded              ActivityAction = "payment_added"
	ActivityStatusChanged             ActivityAction = "status_changed"
	ActivityOrderDeleted              ActivityAction = "order_deleted"
	ActivityOrderAutoDelivered        ActivityAction = "order_auto_delivered"
	ActivityPreviousBalanceAdded      ActivityAction = "previous_balance_added"
	ActivityBalancePaymentAdded       ActivityAction = "balance_payment_added"
	ActivityPreviousBalanceSuperseded ActivityAction = "previous_balance_superseded"
	ActivityCustomerCreated           ActivityAction = "customer_created"
	ActivityCustomerDeactivated       ActivityAction = "customer_deactivated"
	ActivityCustomerSettlementApplied ActivityAction = "customer_settlement_applied"
	ActivityLedgerRepaired            ActivityAction = "ledger_repaired"
)

var validActivityActions = []ActivityAction{
	ActivityOrderCreated,
	ActivityPaymentAdded,
	ActivityStatusChanged,
	ActivityOrderDeleted,
	ActivityOrderAutoDelivered,
	ActivityPreviousBalanceAdded,
	ActivityBalancePaymentAdded,
	ActivityPreviousBalanceSuperseded,
	ActivityCustomerCreated,
	ActivityCustomerDeactivated,
	ActivityCustomerSettlementApplied,
	ActivityLedgerRepaired,
}

func (a ActivityAction) String() string {
	return string(a)
}

// IsValid reports whether the value matches a known activity verb.
func (a ActivityAction) IsValid() bool {
	for _, candidate := range validActivityActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActivityAction converts raw input into ActivityAction.
func ParseActivityAction(value string) (ActivityAction, error) {
	for _, candidate := range validActivityActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity action %q", value)
}
