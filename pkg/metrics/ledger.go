package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// LedgerMetrics counts ledger mutations. A nil *LedgerMetrics is a no-op.
type LedgerMetrics struct {
	payments    *prometheus.CounterVec
	paidAmount  *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	orders      prometheus.Counter
}

func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_payments_recorded_total",
		Help: "Payment rows written, by target ledger and method.",
	}, []string{"target", "method"})
	paidAmount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_payment_amount_total",
		Help: "Sum of recorded payment amounts, by target ledger.",
	}, []string{"target"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_rejected_total",
		Help: "Ledger operations rejected, by operation and error code.",
	}, []string{"operation", "code"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_status_transitions_total",
		Help: "Order status transitions, by destination status.",
	}, []string{"to"})
	orders := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_orders_created_total",
		Help: "Orders created.",
	})
	reg.MustRegister(payments, paidAmount, rejected, transitions, orders)
	return &LedgerMetrics{
		payments:    payments,
		paidAmount:  paidAmount,
		rejected:    rejected,
		transitions: transitions,
		orders:      orders,
	}
}

func (m *LedgerMetrics) PaymentRecorded(target, method string, amount decimal.Decimal) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(target), normalizeLabel(method)).Inc()
	m.paidAmount.WithLabelValues(normalizeLabel(target)).Add(amount.InexactFloat64())
}

func (m *LedgerMetrics) Rejected(operation, code string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}

func (m *LedgerMetrics) StatusTransition(to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(to)).Inc()
}

func (m *LedgerMetrics) OrderCreated() {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.Inc()
}
