package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary  = "Summary"
	SheetOrders   = "Orders"
	SheetPayments = "Payments"

	dateLayout = "2006-01-02"
)

var (
	orderHeaders = []any{
		"order_number", "status", "total_amount", "amount_paid", "balance_amount",
		"estimated_delivery_date", "created_at", "notes",
	}
	paymentHeaders = []any{
		"ledger", "reference", "amount", "payment_method", "payment_date", "notes",
	}
)

// WriteStatementXLSX renders the statement as a workbook with Summary,
// Orders and Payments sheets.
func WriteStatementXLSX(w io.Writer, statement *Statement) error {
	if statement == nil {
		return fmt.Errorf("statement required")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	if err := writeSummary(f, statement); err != nil {
		return err
	}
	if err := writeOrders(f, statement); err != nil {
		return err
	}
	if err := writePayments(f, statement); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, st *Statement) error {
	s := st.Summary
	rows := [][]any{
		{"customer_id", st.Customer.ID.String()},
		{"display_name", st.Customer.DisplayName},
		{"generated_at", st.GeneratedAt.UTC().Format(time.RFC3339)},
		{"previous_balance_total", s.PreviousBalanceTotal.StringFixed(2)},
		{"previous_balance_paid", s.PreviousBalancePaid.StringFixed(2)},
		{"previous_balance_remaining", s.PreviousBalanceRemaining.StringFixed(2)},
		{"pending_orders_amount", s.PendingOrdersAmount.StringFixed(2)},
		{"pending_orders_count", s.PendingOrdersCount},
		{"total_balance", s.TotalBalance.StringFixed(2)},
	}
	return setRows(f, SheetSummary, rows)
}

func writeOrders(f *excelize.File, st *Statement) error {
	if _, err := f.NewSheet(SheetOrders); err != nil {
		return fmt.Errorf("create orders sheet: %w", err)
	}
	rows := make([][]any, 0, len(st.Orders)+1)
	rows = append(rows, orderHeaders)
	for _, o := range st.Orders {
		rows = append(rows, []any{
			o.OrderNumber,
			o.Status.String(),
			o.TotalAmount.StringFixed(2),
			o.AmountPaid.StringFixed(2),
			o.BalanceAmount.StringFixed(2),
			formatDate(o.EstimatedDeliveryDate),
			o.CreatedAt.UTC().Format(dateLayout),
			deref(o.Notes),
		})
	}
	return setRows(f, SheetOrders, rows)
}

func writePayments(f *excelize.File, st *Statement) error {
	if _, err := f.NewSheet(SheetPayments); err != nil {
		return fmt.Errorf("create payments sheet: %w", err)
	}
	numbers := make(map[uuid.UUID]string, len(st.Orders))
	for _, o := range st.Orders {
		numbers[o.ID] = o.OrderNumber
	}

	rows := make([][]any, 0, len(st.OrderPayments)+len(st.BalancePayments)+1)
	rows = append(rows, paymentHeaders)
	for _, p := range st.OrderPayments {
		rows = append(rows, []any{
			"order",
			numbers[p.OrderID],
			p.Amount.StringFixed(2),
			p.PaymentMethod.String(),
			p.PaymentDate.UTC().Format(dateLayout),
			deref(p.Notes),
		})
	}
	for _, p := range st.BalancePayments {
		rows = append(rows, []any{
			"previous_balance",
			p.PreviousBalanceID.String(),
			p.Amount.StringFixed(2),
			p.PaymentMethod.String(),
			p.PaymentDate.UTC().Format(dateLayout),
			deref(p.Notes),
		})
	}
	return setRows(f, SheetPayments, rows)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
