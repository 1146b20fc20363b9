package migrate

import (
	"context"
	"fmt"

	"github.com/inkhouse/backoffice/pkg/db"
)

// LedgerTables are the tables the ledger migrations own, parents first.
var LedgerTables = []string{
	"customers",
	"orders",
	"order_payments",
	"customer_previous_balances",
	"customer_balance_payments",
	"activity_log_entries",
}

// TableStatus describes one ledger table as found in the connected database.
type TableStatus struct {
	Table   string
	Present bool
	Rows    int64
}

// LedgerStatus reports whether each ledger table exists and how many rows it
// holds. A missing table is reported, not treated as an error.
func LedgerStatus(ctx context.Context, client *db.Client) ([]TableStatus, error) {
	migrator := client.DB().WithContext(ctx).Migrator()
	out := make([]TableStatus, 0, len(LedgerTables))
	for _, table := range LedgerTables {
		status := TableStatus{Table: table}
		if migrator.HasTable(table) {
			status.Present = true
			if err := client.Raw(ctx, "SELECT COUNT(*) FROM "+table).Scan(&status.Rows).Error; err != nil {
				return nil, fmt.Errorf("count %s: %w", table, err)
			}
		}
		out = append(out, status)
	}
	return out, nil
}
