package store

import (
	"context"
	"fmt"
	"time"

	"chainsight/internal/analytics"
)

// WindowAggregates pushes the cash-cycle aggregation down to the database so
// the raw rows never cross the wire. AR/AP balances are the amounts still
// outstanding at the window end, matching the local aggregation semantics.
func (s *Store) WindowAggregates(ctx context.Context, from, to time.Time) (analytics.WindowAggregates, error) {
	var agg analytics.WindowAggregates

	err := s.db.GetContext(ctx, &agg.AvgInventoryValue, `
		SELECT COALESCE(AVG(day_value), 0) FROM (
			SELECT i.as_of_date, SUM(i.qty_on_hand * p.unit_cost) AS day_value
			FROM inventory_snapshots i
			JOIN products p ON p.product_id = i.product_id
			WHERE i.as_of_date BETWEEN $1 AND $2
			GROUP BY i.as_of_date
		) daily`, from, to)
	if err != nil {
		return agg, fmt.Errorf("aggregate inventory value: %w", err)
	}

	var sales struct {
		Revenue float64 `db:"revenue"`
		COGS    float64 `db:"cogs"`
	}
	err = s.db.GetContext(ctx, &sales, `
		SELECT COALESCE(SUM(revenue), 0) AS revenue,
		       COALESCE(SUM(revenue - margin), 0) AS cogs
		FROM sales_transactions
		WHERE transaction_date BETWEEN $1 AND $2`, from, to)
	if err != nil {
		return agg, fmt.Errorf("aggregate sales: %w", err)
	}
	agg.Revenue = sales.Revenue
	agg.COGS = sales.COGS

	err = s.db.GetContext(ctx, &agg.AvgARBalance, `
		SELECT COALESCE(SUM(amount), 0) FROM ar_ledger
		WHERE invoice_date <= $1 AND (paid_date IS NULL OR paid_date > $1)`, to)
	if err != nil {
		return agg, fmt.Errorf("aggregate receivables: %w", err)
	}

	err = s.db.GetContext(ctx, &agg.AvgAPBalance, `
		SELECT COALESCE(SUM(amount), 0) FROM ap_ledger
		WHERE invoice_date <= $1 AND (paid_date IS NULL OR paid_date > $1)`, to)
	if err != nil {
		return agg, fmt.Errorf("aggregate payables: %w", err)
	}

	err = s.db.GetContext(ctx, &agg.Purchases, `
		SELECT COALESCE(SUM(value), 0) FROM purchase_orders
		WHERE order_date BETWEEN $1 AND $2`, from, to)
	if err != nil {
		return agg, fmt.Errorf("aggregate purchases: %w", err)
	}

	return agg, nil
}
