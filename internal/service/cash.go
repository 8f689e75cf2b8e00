package service

import (
	"context"
	"time"

	"chainsight/internal/analytics"
	"chainsight/internal/models"
)

// CashCycleReport is the cash conversion cycle for one window with the
// aggregates it was derived from
type CashCycleReport struct {
	Window     Window                     `json:"window"`
	CashCycle  analytics.CashCycle        `json:"cash_cycle"`
	Aggregates analytics.WindowAggregates `json:"aggregates"`
}

// windowAggregates fetches the cash-cycle aggregates, pushing the computation
// down when the accessor supports it
func (e *Engine) windowAggregates(ctx context.Context, w Window) (analytics.WindowAggregates, error) {
	if agg, ok := e.tab.(WindowAggregator); ok {
		result, err := agg.WindowAggregates(ctx, w.From, w.To)
		if err != nil {
			return analytics.WindowAggregates{}, accessErr("window aggregates", err)
		}
		return result, nil
	}

	products, err := e.tab.Products(ctx)
	if err != nil {
		return analytics.WindowAggregates{}, accessErr("products", err)
	}
	snapshots, err := e.tab.InventorySnapshots(ctx, w.From, w.To)
	if err != nil {
		return analytics.WindowAggregates{}, accessErr("inventory snapshots", err)
	}
	sales, err := e.tab.SalesTransactions(ctx, w.From, w.To)
	if err != nil {
		return analytics.WindowAggregates{}, accessErr("sales transactions", err)
	}
	ar, err := e.tab.ARLedger(ctx)
	if err != nil {
		return analytics.WindowAggregates{}, accessErr("ar ledger", err)
	}
	ap, err := e.tab.APLedger(ctx)
	if err != nil {
		return analytics.WindowAggregates{}, accessErr("ap ledger", err)
	}
	orders, err := e.tab.PurchaseOrders(ctx, w.From, w.To)
	if err != nil {
		return analytics.WindowAggregates{}, accessErr("purchase orders", err)
	}

	return analytics.AggregateWindow(products, snapshots, sales, ar, ap, orders, w.From, w.To), nil
}

// CashCycle computes DIO, DSO, DPO and CCC for the window
func (e *Engine) CashCycle(ctx context.Context, from, to time.Time) (report *CashCycleReport, err error) {
	ctx, done := e.startOp(ctx, "cash_cycle")
	defer func() { done(err) }()

	w := e.resolveWindow(from, to)
	key := windowKey("cash_cycle", w)
	var cached CashCycleReport
	if e.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	agg, err := e.windowAggregates(ctx, w)
	if err != nil {
		return nil, err
	}

	report = &CashCycleReport{
		Window:     w,
		CashCycle:  analytics.ComputeCashCycle(agg),
		Aggregates: agg,
	}
	e.cacheSet(ctx, key, report)
	return report, nil
}

// SimulateCashCycle applies what-if deltas to the window's cash cycle
func (e *Engine) SimulateCashCycle(ctx context.Context, from, to time.Time, deltas analytics.CCCDeltas) (sim *analytics.CCCSimulation, err error) {
	ctx, done := e.startOp(ctx, "simulate_cash_cycle")
	defer func() { done(err) }()

	w := e.resolveWindow(from, to)
	agg, err := e.windowAggregates(ctx, w)
	if err != nil {
		return nil, err
	}

	current := analytics.ComputeCashCycle(agg)
	return analytics.SimulateCCCImprovement(current, agg, deltas, e.opts.SimulationFloor)
}

// ReceivablesAging buckets outstanding receivables by age
func (e *Engine) ReceivablesAging(ctx context.Context, asOf time.Time) (report *analytics.ARAgingReport, err error) {
	ctx, done := e.startOp(ctx, "receivables_aging")
	defer func() { done(err) }()

	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	entries, err := e.tab.ARLedger(ctx)
	if err != nil {
		return nil, accessErr("ar ledger", err)
	}
	aged := analytics.AgeReceivables(entries, asOf)
	return &aged, nil
}

// DSOAnalysis ranks customers by invoice-weighted days-to-pay
func (e *Engine) DSOAnalysis(ctx context.Context, limit int) (report *analytics.DSOAnalysis, err error) {
	ctx, done := e.startOp(ctx, "dso_analysis")
	defer func() { done(err) }()

	entries, err := e.tab.ARLedger(ctx)
	if err != nil {
		return nil, accessErr("ar ledger", err)
	}
	result := analytics.AnalyzeDSO(entries, limit)
	return &result, nil
}

// DPOAnalysis ranks suppliers by invoice-weighted days-to-pay
func (e *Engine) DPOAnalysis(ctx context.Context, limit int) (report *analytics.DPOAnalysis, err error) {
	ctx, done := e.startOp(ctx, "dpo_analysis")
	defer func() { done(err) }()

	entries, err := e.tab.APLedger(ctx)
	if err != nil {
		return nil, accessErr("ap ledger", err)
	}
	result := analytics.AnalyzeDPO(entries, limit)
	return &result, nil
}

// CarryingCost estimates the annual cost of holding the current inventory.
// A zero holdingRate falls back to the configured default.
func (e *Engine) CarryingCost(ctx context.Context, holdingRate float64) (est *analytics.CarryingCostEstimate, err error) {
	ctx, done := e.startOp(ctx, "carrying_cost")
	defer func() { done(err) }()

	if holdingRate == 0 {
		holdingRate = e.opts.HoldingRate
	}
	w := e.resolveWindow(time.Time{}, time.Time{})
	products, snapshots, err := e.productsAndSnapshots(ctx, w)
	if err != nil {
		return nil, err
	}
	return analytics.EstimateCarryingCost(products, snapshots, holdingRate)
}

// WorkingCapital ranks products by cash trapped in inventory
func (e *Engine) WorkingCapital(ctx context.Context, limit int) (summary *analytics.WorkingCapitalSummary, err error) {
	ctx, done := e.startOp(ctx, "working_capital")
	defer func() { done(err) }()

	w := e.resolveWindow(time.Time{}, time.Time{})
	products, snapshots, err := e.productsAndSnapshots(ctx, w)
	if err != nil {
		return nil, err
	}
	result := analytics.SummarizeWorkingCapital(products, snapshots, limit)
	return &result, nil
}

// Pareto reports how concentrated revenue or inventory value is across SKUs
func (e *Engine) Pareto(ctx context.Context, from, to time.Time, dimension string, limit int) (report *analytics.ParetoReport, err error) {
	ctx, done := e.startOp(ctx, "pareto")
	defer func() { done(err) }()

	w := e.resolveWindow(from, to)
	products, snapshots, err := e.productsAndSnapshots(ctx, w)
	if err != nil {
		return nil, err
	}
	sales, err := e.tab.SalesTransactions(ctx, w.From, w.To)
	if err != nil {
		return nil, accessErr("sales transactions", err)
	}
	return analytics.ParetoAnalysis(products, sales, snapshots, dimension, limit)
}

// Turnover computes per-product inventory turnover for the window
func (e *Engine) Turnover(ctx context.Context, from, to time.Time, limit int) (entries []analytics.TurnoverEntry, err error) {
	ctx, done := e.startOp(ctx, "turnover")
	defer func() { done(err) }()

	w := e.resolveWindow(from, to)
	products, snapshots, err := e.productsAndSnapshots(ctx, w)
	if err != nil {
		return nil, err
	}
	sales, err := e.tab.SalesTransactions(ctx, w.From, w.To)
	if err != nil {
		return nil, accessErr("sales transactions", err)
	}
	return analytics.InventoryTurnover(products, snapshots, sales, limit), nil
}

// ShipmentTracking summarizes inbound freight by status, delay and cost
func (e *Engine) ShipmentTracking(ctx context.Context) (summary *analytics.ShipmentSummary, err error) {
	ctx, done := e.startOp(ctx, "shipment_tracking")
	defer func() { done(err) }()

	shipments, err := e.tab.Shipments(ctx)
	if err != nil {
		return nil, accessErr("shipments", err)
	}
	result := analytics.SummarizeShipments(shipments)
	return &result, nil
}

func (e *Engine) productsAndSnapshots(ctx context.Context, w Window) ([]models.Product, []models.InventorySnapshot, error) {
	products, err := e.tab.Products(ctx)
	if err != nil {
		return nil, nil, accessErr("products", err)
	}
	snapshots, err := e.tab.InventorySnapshots(ctx, w.From, w.To)
	if err != nil {
		return nil, nil, accessErr("inventory snapshots", err)
	}
	return products, snapshots, nil
}
