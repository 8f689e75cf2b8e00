package analytics

import (
	"time"

	"chainsight/internal/models"
)

// WindowAggregates holds the balance-sheet style aggregates a cash-cycle
// computation needs for one window. They can be produced by accessor
// pushdown or locally via AggregateWindow from raw rows.
type WindowAggregates struct {
	AvgInventoryValue float64 `json:"avg_inventory_value"`
	COGS              float64 `json:"cogs"`
	AvgARBalance      float64 `json:"avg_ar_balance"`
	Revenue           float64 `json:"revenue"`
	AvgAPBalance      float64 `json:"avg_ap_balance"`
	Purchases         float64 `json:"purchases"`
}

// CashCycle is the DIO/DSO/DPO/CCC result for one window
type CashCycle struct {
	DIO Metric `json:"dio"`
	DSO Metric `json:"dso"`
	DPO Metric `json:"dpo"`
	CCC Metric `json:"ccc"`
}

// ComputeCashCycle derives the cash conversion cycle from window aggregates.
// Zero-denominator ratios come back as undefined metrics; CCC is undefined
// whenever any of its components is.
func ComputeCashCycle(agg WindowAggregates) CashCycle {
	cc := CashCycle{
		DIO: ratio(365*agg.AvgInventoryValue, agg.COGS, "COGS"),
		DSO: ratio(365*agg.AvgARBalance, agg.Revenue, "revenue"),
		DPO: ratio(365*agg.AvgAPBalance, agg.COGS, "COGS"),
	}
	if !cc.DIO.Defined || !cc.DSO.Defined || !cc.DPO.Defined {
		cc.CCC = UndefinedMetric("one or more components undefined")
		return cc
	}
	cc.CCC = DefinedMetric(cc.DIO.Value + cc.DSO.Value - cc.DPO.Value)
	return cc
}

// AggregateWindow computes WindowAggregates locally from raw rows, for
// accessors that cannot push aggregation down. Inventory value is the
// average across snapshot dates of qty-on-hand priced at unit cost; AR/AP
// balances are the amounts still outstanding at the window end; COGS is
// revenue minus margin.
func AggregateWindow(
	products []models.Product,
	snapshots []models.InventorySnapshot,
	sales []models.SalesTransaction,
	ar []models.ARLedgerEntry,
	ap []models.APLedgerEntry,
	orders []models.PurchaseOrder,
	from, to time.Time,
) WindowAggregates {
	unitCost := make(map[string]float64, len(products))
	for _, p := range products {
		unitCost[p.ID] = p.UnitCost
	}

	valueByDate := make(map[time.Time]float64)
	for _, s := range snapshots {
		if s.AsOfDate.Before(from) || s.AsOfDate.After(to) {
			continue
		}
		valueByDate[s.AsOfDate] += float64(s.QtyOnHand) * unitCost[s.ProductID]
	}
	var agg WindowAggregates
	if len(valueByDate) > 0 {
		var total float64
		for _, v := range valueByDate {
			total += v
		}
		agg.AvgInventoryValue = total / float64(len(valueByDate))
	}

	for _, t := range sales {
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		agg.Revenue += t.Revenue
		agg.COGS += t.Revenue - t.Margin
	}

	for _, e := range ar {
		if outstandingAt(e.InvoiceDate, e.PaidDate, to) {
			agg.AvgARBalance += e.Amount
		}
	}
	for _, e := range ap {
		if outstandingAt(e.InvoiceDate, e.PaidDate, to) {
			agg.AvgAPBalance += e.Amount
		}
	}

	for _, po := range orders {
		if po.OrderDate.Before(from) || po.OrderDate.After(to) {
			continue
		}
		agg.Purchases += po.Value
	}
	return agg
}

func outstandingAt(invoiced time.Time, paid *time.Time, at time.Time) bool {
	if invoiced.After(at) {
		return false
	}
	return paid == nil || paid.After(at)
}

// CCCDeltas are the target day improvements for a what-if simulation
type CCCDeltas struct {
	DIOReduction float64 `json:"dio_reduction"`
	DSOReduction float64 `json:"dso_reduction"`
	DPOIncrease  float64 `json:"dpo_increase"`
}

// CCCSimulation is the result of a cash-cycle improvement simulation
type CCCSimulation struct {
	Current        CashCycle       `json:"current"`
	Target         CashCycle       `json:"target"`
	DailyRevenue   float64         `json:"daily_revenue"`
	TotalDaysSaved float64         `json:"total_days_saved"`
	CashFreed      float64         `json:"cash_freed"`
	Breakdown      []CCCLeverImpact `json:"breakdown"`
}

// CCCLeverImpact is the cash contribution of one simulated lever
type CCCLeverImpact struct {
	Lever     string  `json:"lever"`
	DaysSaved float64 `json:"days_saved"`
	Cash      float64 `json:"cash"`
}

// SimulateCCCImprovement applies target deltas to a computed cash cycle and
// returns the cash freed at the window's revenue run rate. Deltas that would
// push any component below floor are rejected with InvalidInputError.
func SimulateCCCImprovement(current CashCycle, agg WindowAggregates, deltas CCCDeltas, floor float64) (*CCCSimulation, error) {
	if deltas.DIOReduction < 0 {
		return nil, invalidInput("dio_reduction", "must be non-negative, got %.2f", deltas.DIOReduction)
	}
	if deltas.DSOReduction < 0 {
		return nil, invalidInput("dso_reduction", "must be non-negative, got %.2f", deltas.DSOReduction)
	}
	if deltas.DPOIncrease < 0 {
		return nil, invalidInput("dpo_increase", "must be non-negative, got %.2f", deltas.DPOIncrease)
	}
	if !current.CCC.Defined {
		return nil, invalidInput("window", "cash cycle is undefined for the window: %s", current.CCC.Reason)
	}
	if current.DIO.Value-deltas.DIOReduction < floor {
		return nil, invalidInput("dio_reduction", "would push DIO below %.2f", floor)
	}
	if current.DSO.Value-deltas.DSOReduction < floor {
		return nil, invalidInput("dso_reduction", "would push DSO below %.2f", floor)
	}

	target := CashCycle{
		DIO: DefinedMetric(current.DIO.Value - deltas.DIOReduction),
		DSO: DefinedMetric(current.DSO.Value - deltas.DSOReduction),
		DPO: DefinedMetric(current.DPO.Value + deltas.DPOIncrease),
	}
	target.CCC = DefinedMetric(target.DIO.Value + target.DSO.Value - target.DPO.Value)

	daily := agg.Revenue / 365
	saved := current.CCC.Value - target.CCC.Value
	return &CCCSimulation{
		Current:        current,
		Target:         target,
		DailyRevenue:   daily,
		TotalDaysSaved: saved,
		CashFreed:      saved * daily,
		Breakdown: []CCCLeverImpact{
			{Lever: "reduce_dio", DaysSaved: deltas.DIOReduction, Cash: deltas.DIOReduction * daily},
			{Lever: "reduce_dso", DaysSaved: deltas.DSOReduction, Cash: deltas.DSOReduction * daily},
			{Lever: "increase_dpo", DaysSaved: deltas.DPOIncrease, Cash: deltas.DPOIncrease * daily},
		},
	}, nil
}
