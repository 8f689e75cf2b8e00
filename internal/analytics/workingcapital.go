package analytics

import (
	"sort"
	"time"

	"chainsight/internal/models"
)

// ARAgingBucket is one receivables aging band
type ARAgingBucket struct {
	Bucket      string  `json:"bucket"`
	Invoices    int     `json:"invoices"`
	TotalAmount float64 `json:"total_amount"`
	Outstanding float64 `json:"outstanding"`
}

// ARAgingReport summarizes receivables by age
type ARAgingReport struct {
	AsOf             time.Time       `json:"as_of"`
	Buckets          []ARAgingBucket `json:"buckets"`
	TotalOutstanding float64         `json:"total_outstanding"`
}

var agingBucketNames = []string{"0-30d", "31-60d", "61-90d", "90+d"}

func agingBucket(days int) string {
	switch {
	case days <= 30:
		return agingBucketNames[0]
	case days <= 60:
		return agingBucketNames[1]
	case days <= 90:
		return agingBucketNames[2]
	default:
		return agingBucketNames[3]
	}
}

// AgeReceivables buckets AR entries by days since invoice at asOf. Paid
// invoices count toward bucket totals but not toward outstanding.
func AgeReceivables(entries []models.ARLedgerEntry, asOf time.Time) ARAgingReport {
	byBucket := make(map[string]*ARAgingBucket, len(agingBucketNames))
	for _, name := range agingBucketNames {
		byBucket[name] = &ARAgingBucket{Bucket: name}
	}

	report := ARAgingReport{AsOf: asOf}
	for _, e := range entries {
		if e.InvoiceDate.After(asOf) {
			continue
		}
		age := int(asOf.Sub(e.InvoiceDate).Hours() / 24)
		b := byBucket[agingBucket(age)]
		b.Invoices++
		b.TotalAmount += e.Amount
		if outstandingAt(e.InvoiceDate, e.PaidDate, asOf) {
			b.Outstanding += e.Amount
			report.TotalOutstanding += e.Amount
		}
	}
	for _, name := range agingBucketNames {
		report.Buckets = append(report.Buckets, *byBucket[name])
	}
	return report
}

// CustomerDSO is one customer's invoice-weighted days sales outstanding
type CustomerDSO struct {
	CustomerID  string  `json:"customer_id"`
	WeightedDSO float64 `json:"weighted_dso"`
	Invoices    int     `json:"invoices"`
	TotalBilled float64 `json:"total_billed"`
}

// DSOAnalysis breaks days sales outstanding down by paying customer
type DSOAnalysis struct {
	OverallDSO Metric        `json:"overall_dso"`
	ByCustomer []CustomerDSO `json:"by_customer"`
}

// AnalyzeDSO computes invoice-weighted days-to-pay overall and per customer.
// Only paid invoices carry a days-to-pay; with none the overall figure is
// undefined. Slowest payers first, ties by customer id.
func AnalyzeDSO(entries []models.ARLedgerEntry, limit int) DSOAnalysis {
	byCustomer := make(map[string]*paidAccumulator)
	total := &paidAccumulator{}
	for _, e := range entries {
		if e.PaidDate == nil {
			continue
		}
		days := e.PaidDate.Sub(e.InvoiceDate).Hours() / 24
		accumulatePaid(byCustomer, e.CustomerID, days, e.Amount)
		total.add(days, e.Amount)
	}

	result := DSOAnalysis{OverallDSO: UndefinedMetric("no paid receivables on record")}
	if total.amount > 0 {
		result.OverallDSO = DefinedMetric(total.weightedDays / total.amount)
	}
	for id, a := range byCustomer {
		if a.amount == 0 {
			continue
		}
		result.ByCustomer = append(result.ByCustomer, CustomerDSO{
			CustomerID:  id,
			WeightedDSO: a.weightedDays / a.amount,
			Invoices:    a.invoices,
			TotalBilled: a.amount,
		})
	}
	sort.Slice(result.ByCustomer, func(i, j int) bool {
		if result.ByCustomer[i].WeightedDSO != result.ByCustomer[j].WeightedDSO {
			return result.ByCustomer[i].WeightedDSO > result.ByCustomer[j].WeightedDSO
		}
		return result.ByCustomer[i].CustomerID < result.ByCustomer[j].CustomerID
	})
	if limit > 0 && len(result.ByCustomer) > limit {
		result.ByCustomer = result.ByCustomer[:limit]
	}
	return result
}

// SupplierDPO is one supplier's invoice-weighted days payables outstanding
type SupplierDPO struct {
	SupplierID  string  `json:"supplier_id"`
	WeightedDPO float64 `json:"weighted_dpo"`
	Invoices    int     `json:"invoices"`
	TotalPaid   float64 `json:"total_paid"`
}

// DPOAnalysis breaks days payables outstanding down by supplier
type DPOAnalysis struct {
	OverallDPO Metric        `json:"overall_dpo"`
	BySupplier []SupplierDPO `json:"by_supplier"`
}

// AnalyzeDPO mirrors AnalyzeDSO on the payables side: invoice-weighted
// days-to-pay overall and per supplier, longest-held payables first.
func AnalyzeDPO(entries []models.APLedgerEntry, limit int) DPOAnalysis {
	bySupplier := make(map[string]*paidAccumulator)
	total := &paidAccumulator{}
	for _, e := range entries {
		if e.PaidDate == nil {
			continue
		}
		days := e.PaidDate.Sub(e.InvoiceDate).Hours() / 24
		accumulatePaid(bySupplier, e.SupplierID, days, e.Amount)
		total.add(days, e.Amount)
	}

	result := DPOAnalysis{OverallDPO: UndefinedMetric("no paid payables on record")}
	if total.amount > 0 {
		result.OverallDPO = DefinedMetric(total.weightedDays / total.amount)
	}
	for id, a := range bySupplier {
		if a.amount == 0 {
			continue
		}
		result.BySupplier = append(result.BySupplier, SupplierDPO{
			SupplierID:  id,
			WeightedDPO: a.weightedDays / a.amount,
			Invoices:    a.invoices,
			TotalPaid:   a.amount,
		})
	}
	sort.Slice(result.BySupplier, func(i, j int) bool {
		if result.BySupplier[i].WeightedDPO != result.BySupplier[j].WeightedDPO {
			return result.BySupplier[i].WeightedDPO > result.BySupplier[j].WeightedDPO
		}
		return result.BySupplier[i].SupplierID < result.BySupplier[j].SupplierID
	})
	if limit > 0 && len(result.BySupplier) > limit {
		result.BySupplier = result.BySupplier[:limit]
	}
	return result
}

type paidAccumulator struct {
	weightedDays float64
	amount       float64
	invoices     int
}

func (a *paidAccumulator) add(days, amount float64) {
	a.weightedDays += days * amount
	a.amount += amount
	a.invoices++
}

func accumulatePaid(accs map[string]*paidAccumulator, key string, days, amount float64) {
	a := accs[key]
	if a == nil {
		a = &paidAccumulator{}
		accs[key] = a
	}
	a.add(days, amount)
}

// CarryingCostEstimate prices holding the current inventory for a year
type CarryingCostEstimate struct {
	TotalInventoryValue float64 `json:"total_inventory_value"`
	HoldingRate         float64 `json:"holding_rate"`
	AnnualCarryingCost  float64 `json:"annual_carrying_cost"`
	MonthlyCarryingCost float64 `json:"monthly_carrying_cost"`
}

// EstimateCarryingCost applies a holding-rate percentage to the latest
// inventory value. A non-positive rate is rejected.
func EstimateCarryingCost(products []models.Product, snapshots []models.InventorySnapshot, holdingRate float64) (*CarryingCostEstimate, error) {
	if holdingRate <= 0 {
		return nil, invalidInput("holding_rate", "must be positive, got %.3f", holdingRate)
	}
	var total float64
	for _, pos := range LatestPositions(snapshots) {
		total += float64(pos.QtyOnHand) * unitCostOf(products, pos.ProductID)
	}
	return &CarryingCostEstimate{
		TotalInventoryValue: total,
		HoldingRate:         holdingRate,
		AnnualCarryingCost:  total * holdingRate,
		MonthlyCarryingCost: total * holdingRate / 12,
	}, nil
}

// TrappedCashItem is one product's share of capital tied up in stock
type TrappedCashItem struct {
	ProductID   string  `json:"product_id"`
	QtyOnHand   int     `json:"qty_on_hand"`
	TrappedCash float64 `json:"trapped_cash"`
}

// WorkingCapitalSummary ranks products by cash trapped in inventory
type WorkingCapitalSummary struct {
	TotalTrappedCash float64           `json:"total_trapped_cash"`
	Items            []TrappedCashItem `json:"items"`
}

// SummarizeWorkingCapital values the latest position per product at unit
// cost and returns the list sorted by trapped cash descending, ties by id.
func SummarizeWorkingCapital(products []models.Product, snapshots []models.InventorySnapshot, limit int) WorkingCapitalSummary {
	var summary WorkingCapitalSummary
	for _, pos := range LatestPositions(snapshots) {
		cash := float64(pos.QtyOnHand) * unitCostOf(products, pos.ProductID)
		summary.TotalTrappedCash += cash
		summary.Items = append(summary.Items, TrappedCashItem{
			ProductID:   pos.ProductID,
			QtyOnHand:   pos.QtyOnHand,
			TrappedCash: cash,
		})
	}
	sort.Slice(summary.Items, func(i, j int) bool {
		if summary.Items[i].TrappedCash != summary.Items[j].TrappedCash {
			return summary.Items[i].TrappedCash > summary.Items[j].TrappedCash
		}
		return summary.Items[i].ProductID < summary.Items[j].ProductID
	})
	if limit > 0 && len(summary.Items) > limit {
		summary.Items = summary.Items[:limit]
	}
	return summary
}

// Pareto dimensions
const (
	ParetoByRevenue        = "revenue"
	ParetoByInventoryValue = "inventory_value"
)

// ParetoEntry is one product's share of the chosen dimension
type ParetoEntry struct {
	ProductID     string  `json:"product_id"`
	Value         float64 `json:"value"`
	CumulativePct float64 `json:"cumulative_pct"`
}

// ParetoReport shows how concentrated the chosen dimension is
type ParetoReport struct {
	Dimension      string        `json:"dimension"`
	TotalProducts  int           `json:"total_products"`
	ProductsFor80  int           `json:"products_driving_80_pct"`
	ShareOfSKUsPct Metric        `json:"share_of_skus_pct"`
	Entries        []ParetoEntry `json:"entries"`
}

// ParetoAnalysis ranks products by revenue or inventory value and reports
// the cumulative distribution. Unknown dimensions are rejected.
func ParetoAnalysis(products []models.Product, sales []models.SalesTransaction, snapshots []models.InventorySnapshot, dimension string, limit int) (*ParetoReport, error) {
	values := make(map[string]float64)
	switch dimension {
	case ParetoByRevenue:
		for _, t := range sales {
			values[t.ProductID] += t.Revenue
		}
	case ParetoByInventoryValue:
		for _, pos := range LatestPositions(snapshots) {
			values[pos.ProductID] += float64(pos.QtyOnHand) * unitCostOf(products, pos.ProductID)
		}
	default:
		return nil, invalidInput("dimension", "must be %q or %q, got %q", ParetoByRevenue, ParetoByInventoryValue, dimension)
	}

	entries := make([]ParetoEntry, 0, len(values))
	var total float64
	for id, v := range values {
		entries = append(entries, ParetoEntry{ProductID: id, Value: v})
		total += v
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].ProductID < entries[j].ProductID
	})

	report := &ParetoReport{Dimension: dimension, TotalProducts: len(entries)}
	if total == 0 {
		report.ShareOfSKUsPct = UndefinedMetric("total " + dimension + " is zero")
		report.Entries = entries
		return report, nil
	}

	var cum float64
	for i := range entries {
		cum += entries[i].Value
		entries[i].CumulativePct = cum / total * 100
		if entries[i].CumulativePct <= 80 {
			report.ProductsFor80 = i + 1
		}
	}
	report.ShareOfSKUsPct = DefinedMetric(float64(report.ProductsFor80) / float64(len(entries)) * 100)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	report.Entries = entries
	return report, nil
}

// TurnoverEntry is one product's inventory turnover for the window
type TurnoverEntry struct {
	ProductID      string  `json:"product_id"`
	QtyOnHand      int     `json:"qty_on_hand"`
	InventoryValue float64 `json:"inventory_value"`
	Revenue        float64 `json:"revenue"`
	Turnover       Metric  `json:"turnover"`
}

// InventoryTurnover computes window revenue over current inventory value per
// product, sorted by turnover descending. Products with zero inventory value
// report an undefined ratio rather than a fake zero.
func InventoryTurnover(products []models.Product, snapshots []models.InventorySnapshot, sales []models.SalesTransaction, limit int) []TurnoverEntry {
	revenue := make(map[string]float64)
	for _, t := range sales {
		revenue[t.ProductID] += t.Revenue
	}

	entries := make([]TurnoverEntry, 0)
	for _, pos := range LatestPositions(snapshots) {
		value := float64(pos.QtyOnHand) * unitCostOf(products, pos.ProductID)
		entries = append(entries, TurnoverEntry{
			ProductID:      pos.ProductID,
			QtyOnHand:      pos.QtyOnHand,
			InventoryValue: value,
			Revenue:        revenue[pos.ProductID],
			Turnover:       ratio(revenue[pos.ProductID], value, "inventory value"),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		vi, vj := entries[i].Turnover, entries[j].Turnover
		if vi.Defined != vj.Defined {
			return vi.Defined
		}
		if vi.Defined && vi.Value != vj.Value {
			return vi.Value > vj.Value
		}
		return entries[i].ProductID < entries[j].ProductID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func unitCostOf(products []models.Product, productID string) float64 {
	for _, p := range products {
		if p.ID == productID {
			return p.UnitCost
		}
	}
	return 0
}
