package analytics

import (
	"testing"
	"time"

	"chainsight/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arEntry(invoiceDaysAgo int, amount float64, paidDaysAgo int, asOf time.Time) models.ARLedgerEntry {
	e := models.ARLedgerEntry{
		CustomerID:  "C1",
		InvoiceDate: asOf.AddDate(0, 0, -invoiceDaysAgo),
		Amount:      amount,
	}
	if paidDaysAgo >= 0 {
		paid := asOf.AddDate(0, 0, -paidDaysAgo)
		e.PaidDate = &paid
	}
	return e
}

func TestAgeReceivablesBuckets(t *testing.T) {
	asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	entries := []models.ARLedgerEntry{
		arEntry(10, 100, -1, asOf),  // current, outstanding
		arEntry(45, 200, -1, asOf),  // 31-60d, outstanding
		arEntry(45, 50, 5, asOf),    // 31-60d, already paid
		arEntry(75, 300, -1, asOf),  // 61-90d, outstanding
		arEntry(120, 400, -1, asOf), // 90+d, outstanding
	}

	report := AgeReceivables(entries, asOf)

	require.Len(t, report.Buckets, 4)
	assert.Equal(t, "0-30d", report.Buckets[0].Bucket)
	assert.InDelta(t, 100, report.Buckets[0].Outstanding, 1e-9)

	// paid invoice counts toward the bucket total but not outstanding
	assert.Equal(t, 2, report.Buckets[1].Invoices)
	assert.InDelta(t, 250, report.Buckets[1].TotalAmount, 1e-9)
	assert.InDelta(t, 200, report.Buckets[1].Outstanding, 1e-9)

	assert.InDelta(t, 300, report.Buckets[2].Outstanding, 1e-9)
	assert.InDelta(t, 400, report.Buckets[3].Outstanding, 1e-9)
	assert.InDelta(t, 1000, report.TotalOutstanding, 1e-9)
}

func TestAgeReceivablesIgnoresFutureInvoices(t *testing.T) {
	asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	entries := []models.ARLedgerEntry{arEntry(-5, 100, -1, asOf)}

	report := AgeReceivables(entries, asOf)
	assert.Zero(t, report.TotalOutstanding)
	assert.Zero(t, report.Buckets[0].Invoices)
}

func paidAR(customer string, amount float64, invoiceDaysAgo, paidDaysAgo int, asOf time.Time) models.ARLedgerEntry {
	paid := asOf.AddDate(0, 0, -paidDaysAgo)
	return models.ARLedgerEntry{
		CustomerID:  customer,
		InvoiceDate: asOf.AddDate(0, 0, -invoiceDaysAgo),
		PaidDate:    &paid,
		Amount:      amount,
	}
}

func TestAnalyzeDSO(t *testing.T) {
	asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	// C-SLOW took 30 then 10 days to pay, C-FAST 5; the open invoice is excluded
	entries := []models.ARLedgerEntry{
		paidAR("C-SLOW", 300, 40, 10, asOf),
		paidAR("C-SLOW", 100, 20, 10, asOf),
		paidAR("C-FAST", 600, 15, 10, asOf),
		{CustomerID: "C-FAST", InvoiceDate: asOf.AddDate(0, 0, -5), Amount: 999},
	}

	result := AnalyzeDSO(entries, 0)

	require.True(t, result.OverallDSO.Defined)
	// (30*300 + 10*100 + 5*600) / 1000
	assert.InDelta(t, 13, result.OverallDSO.Value, 1e-9)

	require.Len(t, result.ByCustomer, 2)
	assert.Equal(t, "C-SLOW", result.ByCustomer[0].CustomerID)
	assert.InDelta(t, 25, result.ByCustomer[0].WeightedDSO, 1e-9)
	assert.Equal(t, 2, result.ByCustomer[0].Invoices)
	assert.InDelta(t, 400, result.ByCustomer[0].TotalBilled, 1e-9)

	assert.Equal(t, "C-FAST", result.ByCustomer[1].CustomerID)
	assert.InDelta(t, 5, result.ByCustomer[1].WeightedDSO, 1e-9)
}

func TestAnalyzeDSOLimit(t *testing.T) {
	asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	entries := []models.ARLedgerEntry{
		paidAR("C-SLOW", 300, 40, 10, asOf),
		paidAR("C-FAST", 600, 15, 10, asOf),
	}

	result := AnalyzeDSO(entries, 1)
	require.Len(t, result.ByCustomer, 1)
	assert.Equal(t, "C-SLOW", result.ByCustomer[0].CustomerID)
}

func TestAnalyzeDSONothingPaid(t *testing.T) {
	asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	entries := []models.ARLedgerEntry{arEntry(10, 100, -1, asOf)}

	result := AnalyzeDSO(entries, 0)
	assert.False(t, result.OverallDSO.Defined)
	assert.Empty(t, result.ByCustomer)
}

func TestAnalyzeDPO(t *testing.T) {
	asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	paidHold := asOf.AddDate(0, 0, -15)
	paidQuick := asOf.AddDate(0, 0, -2)
	// S-HOLD held its invoice 45 days, S-QUICK 10; the unpaid one is excluded
	entries := []models.APLedgerEntry{
		{SupplierID: "S-HOLD", InvoiceDate: asOf.AddDate(0, 0, -60), PaidDate: &paidHold, Amount: 200},
		{SupplierID: "S-QUICK", InvoiceDate: asOf.AddDate(0, 0, -12), PaidDate: &paidQuick, Amount: 800},
		{SupplierID: "S-QUICK", InvoiceDate: asOf.AddDate(0, 0, -3), Amount: 500},
	}

	result := AnalyzeDPO(entries, 0)

	require.True(t, result.OverallDPO.Defined)
	// (45*200 + 10*800) / 1000
	assert.InDelta(t, 17, result.OverallDPO.Value, 1e-9)

	require.Len(t, result.BySupplier, 2)
	assert.Equal(t, "S-HOLD", result.BySupplier[0].SupplierID)
	assert.InDelta(t, 45, result.BySupplier[0].WeightedDPO, 1e-9)
	assert.Equal(t, "S-QUICK", result.BySupplier[1].SupplierID)
	assert.InDelta(t, 800, result.BySupplier[1].TotalPaid, 1e-9)
}

func wcFixture() ([]models.Product, []models.InventorySnapshot) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	products := []models.Product{
		{ID: "P1", UnitCost: 10},
		{ID: "P2", UnitCost: 4},
	}
	snapshots := []models.InventorySnapshot{
		{ProductID: "P1", AsOfDate: day, QtyOnHand: 100},
		{ProductID: "P1", AsOfDate: day.AddDate(0, 0, 1), QtyOnHand: 80},
		{ProductID: "P2", AsOfDate: day, QtyOnHand: 50},
	}
	return products, snapshots
}

func TestEstimateCarryingCost(t *testing.T) {
	products, snapshots := wcFixture()

	est, err := EstimateCarryingCost(products, snapshots, 0.25)
	require.NoError(t, err)

	// latest positions: P1 80*10 + P2 50*4 = 1000
	assert.InDelta(t, 1000, est.TotalInventoryValue, 1e-9)
	assert.InDelta(t, 250, est.AnnualCarryingCost, 1e-9)
	assert.InDelta(t, 250.0/12, est.MonthlyCarryingCost, 1e-9)
}

func TestEstimateCarryingCostRejectsBadRate(t *testing.T) {
	products, snapshots := wcFixture()

	_, err := EstimateCarryingCost(products, snapshots, 0)
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "holding_rate", invalid.Field)
}

func TestSummarizeWorkingCapital(t *testing.T) {
	products, snapshots := wcFixture()

	summary := SummarizeWorkingCapital(products, snapshots, 0)

	assert.InDelta(t, 1000, summary.TotalTrappedCash, 1e-9)
	require.Len(t, summary.Items, 2)
	assert.Equal(t, "P1", summary.Items[0].ProductID)
	assert.InDelta(t, 800, summary.Items[0].TrappedCash, 1e-9)
	assert.Equal(t, "P2", summary.Items[1].ProductID)
}

func TestSummarizeWorkingCapitalLimit(t *testing.T) {
	products, snapshots := wcFixture()

	summary := SummarizeWorkingCapital(products, snapshots, 1)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, "P1", summary.Items[0].ProductID)
	// the total still covers every product
	assert.InDelta(t, 1000, summary.TotalTrappedCash, 1e-9)
}

func TestParetoAnalysisByRevenue(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sales := []models.SalesTransaction{
		{ProductID: "P1", Date: day, Qty: 1, Revenue: 700},
		{ProductID: "P2", Date: day, Qty: 1, Revenue: 200},
		{ProductID: "P3", Date: day, Qty: 1, Revenue: 100},
	}

	report, err := ParetoAnalysis(nil, sales, nil, ParetoByRevenue, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalProducts)
	assert.Equal(t, 1, report.ProductsFor80)
	require.True(t, report.ShareOfSKUsPct.Defined)
	assert.InDelta(t, 100.0/3, report.ShareOfSKUsPct.Value, 1e-9)

	require.Len(t, report.Entries, 3)
	assert.Equal(t, "P1", report.Entries[0].ProductID)
	assert.InDelta(t, 70, report.Entries[0].CumulativePct, 1e-9)
	assert.InDelta(t, 100, report.Entries[2].CumulativePct, 1e-9)
}

func TestParetoAnalysisByInventoryValue(t *testing.T) {
	products, snapshots := wcFixture()

	report, err := ParetoAnalysis(products, nil, snapshots, ParetoByInventoryValue, 0)
	require.NoError(t, err)

	require.Len(t, report.Entries, 2)
	assert.Equal(t, "P1", report.Entries[0].ProductID)
	assert.InDelta(t, 800, report.Entries[0].Value, 1e-9)
}

func TestParetoAnalysisUnknownDimension(t *testing.T) {
	_, err := ParetoAnalysis(nil, nil, nil, "margin", 0)
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "dimension", invalid.Field)
}

func TestParetoAnalysisZeroTotal(t *testing.T) {
	report, err := ParetoAnalysis(nil, nil, nil, ParetoByRevenue, 0)
	require.NoError(t, err)
	assert.False(t, report.ShareOfSKUsPct.Defined)
}

func TestInventoryTurnover(t *testing.T) {
	products, snapshots := wcFixture()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sales := []models.SalesTransaction{
		{ProductID: "P1", Date: day, Qty: 10, Revenue: 400},
		{ProductID: "P2", Date: day, Qty: 5, Revenue: 600},
	}

	entries := InventoryTurnover(products, snapshots, sales, 0)

	require.Len(t, entries, 2)
	// P2 turns 600/200 = 3x, P1 only 400/800 = 0.5x
	assert.Equal(t, "P2", entries[0].ProductID)
	require.True(t, entries[0].Turnover.Defined)
	assert.InDelta(t, 3, entries[0].Turnover.Value, 1e-9)
	assert.Equal(t, "P1", entries[1].ProductID)
	assert.InDelta(t, 0.5, entries[1].Turnover.Value, 1e-9)
}

func TestInventoryTurnoverUndefinedSortsLast(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	products := []models.Product{{ID: "P1", UnitCost: 10}, {ID: "P2", UnitCost: 10}}
	snapshots := []models.InventorySnapshot{
		{ProductID: "P1", AsOfDate: day, QtyOnHand: 10},
		{ProductID: "P2", AsOfDate: day, QtyOnHand: 0},
	}
	sales := []models.SalesTransaction{{ProductID: "P1", Date: day, Qty: 1, Revenue: 100}}

	entries := InventoryTurnover(products, snapshots, sales, 0)

	require.Len(t, entries, 2)
	assert.True(t, entries[0].Turnover.Defined)
	assert.False(t, entries[1].Turnover.Defined)
	assert.Equal(t, "P2", entries[1].ProductID)
}
