package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"chainsight/internal/analytics"
	"chainsight/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTabular serves canned rows and counts reads, standing in for the
// Postgres store
type fakeTabular struct {
	products  []models.Product
	suppliers []models.Supplier
	customers []models.Customer
	snapshots []models.InventorySnapshot
	sales     []models.SalesTransaction
	orders    []models.PurchaseOrder
	ar        []models.ARLedgerEntry
	ap        []models.APLedgerEntry
	shipments []models.Shipment
	edges     []models.SupplierProductEdge

	failWith error
	reads    int
}

func (f *fakeTabular) Products(ctx context.Context) ([]models.Product, error) {
	f.reads++
	return f.products, f.failWith
}

func (f *fakeTabular) Suppliers(ctx context.Context) ([]models.Supplier, error) {
	f.reads++
	return f.suppliers, f.failWith
}

func (f *fakeTabular) Customers(ctx context.Context) ([]models.Customer, error) {
	f.reads++
	return f.customers, f.failWith
}

func (f *fakeTabular) InventorySnapshots(ctx context.Context, from, to time.Time) ([]models.InventorySnapshot, error) {
	f.reads++
	var out []models.InventorySnapshot
	for _, s := range f.snapshots {
		if !s.AsOfDate.Before(from) && !s.AsOfDate.After(to) {
			out = append(out, s)
		}
	}
	return out, f.failWith
}

func (f *fakeTabular) SalesTransactions(ctx context.Context, from, to time.Time) ([]models.SalesTransaction, error) {
	f.reads++
	var out []models.SalesTransaction
	for _, s := range f.sales {
		if !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s)
		}
	}
	return out, f.failWith
}

func (f *fakeTabular) PurchaseOrders(ctx context.Context, from, to time.Time) ([]models.PurchaseOrder, error) {
	f.reads++
	var out []models.PurchaseOrder
	for _, o := range f.orders {
		if !o.OrderDate.Before(from) && !o.OrderDate.After(to) {
			out = append(out, o)
		}
	}
	return out, f.failWith
}

func (f *fakeTabular) ARLedger(ctx context.Context) ([]models.ARLedgerEntry, error) {
	f.reads++
	return f.ar, f.failWith
}

func (f *fakeTabular) APLedger(ctx context.Context) ([]models.APLedgerEntry, error) {
	f.reads++
	return f.ap, f.failWith
}

func (f *fakeTabular) Shipments(ctx context.Context) ([]models.Shipment, error) {
	f.reads++
	return f.shipments, f.failWith
}

func (f *fakeTabular) SupplierProductEdges(ctx context.Context) ([]models.SupplierProductEdge, error) {
	f.reads++
	return f.edges, f.failWith
}

// fakeCache is an in-memory ResultCache
type fakeCache struct {
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

// fixture dates trail today so default-window operations see the demand
var fixtureBase = time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -28)

func testDay(d int) time.Time {
	return fixtureBase.AddDate(0, 0, d)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// testFixture builds a small but fully connected supply chain:
// two suppliers, two products, one customer, recent demand on both products.
func testFixture() *fakeTabular {
	asOf := testDay(28)
	var sales []models.SalesTransaction
	for d := 1; d <= 28; d++ {
		sales = append(sales,
			models.SalesTransaction{ProductID: "WIDGET", CustomerID: "ACME", Date: testDay(d), Qty: 10, Revenue: 500, Margin: 100},
			models.SalesTransaction{ProductID: "GADGET", CustomerID: "ACME", Date: testDay(d), Qty: 2, Revenue: 150, Margin: 50},
		)
	}
	return &fakeTabular{
		products: []models.Product{
			{ID: "GADGET", Name: "Gadget", Category: "gizmos", UnitCost: 10, UnitPrice: 30, LeadTimeDays: 5},
			{ID: "WIDGET", Name: "Widget", Category: "tools", UnitCost: 20, UnitPrice: 50, LeadTimeDays: 10},
		},
		suppliers: []models.Supplier{
			{ID: "SUP-RELIABLE", OnTimeRate: 0.97, LeadTimeMean: 8, LeadTimeStddev: 1},
			{ID: "SUP-SHAKY", OnTimeRate: 0.7, LeadTimeMean: 20, LeadTimeStddev: 12},
		},
		customers: []models.Customer{{ID: "ACME", Name: "Acme Corp"}},
		snapshots: []models.InventorySnapshot{
			{ProductID: "WIDGET", AsOfDate: asOf, QtyOnHand: 30, QtyOnOrder: 0},
			{ProductID: "GADGET", AsOfDate: asOf, QtyOnHand: 500, QtyOnOrder: 0},
		},
		sales: sales,
		ar: []models.ARLedgerEntry{
			{CustomerID: "ACME", InvoiceDate: testDay(2), Amount: 4000},
			{CustomerID: "ACME", InvoiceDate: testDay(5), PaidDate: timePtr(testDay(20)), Amount: 1000},
		},
		ap: []models.APLedgerEntry{
			{SupplierID: "SUP-RELIABLE", InvoiceDate: testDay(3), Amount: 2500},
			{SupplierID: "SUP-RELIABLE", InvoiceDate: testDay(4), PaidDate: timePtr(testDay(24)), Amount: 500},
		},
		orders: []models.PurchaseOrder{
			{ID: "PO-1", ProductID: "WIDGET", SupplierID: "SUP-RELIABLE", OrderDate: testDay(10), Value: 3000},
		},
		edges: []models.SupplierProductEdge{
			{SupplierID: "SUP-RELIABLE", ProductID: "WIDGET", VolumeShare: 1},
			{SupplierID: "SUP-RELIABLE", ProductID: "GADGET", VolumeShare: 0.5},
			{SupplierID: "SUP-SHAKY", ProductID: "GADGET", VolumeShare: 0.5},
		},
	}
}

func testEngine(tab TabularAccessor, cache ResultCache) *Engine {
	return NewEngine(tab, nil, cache, DefaultOptions(), nil)
}

func TestCashCycleFromRawRows(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	report, err := engine.CashCycle(context.Background(), testDay(1), testDay(30))
	require.NoError(t, err)

	require.True(t, report.CashCycle.DIO.Defined)
	require.True(t, report.CashCycle.CCC.Defined)
	assert.InDelta(t, 28*500+28*150, report.Aggregates.Revenue, 1e-9)
	assert.InDelta(t,
		report.CashCycle.DIO.Value+report.CashCycle.DSO.Value-report.CashCycle.DPO.Value,
		report.CashCycle.CCC.Value, 1e-9)
}

func TestCashCycleServedFromCache(t *testing.T) {
	tab := testFixture()
	engine := testEngine(tab, newFakeCache())
	ctx := context.Background()

	first, err := engine.CashCycle(ctx, testDay(1), testDay(30))
	require.NoError(t, err)
	readsAfterFirst := tab.reads

	second, err := engine.CashCycle(ctx, testDay(1), testDay(30))
	require.NoError(t, err)
	assert.Equal(t, readsAfterFirst, tab.reads, "second call must not touch the accessor")
	assert.Equal(t, first.CashCycle, second.CashCycle)
}

func TestSimulateCashCycle(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	sim, err := engine.SimulateCashCycle(context.Background(), testDay(1), testDay(30),
		analytics.CCCDeltas{DIOReduction: 1, DSOReduction: 1})
	require.NoError(t, err)
	assert.InDelta(t, 2, sim.TotalDaysSaved, 1e-9)
}

func TestClassify(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	report, err := engine.Classify(context.Background(), testDay(1), testDay(30))
	require.NoError(t, err)
	require.Len(t, report.Classes, 2)
	assert.Equal(t, "WIDGET", report.Classes[0].ProductID)
	assert.Equal(t, "A", report.Classes[0].ABCClass)
	assert.Equal(t, "X", report.Classes[0].XYZClass, "constant demand is class X")
}

func TestStockoutRisks(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	items, err := engine.StockoutRisks(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	// WIDGET sells 10/day with 30 on hand against a 10 day lead time
	assert.Equal(t, "WIDGET", items[0].ProductID)
	require.True(t, items[0].DaysToStockout.Defined)
	assert.InDelta(t, 3, items[0].DaysToStockout.Value, 1e-9)
	assert.True(t, items[0].AtRisk)
}

func TestNetworkFromTabularMirror(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	report, err := engine.Network(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.SkippedEdges)
	assert.Len(t, report.Nodes, 5)
	// three supplier edges plus the two derived sales edges
	assert.Len(t, report.Edges, 5)
}

func TestSupplierRisksRanking(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	report, err := engine.SupplierRisks(context.Background(), analytics.RiskWeights{})
	require.NoError(t, err)
	require.Len(t, report.Scores, 2)
	assert.Equal(t, "SUP-SHAKY", report.Scores[0].SupplierID)
	assert.Equal(t, analytics.DefaultRiskWeights(), report.Weights)
}

func TestSingleSourceRisks(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	risks, err := engine.SingleSourceRisks(context.Background())
	require.NoError(t, err)
	require.Len(t, risks, 1)
	assert.Equal(t, "WIDGET", risks[0].ProductID)
	assert.Equal(t, "SUP-RELIABLE", risks[0].SoleSupplierID)
}

func TestRippleThroughFallbackGraph(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	result, err := engine.Ripple(context.Background(), "SUP-RELIABLE", 0)
	require.NoError(t, err)
	assert.Len(t, result.AffectedProducts, 2)
	require.Len(t, result.AffectedCustomers, 1)
	assert.Equal(t, "ACME", result.AffectedCustomers[0].CustomerID)
}

func TestRecommendations(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	report, err := engine.Recommendations(context.Background(), 0)
	require.NoError(t, err)

	// WIDGET is below its reorder point, GADGET holds months of stock
	require.Len(t, report.Recommendations, 1)
	rec := report.Recommendations[0]
	assert.Equal(t, "WIDGET", rec.ProductID)
	assert.Equal(t, "A", rec.ABCClass)
	assert.Greater(t, rec.SuggestedQty, 0)
	require.True(t, rec.SupplierRisk.Defined)
}

func TestPlanReorder(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	params, err := engine.PlanReorder(context.Background(), "WIDGET", 0)
	require.NoError(t, err)
	assert.InDelta(t, 10, params.DailyVelocity, 1e-9)
	assert.Greater(t, params.EOQ, 0)
	assert.InDelta(t, 0.95, params.ServiceLevel, 1e-9)
	assert.InDelta(t, 100, params.ReorderPoint, 1e-9, "constant demand needs no safety stock")

	_, err = engine.PlanReorder(context.Background(), "GHOST", 0)
	var invalid *analytics.InvalidInputError
	require.ErrorAs(t, err, &invalid)
}

func TestForecastInsufficientHistory(t *testing.T) {
	tab := testFixture()
	tab.sales = tab.sales[:4] // two days of history
	engine := testEngine(tab, nil)

	_, err := engine.Forecast(context.Background(), "WIDGET", 0, 0)
	var insufficient *analytics.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}

func TestAccessorFailureIsTyped(t *testing.T) {
	tab := testFixture()
	tab.failWith = errors.New("connection refused")
	engine := testEngine(tab, nil)

	_, err := engine.StockoutRisks(context.Background())
	var dataErr *analytics.DataAccessError
	require.ErrorAs(t, err, &dataErr)
	assert.ErrorContains(t, err, "connection refused")
}

func TestDashboard(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	report, err := engine.Dashboard(context.Background())
	require.NoError(t, err)

	assert.True(t, report.CashCycle.CCC.Defined)
	// WIDGET 30*20 + GADGET 500*10
	assert.InDelta(t, 5600, report.TrappedCash, 1e-9)
	assert.Equal(t, 1, report.AtRiskProducts)
	assert.Equal(t, 1, report.Recommendations)
	require.Len(t, report.TopSupplierRisks, 2)
	assert.Equal(t, "SUP-SHAKY", report.TopSupplierRisks[0].SupplierID)
	require.NotEmpty(t, report.TopMovers)
	assert.Equal(t, "WIDGET", report.TopMovers[0].ProductID)
}

func TestReceivablesAging(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	report, err := engine.ReceivablesAging(context.Background(), testDay(28))
	require.NoError(t, err)
	assert.InDelta(t, 4000, report.TotalOutstanding, 1e-9)
}

func TestSimulateCashCycleRespectsFloor(t *testing.T) {
	opts := DefaultOptions()
	opts.SimulationFloor = 1000
	engine := NewEngine(testFixture(), nil, nil, opts, nil)

	_, err := engine.SimulateCashCycle(context.Background(), testDay(1), testDay(30),
		analytics.CCCDeltas{DIOReduction: 1})
	var invalid *analytics.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "dio_reduction", invalid.Field)
}

func TestDSOAnalysis(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	report, err := engine.DSOAnalysis(context.Background(), 0)
	require.NoError(t, err)

	// the open 4000 invoice carries no days-to-pay; the settled one took 15
	require.True(t, report.OverallDSO.Defined)
	assert.InDelta(t, 15, report.OverallDSO.Value, 1e-9)
	require.Len(t, report.ByCustomer, 1)
	assert.Equal(t, "ACME", report.ByCustomer[0].CustomerID)
	assert.InDelta(t, 15, report.ByCustomer[0].WeightedDSO, 1e-9)
	assert.Equal(t, 1, report.ByCustomer[0].Invoices)
	assert.InDelta(t, 1000, report.ByCustomer[0].TotalBilled, 1e-9)
}

func TestDPOAnalysis(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	report, err := engine.DPOAnalysis(context.Background(), 0)
	require.NoError(t, err)

	require.True(t, report.OverallDPO.Defined)
	assert.InDelta(t, 20, report.OverallDPO.Value, 1e-9)
	require.Len(t, report.BySupplier, 1)
	assert.Equal(t, "SUP-RELIABLE", report.BySupplier[0].SupplierID)
}

func TestSupplierPerformance(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	report, err := engine.SupplierPerformance(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	require.Len(t, report.Suppliers, 2)
	assert.Equal(t, "SUP-RELIABLE", report.Suppliers[0].ID)
	assert.Equal(t, "SUP-SHAKY", report.Suppliers[1].ID)
}

func TestProductCatalog(t *testing.T) {
	engine := testEngine(testFixture(), nil)
	ctx := context.Background()

	all, err := engine.ProductCatalog(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)
	assert.Equal(t, "GADGET", all.Products[0].ID)

	tools, err := engine.ProductCatalog(ctx, "tools", "")
	require.NoError(t, err)
	require.Len(t, tools.Products, 1)
	assert.Equal(t, "WIDGET", tools.Products[0].ID)

	classA, err := engine.ProductCatalog(ctx, "", "A")
	require.NoError(t, err)
	require.Len(t, classA.Products, 1)
	assert.Equal(t, "WIDGET", classA.Products[0].ID)
}

func TestProductCatalogRejectsUnknownClass(t *testing.T) {
	engine := testEngine(testFixture(), nil)

	_, err := engine.ProductCatalog(context.Background(), "", "D")
	var invalid *analytics.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "abc_class", invalid.Field)
}
