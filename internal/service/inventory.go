package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"chainsight/internal/analytics"
	"chainsight/internal/models"
)

// ClassificationReport is the ABC/XYZ matrix for one window
type ClassificationReport struct {
	Window  Window                     `json:"window"`
	Classes []analytics.Classification `json:"classes"`
}

// Classify assigns ABC and XYZ classes over the window's sales
func (e *Engine) Classify(ctx context.Context, from, to time.Time) (report *ClassificationReport, err error) {
	ctx, done := e.startOp(ctx, "classify")
	defer func() { done(err) }()

	w := e.resolveWindow(from, to)
	key := windowKey("classify", w)
	var cached ClassificationReport
	if e.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	var products []models.Product
	var sales []models.SalesTransaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if products, err = e.tab.Products(gctx); err != nil {
			return accessErr("products", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if sales, err = e.tab.SalesTransactions(gctx, w.From, w.To); err != nil {
			return accessErr("sales transactions", err)
		}
		return nil
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	report = &ClassificationReport{
		Window:  w,
		Classes: analytics.ClassifyProducts(products, sales, analytics.DefaultClassifyConfig()),
	}
	e.cacheSet(ctx, key, report)
	return report, nil
}

// InventoryAgingReport buckets current stock by idle age
type InventoryAgingReport struct {
	AsOf      time.Time                `json:"as_of"`
	Buckets   []analytics.AgingBucket  `json:"buckets"`
	Positions []analytics.AgedPosition `json:"positions"`
}

// InventoryAging buckets on-hand stock by days since the last sale
func (e *Engine) InventoryAging(ctx context.Context, asOf time.Time) (report *InventoryAgingReport, err error) {
	ctx, done := e.startOp(ctx, "inventory_aging")
	defer func() { done(err) }()

	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	w := e.resolveWindow(time.Time{}, asOf)
	products, snapshots, sales, err := e.positionInputs(ctx, w)
	if err != nil {
		return nil, err
	}
	buckets, positions := analytics.AgeInventory(products, snapshots, sales, asOf)
	return &InventoryAgingReport{AsOf: asOf, Buckets: buckets, Positions: positions}, nil
}

// DeadStock lists products with no movement beyond the threshold. A zero
// threshold falls back to the configured default.
func (e *Engine) DeadStock(ctx context.Context, asOf time.Time, thresholdDays int) (dead []analytics.AgedPosition, err error) {
	ctx, done := e.startOp(ctx, "dead_stock")
	defer func() { done(err) }()

	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	if thresholdDays == 0 {
		thresholdDays = e.opts.DeadStockDays
	}
	w := e.resolveWindow(time.Time{}, asOf)
	products, snapshots, sales, err := e.positionInputs(ctx, w)
	if err != nil {
		return nil, err
	}
	return analytics.DeadStock(products, snapshots, sales, asOf, thresholdDays)
}

// Overstock flags products holding more than multiplier times their lead-time
// demand. A zero multiplier falls back to the configured default.
func (e *Engine) Overstock(ctx context.Context, multiplier float64) (items []analytics.OverstockItem, err error) {
	ctx, done := e.startOp(ctx, "overstock")
	defer func() { done(err) }()

	if multiplier == 0 {
		multiplier = e.opts.OverstockMultiplier
	}
	w := e.resolveWindow(time.Time{}, time.Time{})
	products, snapshots, sales, err := e.positionInputs(ctx, w)
	if err != nil {
		return nil, err
	}
	return analytics.DetectOverstock(products, snapshots, sales, multiplier)
}

// StockoutRisks projects days-to-stockout per product against its lead time
func (e *Engine) StockoutRisks(ctx context.Context) (items []analytics.StockoutRiskItem, err error) {
	ctx, done := e.startOp(ctx, "stockout_risks")
	defer func() { done(err) }()

	w := e.resolveWindow(time.Time{}, time.Time{})
	products, snapshots, sales, err := e.positionInputs(ctx, w)
	if err != nil {
		return nil, err
	}
	return analytics.ProjectStockouts(products, snapshots, sales, e.opts.SafetyMarginDays), nil
}

// ReorderParams are the order sizing numbers for one product
type ReorderParams struct {
	ProductID     string  `json:"product_id"`
	DailyVelocity float64 `json:"daily_velocity"`
	EOQ           int     `json:"eoq"`
	SafetyStock   float64 `json:"safety_stock"`
	ReorderPoint  float64 `json:"reorder_point"`
	ServiceLevel  float64 `json:"service_level"`
	LeadTimeDays  int     `json:"lead_time_days"`
}

// PlanReorder computes EOQ, safety stock and the reorder point for one
// product from its observed demand. A zero serviceLevel falls back to the
// configured default.
func (e *Engine) PlanReorder(ctx context.Context, productID string, serviceLevel float64) (params *ReorderParams, err error) {
	ctx, done := e.startOp(ctx, "plan_reorder")
	defer func() { done(err) }()

	if serviceLevel == 0 {
		serviceLevel = e.opts.ServiceLevel
	}
	w := e.resolveWindow(time.Time{}, time.Time{})

	products, err := e.tab.Products(ctx)
	if err != nil {
		return nil, accessErr("products", err)
	}
	product, found := productLookup(products, productID)
	if !found {
		return nil, &analytics.InvalidInputError{Field: "product_id", Reason: "unknown product " + productID}
	}

	sales, err := e.tab.SalesTransactions(ctx, w.From, w.To)
	if err != nil {
		return nil, accessErr("sales transactions", err)
	}
	series := analytics.BuildDailySeries(sales, productID)
	if len(series) == 0 {
		return nil, &analytics.InsufficientDataError{Subject: "demand series for " + productID, Needed: 1, Got: 0}
	}

	velocity, stddev := analytics.DemandStats(series)

	eoq, err := analytics.EOQ(velocity*365, e.opts.OrderCost, product.UnitCost*e.opts.HoldingRate)
	if err != nil {
		return nil, err
	}
	ss, err := analytics.SafetyStock(serviceLevel, stddev, product.LeadTimeDays, 1, nil)
	if err != nil {
		return nil, err
	}
	rop, err := analytics.ReorderPoint(velocity, product.LeadTimeDays, ss)
	if err != nil {
		return nil, err
	}

	return &ReorderParams{
		ProductID:     productID,
		DailyVelocity: velocity,
		EOQ:           eoq,
		SafetyStock:   ss,
		ReorderPoint:  rop,
		ServiceLevel:  serviceLevel,
		LeadTimeDays:  product.LeadTimeDays,
	}, nil
}

// positionInputs fetches the three inputs every stock-position computation
// needs, in parallel
func (e *Engine) positionInputs(ctx context.Context, w Window) ([]models.Product, []models.InventorySnapshot, []models.SalesTransaction, error) {
	var products []models.Product
	var snapshots []models.InventorySnapshot
	var sales []models.SalesTransaction

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if products, err = e.tab.Products(gctx); err != nil {
			return accessErr("products", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if snapshots, err = e.tab.InventorySnapshots(gctx, w.From, w.To); err != nil {
			return accessErr("inventory snapshots", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if sales, err = e.tab.SalesTransactions(gctx, w.From, w.To); err != nil {
			return accessErr("sales transactions", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return products, snapshots, sales, nil
}

func productLookup(products []models.Product, id string) (models.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}
