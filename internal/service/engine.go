package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chainsight/internal/analytics"
	"chainsight/internal/models"
	"chainsight/internal/util"
)

// TabularAccessor reads the row-oriented source data. The engine treats it as
// read-only; ingestion lives outside this service.
type TabularAccessor interface {
	Products(ctx context.Context) ([]models.Product, error)
	Suppliers(ctx context.Context) ([]models.Supplier, error)
	Customers(ctx context.Context) ([]models.Customer, error)
	InventorySnapshots(ctx context.Context, from, to time.Time) ([]models.InventorySnapshot, error)
	SalesTransactions(ctx context.Context, from, to time.Time) ([]models.SalesTransaction, error)
	PurchaseOrders(ctx context.Context, from, to time.Time) ([]models.PurchaseOrder, error)
	ARLedger(ctx context.Context) ([]models.ARLedgerEntry, error)
	APLedger(ctx context.Context) ([]models.APLedgerEntry, error)
	Shipments(ctx context.Context) ([]models.Shipment, error)
	SupplierProductEdges(ctx context.Context) ([]models.SupplierProductEdge, error)
}

// WindowAggregator is implemented by tabular accessors that can push the
// cash-cycle aggregation down to the database
type WindowAggregator interface {
	WindowAggregates(ctx context.Context, from, to time.Time) (analytics.WindowAggregates, error)
}

// GraphAccessor reads the supplier/product/customer relationship graph
type GraphAccessor interface {
	Snapshot(ctx context.Context) (*analytics.GraphSnapshot, []string, error)
}

// ResultCache caches computed results between requests. A nil cache disables
// caching; cache failures never fail an operation.
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Options are the engine's tunable defaults
type Options struct {
	WindowDays          int
	ForecastWindowDays  int
	ForecastHorizonDays int
	AnomalyZThreshold   float64
	DeadStockDays       int
	OverstockMultiplier float64
	SafetyMarginDays    int
	ServiceLevel        float64
	OrderCost           float64
	HoldingRate         float64
	SimulationFloor     float64
	CacheTTL            time.Duration
}

// DefaultOptions returns the engine defaults
func DefaultOptions() Options {
	return Options{
		WindowDays:          90,
		ForecastWindowDays:  7,
		ForecastHorizonDays: 30,
		AnomalyZThreshold:   2.5,
		DeadStockDays:       90,
		OverstockMultiplier: 2,
		SafetyMarginDays:    7,
		ServiceLevel:        0.95,
		OrderCost:           50,
		HoldingRate:         0.25,
		SimulationFloor:     0,
		CacheTTL:            5 * time.Minute,
	}
}

// Engine computes the analytics surface over the configured accessors
type Engine struct {
	tab    TabularAccessor
	graph  GraphAccessor
	cache  ResultCache
	opts   Options
	logger *zap.Logger
}

// NewEngine creates a new analytics engine. graph and cache may be nil; the
// engine then builds the graph from the tabular edge mirror and computes
// every result fresh.
func NewEngine(tab TabularAccessor, graph GraphAccessor, cache ResultCache, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = util.GetLogger()
	}
	return &Engine{tab: tab, graph: graph, cache: cache, opts: opts, logger: logger}
}

// Window is a resolved analysis window
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// resolveWindow fills an open-ended window with the configured default span
func (e *Engine) resolveWindow(from, to time.Time) Window {
	if to.IsZero() {
		to = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -e.opts.WindowDays)
	}
	return Window{From: from, To: to}
}

// startOp opens a span and returns a closure that records the op metrics
func (e *Engine) startOp(ctx context.Context, op string) (context.Context, func(err error)) {
	ctx, span := util.StartSpan(ctx, "engine."+op)
	start := time.Now()
	return ctx, func(err error) {
		span.End()
		util.AnalyticsOperationsTotal.WithLabelValues(op).Inc()
		util.AnalyticsOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			util.AnalyticsOperationsFailed.WithLabelValues(op, failureReason(err)).Inc()
			e.logger.Warn("operation failed", zap.String("op", op), zap.Error(err))
		}
	}
}

func failureReason(err error) string {
	switch err.(type) {
	case *analytics.InvalidInputError:
		return "invalid_input"
	case *analytics.InsufficientDataError:
		return "insufficient_data"
	case *analytics.DataAccessError:
		return "data_access"
	default:
		return "internal"
	}
}

// accessErr wraps an accessor failure into the typed error the transport
// layer maps to an upstream failure status
func accessErr(op string, err error) error {
	return &analytics.DataAccessError{Op: op, Err: err}
}

// cacheGet decodes a cached result into dest. Cache failures are logged and
// treated as misses so a broken cache never fails a request.
func (e *Engine) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if e.cache == nil {
		return false
	}
	hit, err := e.cache.Get(ctx, key, dest)
	if err != nil {
		e.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

// cacheSet stores a computed result with the configured TTL
func (e *Engine) cacheSet(ctx context.Context, key string, value interface{}) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, key, value, e.opts.CacheTTL); err != nil {
		e.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func windowKey(op string, w Window) string {
	return fmt.Sprintf("%s:%s:%s", op, w.From.Format("2006-01-02"), w.To.Format("2006-01-02"))
}
