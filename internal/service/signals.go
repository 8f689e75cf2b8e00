package service

import (
	"context"
	"time"

	"chainsight/internal/analytics"
)

// Forecast produces a moving-average demand forecast for one product. Zero
// window or horizon values fall back to the configured defaults.
func (e *Engine) Forecast(ctx context.Context, productID string, windowDays, horizonDays int) (forecast *analytics.Forecast, err error) {
	ctx, done := e.startOp(ctx, "forecast")
	defer func() { done(err) }()

	cfg := analytics.ForecastConfig{WindowDays: windowDays, HorizonDays: horizonDays}
	if cfg.WindowDays == 0 {
		cfg.WindowDays = e.opts.ForecastWindowDays
	}
	if cfg.HorizonDays == 0 {
		cfg.HorizonDays = e.opts.ForecastHorizonDays
	}

	series, err := e.dailySeries(ctx, productID)
	if err != nil {
		return nil, err
	}
	return analytics.ForecastDemand(productID, series, cfg)
}

// Anomalies flags demand observations beyond the z-score threshold. A zero
// threshold falls back to the configured default.
func (e *Engine) Anomalies(ctx context.Context, productID string, zThreshold float64) (anomalies []analytics.Anomaly, err error) {
	ctx, done := e.startOp(ctx, "anomalies")
	defer func() { done(err) }()

	if zThreshold == 0 {
		zThreshold = e.opts.AnomalyZThreshold
	}
	series, err := e.dailySeries(ctx, productID)
	if err != nil {
		return nil, err
	}
	return analytics.DetectAnomalies(series, analytics.AnomalyConfig{ZThreshold: zThreshold})
}

// Seasonality profiles demand by calendar month. An empty productID profiles
// the whole catalog.
func (e *Engine) Seasonality(ctx context.Context, productID string) (report *analytics.SeasonalityReport, err error) {
	ctx, done := e.startOp(ctx, "seasonality")
	defer func() { done(err) }()

	// seasonality needs multi-year history, so it reads outside the window
	sales, err := e.tab.SalesTransactions(ctx, time.Time{}, farFuture())
	if err != nil {
		return nil, accessErr("sales transactions", err)
	}
	return analytics.Seasonality(sales, productID)
}

// Velocity ranks products by units sold per day in the window
func (e *Engine) Velocity(ctx context.Context, from, to time.Time, limit int) (entries []analytics.VelocityEntry, err error) {
	ctx, done := e.startOp(ctx, "velocity")
	defer func() { done(err) }()

	w := e.resolveWindow(from, to)
	sales, err := e.tab.SalesTransactions(ctx, w.From, w.To)
	if err != nil {
		return nil, accessErr("sales transactions", err)
	}
	return analytics.RankVelocity(sales, limit), nil
}

// RevenueTrends aggregates window revenue by period with growth rates
func (e *Engine) RevenueTrends(ctx context.Context, from, to time.Time, granularity string) (points []analytics.TrendPoint, err error) {
	ctx, done := e.startOp(ctx, "revenue_trends")
	defer func() { done(err) }()

	w := e.resolveWindow(from, to)
	sales, err := e.tab.SalesTransactions(ctx, w.From, w.To)
	if err != nil {
		return nil, accessErr("sales transactions", err)
	}
	return analytics.RevenueTrends(sales, granularity)
}

// CustomerConcentration bands the revenue share of the top customers
func (e *Engine) CustomerConcentration(ctx context.Context, from, to time.Time, topN int) (report *analytics.CustomerConcentrationReport, err error) {
	ctx, done := e.startOp(ctx, "customer_concentration")
	defer func() { done(err) }()

	w := e.resolveWindow(from, to)
	sales, err := e.tab.SalesTransactions(ctx, w.From, w.To)
	if err != nil {
		return nil, accessErr("sales transactions", err)
	}
	result := analytics.CustomerConcentration(sales, topN)
	return &result, nil
}

// dailySeries loads the full demand history of one product as a daily series
func (e *Engine) dailySeries(ctx context.Context, productID string) ([]analytics.SeriesPoint, error) {
	sales, err := e.tab.SalesTransactions(ctx, time.Time{}, farFuture())
	if err != nil {
		return nil, accessErr("sales transactions", err)
	}
	return analytics.BuildDailySeries(sales, productID), nil
}

func farFuture() time.Time {
	return time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
}
