package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"chainsight/internal/analytics"
)

// DashboardReport is the one-call KPI summary the overview screen renders
type DashboardReport struct {
	Window           Window                     `json:"window"`
	CashCycle        analytics.CashCycle        `json:"cash_cycle"`
	TrappedCash      float64                    `json:"trapped_cash"`
	AtRiskProducts   int                        `json:"at_risk_products"`
	Recommendations  int                        `json:"open_recommendations"`
	TopSupplierRisks []analytics.SupplierRisk  `json:"top_supplier_risks"`
	TopMovers        []analytics.VelocityEntry `json:"top_movers"`
}

const dashboardTopN = 5

// Dashboard fans out the headline operations in parallel and condenses them
// into one summary. The sub-operations cache individually, so a warm cache
// makes this cheap.
func (e *Engine) Dashboard(ctx context.Context) (report *DashboardReport, err error) {
	ctx, done := e.startOp(ctx, "dashboard")
	defer func() { done(err) }()

	w := e.resolveWindow(time.Time{}, time.Time{})
	report = &DashboardReport{Window: w}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cash, err := e.CashCycle(gctx, w.From, w.To)
		if err != nil {
			return err
		}
		report.CashCycle = cash.CashCycle
		return nil
	})
	g.Go(func() error {
		wc, err := e.WorkingCapital(gctx, dashboardTopN)
		if err != nil {
			return err
		}
		report.TrappedCash = wc.TotalTrappedCash
		return nil
	})
	g.Go(func() error {
		items, err := e.StockoutRisks(gctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			if item.AtRisk {
				report.AtRiskProducts++
			}
		}
		return nil
	})
	g.Go(func() error {
		risks, err := e.SupplierRisks(gctx, analytics.RiskWeights{})
		if err != nil {
			return err
		}
		scores := risks.Scores
		if len(scores) > dashboardTopN {
			scores = scores[:dashboardTopN]
		}
		report.TopSupplierRisks = scores
		return nil
	})
	g.Go(func() error {
		movers, err := e.Velocity(gctx, w.From, w.To, dashboardTopN)
		if err != nil {
			return err
		}
		report.TopMovers = movers
		return nil
	})
	g.Go(func() error {
		recs, err := e.Recommendations(gctx, 0)
		if err != nil {
			return err
		}
		report.Recommendations = len(recs.Recommendations)
		return nil
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}
