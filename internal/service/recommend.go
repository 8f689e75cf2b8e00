package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"chainsight/internal/analytics"
	"chainsight/internal/models"
)

// RecommendationReport is the ranked reorder list for one window
type RecommendationReport struct {
	Window          Window                     `json:"window"`
	Recommendations []analytics.Recommendation `json:"recommendations"`
	Skipped         []analytics.SkippedProduct `json:"skipped,omitempty"`
}

// Recommendations fuses stock positions, demand, revenue class and supplier
// risk into a prioritized reorder list. The tabular and graph inputs are
// fetched in parallel; a product with no supplier data is still ranked, with
// the gap marked on the result.
func (e *Engine) Recommendations(ctx context.Context, limit int) (report *RecommendationReport, err error) {
	ctx, done := e.startOp(ctx, "recommendations")
	defer func() { done(err) }()

	w := e.resolveWindow(time.Time{}, time.Time{})
	key := windowKey("recommendations", w)
	var cached RecommendationReport
	if e.cacheGet(ctx, key, &cached) {
		return trimRecommendations(&cached, limit), nil
	}

	var products []models.Product
	var snapshots []models.InventorySnapshot
	var sales []models.SalesTransaction
	var snapshot *analytics.GraphSnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, snapshots, sales, err = e.positionInputs(gctx, w)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot, _, err = e.graphSnapshot(gctx)
		return err
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	classes := analytics.ClassifyProducts(products, sales, analytics.DefaultClassifyConfig())
	classByProduct := make(map[string]string, len(classes))
	for _, c := range classes {
		classByProduct[c.ProductID] = c.ABCClass
	}

	riskByProduct, err := productSupplierRisk(snapshot)
	if err != nil {
		return nil, err
	}

	positions := analytics.LatestPositions(snapshots)
	candidates := make([]analytics.ReorderCandidate, 0, len(positions))
	for _, pos := range positions {
		product, found := productLookup(products, pos.ProductID)
		if !found {
			continue
		}
		velocity, stddev := analytics.DemandStats(analytics.BuildDailySeries(sales, pos.ProductID))

		risk, known := riskByProduct[pos.ProductID]
		if !known {
			risk = analytics.UndefinedMetric("no supplier data for product")
		}

		candidates = append(candidates, analytics.ReorderCandidate{
			Product:       product,
			ABCClass:      classByProduct[pos.ProductID],
			QtyOnHand:     pos.QtyOnHand,
			QtyOnOrder:    pos.QtyOnOrder,
			DailyVelocity: velocity,
			DemandStddev:  stddev,
			SupplierRisk:  risk,
		})
	}

	cfg := analytics.DefaultRecommendConfig()
	cfg.OrderCost = e.opts.OrderCost
	cfg.HoldingRate = e.opts.HoldingRate
	cfg.ServiceLevel = e.opts.ServiceLevel
	cfg.SafetyMarginDays = e.opts.SafetyMarginDays

	recs, skipped, err := analytics.RankReorders(candidates, cfg)
	if err != nil {
		return nil, err
	}

	report = &RecommendationReport{Window: w, Recommendations: recs, Skipped: skipped}
	e.cacheSet(ctx, key, report)
	return trimRecommendations(report, limit), nil
}

// productSupplierRisk maps each product to the worst composite risk among its
// suppliers
func productSupplierRisk(snapshot *analytics.GraphSnapshot) (map[string]analytics.Metric, error) {
	scores, _, err := snapshot.SupplierRiskScores(analytics.DefaultRiskWeights())
	if err != nil {
		return nil, err
	}
	scoreBySupplier := make(map[string]float64, len(scores))
	for _, s := range scores {
		scoreBySupplier[s.SupplierID] = s.RiskScore
	}

	out := make(map[string]analytics.Metric)
	for _, edge := range snapshot.Network() {
		if edge.FromKind != analytics.NodeSupplier || edge.ToKind != analytics.NodeProduct {
			continue
		}
		score, scored := scoreBySupplier[edge.FromID]
		if !scored {
			continue
		}
		if cur, ok := out[edge.ToID]; !ok || score > cur.Value {
			out[edge.ToID] = analytics.DefinedMetric(score)
		}
	}
	return out, nil
}

func trimRecommendations(report *RecommendationReport, limit int) *RecommendationReport {
	if limit > 0 && len(report.Recommendations) > limit {
		trimmed := *report
		trimmed.Recommendations = report.Recommendations[:limit]
		return &trimmed
	}
	return report
}
