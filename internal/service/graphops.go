package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"chainsight/internal/analytics"
	"chainsight/internal/models"
)

// GraphReport carries a graph computation result together with the edges the
// snapshot had to exclude, so data quality problems stay visible
type GraphReport struct {
	SkippedEdges []string `json:"skipped_edges,omitempty"`
}

// graphSnapshot loads the relationship graph from the graph accessor, or
// assembles it from the tabular mirror when no graph database is configured.
// The derived product-to-customer edges carry each customer's revenue share
// of the product.
func (e *Engine) graphSnapshot(ctx context.Context) (*analytics.GraphSnapshot, []string, error) {
	if e.graph != nil {
		snapshot, skipped, err := e.graph.Snapshot(ctx)
		if err != nil {
			return nil, nil, accessErr("graph snapshot", err)
		}
		return snapshot, skipped, nil
	}

	var suppliers []models.Supplier
	var products []models.Product
	var customers []models.Customer
	var edges []models.SupplierProductEdge
	var sales []models.SalesTransaction

	w := e.resolveWindow(time.Time{}, time.Time{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if suppliers, err = e.tab.Suppliers(gctx); err != nil {
			return accessErr("suppliers", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if products, err = e.tab.Products(gctx); err != nil {
			return accessErr("products", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if customers, err = e.tab.Customers(gctx); err != nil {
			return accessErr("customers", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if edges, err = e.tab.SupplierProductEdges(gctx); err != nil {
			return accessErr("supplier product edges", err)
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
		return nil, nil, err
	}

	nodes := make([]analytics.Node, 0, len(suppliers)+len(products)+len(customers))
	for _, s := range suppliers {
		nodes = append(nodes, analytics.Node{
			ID:             s.ID,
			Kind:           analytics.NodeSupplier,
			OnTimeRate:     s.OnTimeRate,
			LeadTimeMean:   s.LeadTimeMean,
			LeadTimeStddev: s.LeadTimeStddev,
		})
	}
	for _, p := range products {
		nodes = append(nodes, analytics.Node{ID: p.ID, Kind: analytics.NodeProduct})
	}
	for _, c := range customers {
		nodes = append(nodes, analytics.Node{ID: c.ID, Kind: analytics.NodeCustomer})
	}

	inputs := make([]analytics.EdgeInput, 0, len(edges))
	for _, edge := range edges {
		inputs = append(inputs, analytics.EdgeInput{
			FromID:      edge.SupplierID,
			ToID:        edge.ProductID,
			VolumeShare: edge.VolumeShare,
		})
	}
	inputs = append(inputs, salesEdges(sales)...)

	snapshot, skipped := analytics.NewGraphSnapshot(nodes, inputs)
	return snapshot, skipped, nil
}

// salesEdges derives product-to-customer edges weighted by each customer's
// share of the product's revenue
func salesEdges(sales []models.SalesTransaction) []analytics.EdgeInput {
	type pair struct{ product, customer string }
	revenue := make(map[pair]float64)
	totals := make(map[string]float64)
	for _, t := range sales {
		if t.CustomerID == "" {
			continue
		}
		revenue[pair{t.ProductID, t.CustomerID}] += t.Revenue
		totals[t.ProductID] += t.Revenue
	}

	edges := make([]analytics.EdgeInput, 0, len(revenue))
	for p, r := range revenue {
		share := 0.0
		if totals[p.product] > 0 {
			share = r / totals[p.product]
		}
		edges = append(edges, analytics.EdgeInput{FromID: p.product, ToID: p.customer, VolumeShare: share})
	}
	return edges
}

// NetworkReport is the full relationship network listing
type NetworkReport struct {
	GraphReport
	Nodes []analytics.Node        `json:"nodes"`
	Edges []analytics.NetworkEdge `json:"edges"`
}

// Network lists every node and relationship in the graph
func (e *Engine) Network(ctx context.Context) (report *NetworkReport, err error) {
	ctx, done := e.startOp(ctx, "network")
	defer func() { done(err) }()

	snapshot, skipped, err := e.graphSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &NetworkReport{
		GraphReport: GraphReport{SkippedEdges: skipped},
		Nodes:       snapshot.Nodes(),
		Edges:       snapshot.Network(),
	}, nil
}

// NodeConcentration computes the Herfindahl concentration of one node's edges
func (e *Engine) NodeConcentration(ctx context.Context, nodeID string) (result *analytics.ConcentrationResult, err error) {
	ctx, done := e.startOp(ctx, "node_concentration")
	defer func() { done(err) }()

	snapshot, _, err := e.graphSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Concentration(nodeID)
}

// SupplierRiskReport is the scored supplier list with exclusions
type SupplierRiskReport struct {
	GraphReport
	Weights  analytics.RiskWeights    `json:"weights"`
	Scores   []analytics.SupplierRisk `json:"scores"`
	Excluded []analytics.ExcludedNode `json:"excluded,omitempty"`
}

// SupplierRisks scores every connected supplier. Zero weights fall back to
// the default split.
func (e *Engine) SupplierRisks(ctx context.Context, weights analytics.RiskWeights) (report *SupplierRiskReport, err error) {
	ctx, done := e.startOp(ctx, "supplier_risks")
	defer func() { done(err) }()

	if weights == (analytics.RiskWeights{}) {
		weights = analytics.DefaultRiskWeights()
	}

	key := "supplier_risks:default"
	if weights == analytics.DefaultRiskWeights() {
		var cached SupplierRiskReport
		if e.cacheGet(ctx, key, &cached) {
			return &cached, nil
		}
	}

	snapshot, skipped, err := e.graphSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	scores, excluded, err := snapshot.SupplierRiskScores(weights)
	if err != nil {
		return nil, err
	}
	report = &SupplierRiskReport{
		GraphReport: GraphReport{SkippedEdges: skipped},
		Weights:     weights,
		Scores:      scores,
		Excluded:    excluded,
	}
	if weights == analytics.DefaultRiskWeights() {
		e.cacheSet(ctx, key, report)
	}
	return report, nil
}

// SingleSourceRisks lists products supplied by exactly one supplier
func (e *Engine) SingleSourceRisks(ctx context.Context) (risks []analytics.SingleSourceRisk, err error) {
	ctx, done := e.startOp(ctx, "single_source_risks")
	defer func() { done(err) }()

	snapshot, _, err := e.graphSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.SingleSourceProducts(), nil
}

// Ripple simulates the downstream impact of a supplier or product failure.
// maxDepth 0 traverses the whole connected component.
func (e *Engine) Ripple(ctx context.Context, nodeID string, maxDepth int) (result *analytics.RippleResult, err error) {
	ctx, done := e.startOp(ctx, "ripple")
	defer func() { done(err) }()

	snapshot, _, err := e.graphSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Ripple(nodeID, maxDepth)
}

// AlternativeSuppliers ranks the other suppliers of a product by risk
func (e *Engine) AlternativeSuppliers(ctx context.Context, productID, excludeSupplierID string) (alts []analytics.SupplierRisk, err error) {
	ctx, done := e.startOp(ctx, "alternative_suppliers")
	defer func() { done(err) }()

	snapshot, _, err := e.graphSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.AlternativeSuppliers(productID, excludeSupplierID, analytics.DefaultRiskWeights())
}

// LeadTimeVariability ranks suppliers by lead-time spread
func (e *Engine) LeadTimeVariability(ctx context.Context) (ranked []analytics.SupplierLeadTime, err error) {
	ctx, done := e.startOp(ctx, "lead_time_variability")
	defer func() { done(err) }()

	snapshot, _, err := e.graphSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.LeadTimeVariability(), nil
}
