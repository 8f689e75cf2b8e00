package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testGraph builds:
//
//	S1 -> P1 -> C1
//	S1 -> P2
//	S2 -> P2
//	S3 (isolated)
//	P3 (no supplier edges)
func testGraph(t *testing.T) *GraphSnapshot {
	t.Helper()
	nodes := []Node{
		{ID: "S1", Kind: NodeSupplier, OnTimeRate: 0.95, LeadTimeMean: 10, LeadTimeStddev: 2},
		{ID: "S2", Kind: NodeSupplier, OnTimeRate: 0.80, LeadTimeMean: 20, LeadTimeStddev: 10},
		{ID: "S3", Kind: NodeSupplier, OnTimeRate: 0.99, LeadTimeMean: 5, LeadTimeStddev: 1},
		{ID: "P1", Kind: NodeProduct},
		{ID: "P2", Kind: NodeProduct},
		{ID: "P3", Kind: NodeProduct},
		{ID: "C1", Kind: NodeCustomer},
	}
	edges := []EdgeInput{
		{FromID: "S1", ToID: "P1", VolumeShare: 1.0},
		{FromID: "S1", ToID: "P2", VolumeShare: 0.6},
		{FromID: "S2", ToID: "P2", VolumeShare: 0.4},
		{FromID: "P1", ToID: "C1", VolumeShare: 1.0},
	}
	g, skipped := NewGraphSnapshot(nodes, edges)
	require.Empty(t, skipped)
	return g
}

func TestNewGraphSnapshotSkipsUnknownEdges(t *testing.T) {
	nodes := []Node{{ID: "S1", Kind: NodeSupplier}}
	edges := []EdgeInput{{FromID: "S1", ToID: "GHOST", VolumeShare: 1}}

	g, skipped := NewGraphSnapshot(nodes, edges)
	assert.Equal(t, 0, g.EdgeCount())
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0], "GHOST")
}

func TestSingleSourceProducts(t *testing.T) {
	g := testGraph(t)

	risks := g.SingleSourceProducts()
	require.Len(t, risks, 1, "P1 has in-degree 1, P2 has 2, P3 has 0")
	assert.Equal(t, "P1", risks[0].ProductID)
	assert.Equal(t, "S1", risks[0].SoleSupplierID)
}

func TestRippleFromSupplier(t *testing.T) {
	g := testGraph(t)

	result, err := g.Ripple("S1", 0)
	require.NoError(t, err)

	require.Len(t, result.AffectedProducts, 2)
	assert.Equal(t, "P1", result.AffectedProducts[0].ProductID)
	assert.Equal(t, 0, result.AffectedProducts[0].RemainingRedundancy)
	assert.Equal(t, "P2", result.AffectedProducts[1].ProductID)
	assert.Equal(t, 1, result.AffectedProducts[1].RemainingRedundancy, "P2 keeps one supplier after S1 fails")

	require.Len(t, result.AffectedCustomers, 1)
	assert.Equal(t, "C1", result.AffectedCustomers[0].CustomerID)
	assert.Equal(t, 2, result.AffectedCustomers[0].Depth)
	assert.Equal(t, 3, result.TotalAffected)
}

func TestRippleIsolatedNode(t *testing.T) {
	g := testGraph(t)

	result, err := g.Ripple("S3", 0)
	require.NoError(t, err)
	assert.Empty(t, result.AffectedProducts)
	assert.Empty(t, result.AffectedCustomers)
	assert.Equal(t, 0, result.TotalAffected)
	assert.Equal(t, "low", result.Severity)
}

func TestRippleIdempotent(t *testing.T) {
	g := testGraph(t)

	first, err := g.Ripple("S1", 0)
	require.NoError(t, err)
	second, err := g.Ripple("S1", 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRippleDepthLimit(t *testing.T) {
	g := testGraph(t)

	result, err := g.Ripple("S1", 1)
	require.NoError(t, err)
	assert.Len(t, result.AffectedProducts, 2)
	assert.Empty(t, result.AffectedCustomers, "C1 sits at depth 2")
}

func TestRippleCycleSafe(t *testing.T) {
	nodes := []Node{
		{ID: "A", Kind: NodeProduct},
		{ID: "B", Kind: NodeProduct},
		{ID: "S", Kind: NodeSupplier},
	}
	edges := []EdgeInput{
		{FromID: "S", ToID: "A", VolumeShare: 1},
		{FromID: "A", ToID: "B", VolumeShare: 1},
		{FromID: "B", ToID: "A", VolumeShare: 1},
	}
	g, _ := NewGraphSnapshot(nodes, edges)

	result, err := g.Ripple("S", 0)
	require.NoError(t, err)
	assert.Len(t, result.AffectedProducts, 2, "traversal must terminate on the cycle")
}

func TestRippleErrors(t *testing.T) {
	g := testGraph(t)

	_, err := g.Ripple("GHOST", 0)
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)

	_, err = g.Ripple("C1", 0)
	require.ErrorAs(t, err, &invalid, "customers cannot be the failing node")

	_, err = g.Ripple("S1", -1)
	require.ErrorAs(t, err, &invalid)
}

func TestSupplierRiskScores(t *testing.T) {
	g := testGraph(t)

	scores, excluded, err := g.SupplierRiskScores(DefaultRiskWeights())
	require.NoError(t, err)

	require.Len(t, scores, 2)
	require.Len(t, excluded, 1)
	assert.Equal(t, "S3", excluded[0].NodeID, "suppliers without edges are excluded, not scored zero")
	assert.NotEmpty(t, excluded[0].Reason)

	// S2 is worse on every component
	assert.Equal(t, "S2", scores[0].SupplierID)
	for _, s := range scores {
		assert.GreaterOrEqual(t, s.RiskScore, 0.0)
		assert.LessOrEqual(t, s.RiskScore, 1.0)
	}
}

func TestSupplierRiskWeightsNormalized(t *testing.T) {
	g := testGraph(t)

	// weights sum to 2; scoring must normalize, not fail
	doubled := RiskWeights{LeadTimeVariability: 0.8, OnTimeRate: 0.7, Concentration: 0.5}
	base, _, err := g.SupplierRiskScores(DefaultRiskWeights())
	require.NoError(t, err)
	scaled, _, err := g.SupplierRiskScores(doubled)
	require.NoError(t, err)
	require.Len(t, scaled, len(base))
	for i := range base {
		assert.InDelta(t, base[i].RiskScore, scaled[i].RiskScore, 1e-9)
	}

	_, _, err = g.SupplierRiskScores(RiskWeights{})
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
}

func TestConcentration(t *testing.T) {
	g := testGraph(t)

	res, err := g.Concentration("S1")
	require.NoError(t, err)
	require.True(t, res.Herfindahl.Defined)
	// shares 1.0 and 0.6 normalize to 0.625/0.375
	assert.InDelta(t, 0.625*0.625+0.375*0.375, res.Herfindahl.Value, 1e-9)
	assert.InDelta(t, 0.625, res.MaxShare.Value, 1e-9)

	// single-edge node concentrates fully
	res, err = g.Concentration("P1")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Herfindahl.Value, 1e-9)

	_, err = g.Concentration("GHOST")
	assert.Error(t, err)
}

func TestAlternativeSuppliers(t *testing.T) {
	g := testGraph(t)

	alts, err := g.AlternativeSuppliers("P2", "S1", DefaultRiskWeights())
	require.NoError(t, err)
	require.Len(t, alts, 1)
	assert.Equal(t, "S2", alts[0].SupplierID)

	alts, err = g.AlternativeSuppliers("P1", "S1", DefaultRiskWeights())
	require.NoError(t, err)
	assert.Empty(t, alts, "single-sourced product has no alternatives")

	_, err = g.AlternativeSuppliers("S1", "", DefaultRiskWeights())
	assert.Error(t, err, "node must be a product")
}

func TestLeadTimeVariabilityRanking(t *testing.T) {
	g := testGraph(t)

	ranked := g.LeadTimeVariability()
	require.Len(t, ranked, 3)
	assert.Equal(t, "S2", ranked[0].SupplierID)
	assert.Equal(t, "S1", ranked[1].SupplierID)
	assert.Equal(t, "S3", ranked[2].SupplierID)
}

func TestNetworkListing(t *testing.T) {
	g := testGraph(t)

	edges := g.Network()
	require.Len(t, edges, 4)
	assert.Equal(t, "P1", edges[0].FromID)
	assert.Equal(t, NodeCustomer, edges[0].ToKind)
	assert.Equal(t, "S1", edges[1].FromID)
	assert.Equal(t, "P1", edges[1].ToID)
}
