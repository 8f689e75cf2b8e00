package analytics

import (
	"fmt"
	"sort"
)

// Node kinds in the relationship graph
const (
	NodeSupplier = "supplier"
	NodeProduct  = "product"
	NodeCustomer = "customer"
)

// Node is one vertex of the supplier/product/customer graph. Supplier nodes
// carry the delivery statistics used for risk scoring.
type Node struct {
	ID             string  `json:"id"`
	Kind           string  `json:"kind"`
	OnTimeRate     float64 `json:"on_time_rate,omitempty"`
	LeadTimeMean   float64 `json:"lead_time_mean_days,omitempty"`
	LeadTimeStddev float64 `json:"lead_time_stddev_days,omitempty"`
}

// EdgeInput is one weighted directed edge by node id
type EdgeInput struct {
	FromID      string  `json:"from_id"`
	ToID        string  `json:"to_id"`
	VolumeShare float64 `json:"volume_share"`
}

type arc struct {
	peer  int
	share float64
}

// GraphSnapshot is an index-based, immutable view of the relationship graph.
// Nodes live in a flat table sorted by id and edges are adjacency lists of
// indices, so traversal order is deterministic and termination is bounded by
// the snapshot size.
type GraphSnapshot struct {
	nodes []Node
	out   [][]arc
	in    [][]arc
	index map[string]int
	edges int
}

// NewGraphSnapshot builds a snapshot from nodes and edges. Edges referencing
// unknown nodes are excluded and reported rather than failing the build.
func NewGraphSnapshot(nodes []Node, edges []EdgeInput) (*GraphSnapshot, []string) {
	sorted := make([]Node, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	g := &GraphSnapshot{
		nodes: sorted,
		out:   make([][]arc, len(sorted)),
		in:    make([][]arc, len(sorted)),
		index: make(map[string]int, len(sorted)),
	}
	for i, n := range sorted {
		g.index[n.ID] = i
	}

	var skipped []string
	for _, e := range edges {
		from, okFrom := g.index[e.FromID]
		to, okTo := g.index[e.ToID]
		if !okFrom || !okTo {
			skipped = append(skipped, fmt.Sprintf("edge %s->%s references unknown node", e.FromID, e.ToID))
			continue
		}
		g.out[from] = append(g.out[from], arc{peer: to, share: e.VolumeShare})
		g.in[to] = append(g.in[to], arc{peer: from, share: e.VolumeShare})
		g.edges++
	}
	for i := range g.out {
		sortArcs(g.out[i], g.nodes)
		sortArcs(g.in[i], g.nodes)
	}
	return g, skipped
}

func sortArcs(arcs []arc, nodes []Node) {
	sort.Slice(arcs, func(i, j int) bool { return nodes[arcs[i].peer].ID < nodes[arcs[j].peer].ID })
}

// Nodes returns the node table in id order
func (g *GraphSnapshot) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// EdgeCount returns the number of edges kept in the snapshot
func (g *GraphSnapshot) EdgeCount() int {
	return g.edges
}

// NetworkEdge is one relationship in the full network listing
type NetworkEdge struct {
	FromID      string  `json:"from_id"`
	FromKind    string  `json:"from_kind"`
	ToID        string  `json:"to_id"`
	ToKind      string  `json:"to_kind"`
	VolumeShare float64 `json:"volume_share"`
}

// Network lists every edge, ordered by source then target id
func (g *GraphSnapshot) Network() []NetworkEdge {
	edges := make([]NetworkEdge, 0, g.edges)
	for i, arcs := range g.out {
		for _, a := range arcs {
			edges = append(edges, NetworkEdge{
				FromID:      g.nodes[i].ID,
				FromKind:    g.nodes[i].Kind,
				ToID:        g.nodes[a.peer].ID,
				ToKind:      g.nodes[a.peer].Kind,
				VolumeShare: a.share,
			})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromID != edges[j].FromID {
			return edges[i].FromID < edges[j].FromID
		}
		return edges[i].ToID < edges[j].ToID
	})
	return edges
}

// ConcentrationResult is the edge-weight concentration of one node
type ConcentrationResult struct {
	NodeID     string `json:"node_id"`
	EdgeCount  int    `json:"edge_count"`
	Herfindahl Metric `json:"herfindahl"`
	MaxShare   Metric `json:"max_share"`
}

// Concentration computes the Herfindahl index and maximum share over a
// node's outgoing edge weights, falling back to incoming edges for sink
// nodes. Shares are renormalized so partial volume data still sums to one.
func (g *GraphSnapshot) Concentration(nodeID string) (*ConcentrationResult, error) {
	idx, ok := g.index[nodeID]
	if !ok {
		return nil, invalidInput("node_id", "unknown node %q", nodeID)
	}
	arcs := g.out[idx]
	if len(arcs) == 0 {
		arcs = g.in[idx]
	}
	res := &ConcentrationResult{NodeID: nodeID, EdgeCount: len(arcs)}
	hhi, maxShare, ok := concentrationOf(arcs)
	if !ok {
		res.Herfindahl = UndefinedMetric("node has no weighted edges")
		res.MaxShare = UndefinedMetric("node has no weighted edges")
		return res, nil
	}
	res.Herfindahl = DefinedMetric(hhi)
	res.MaxShare = DefinedMetric(maxShare)
	return res, nil
}

func concentrationOf(arcs []arc) (hhi, maxShare float64, ok bool) {
	var total float64
	for _, a := range arcs {
		total += a.share
	}
	if total == 0 {
		return 0, 0, false
	}
	for _, a := range arcs {
		s := a.share / total
		hhi += s * s
		if s > maxShare {
			maxShare = s
		}
	}
	return hhi, maxShare, true
}

// RiskWeights are the component weights of the composite supplier risk
// score. The engine explicitly normalizes them to sum to one; only a
// non-positive sum is rejected.
type RiskWeights struct {
	LeadTimeVariability float64 `json:"lead_time_variability"`
	OnTimeRate          float64 `json:"on_time_rate"`
	Concentration       float64 `json:"concentration"`
}

// DefaultRiskWeights returns the 0.4/0.35/0.25 default split
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{LeadTimeVariability: 0.4, OnTimeRate: 0.35, Concentration: 0.25}
}

func (w RiskWeights) normalize() (RiskWeights, error) {
	sum := w.LeadTimeVariability + w.OnTimeRate + w.Concentration
	if sum <= 0 {
		return RiskWeights{}, invalidInput("risk_weights", "weights must sum to a positive value, got %.3f", sum)
	}
	return RiskWeights{
		LeadTimeVariability: w.LeadTimeVariability / sum,
		OnTimeRate:          w.OnTimeRate / sum,
		Concentration:       w.Concentration / sum,
	}, nil
}

// SupplierRisk is the composite risk score of one supplier, normalized to
// [0,1], with the components that produced it
type SupplierRisk struct {
	SupplierID          string  `json:"supplier_id"`
	RiskScore           float64 `json:"risk_score"`
	RiskLevel           string  `json:"risk_level"`
	LeadTimeVariability float64 `json:"lead_time_variability"`
	LateRate            float64 `json:"late_rate"`
	Concentration       float64 `json:"concentration"`
	ProductCount        int     `json:"product_count"`
}

// ExcludedNode marks a node left out of a batch computation, with the reason
type ExcludedNode struct {
	NodeID string `json:"node_id"`
	Reason string `json:"reason"`
}

// SupplierRiskScores scores every supplier node with edges. The lead-time
// component is the coefficient of variation squashed into [0,1); the on-time
// component is the late-delivery rate; concentration is the Herfindahl index
// of the supplier's product volume shares. Suppliers without edges are
// excluded with a reason.
func (g *GraphSnapshot) SupplierRiskScores(weights RiskWeights) ([]SupplierRisk, []ExcludedNode, error) {
	w, err := weights.normalize()
	if err != nil {
		return nil, nil, err
	}

	scores := make([]SupplierRisk, 0)
	var excluded []ExcludedNode
	for i, n := range g.nodes {
		if n.Kind != NodeSupplier {
			continue
		}
		if len(g.out[i]) == 0 {
			excluded = append(excluded, ExcludedNode{NodeID: n.ID, Reason: "supplier has no product edges"})
			continue
		}
		scores = append(scores, g.scoreSupplier(i, w))
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].RiskScore != scores[j].RiskScore {
			return scores[i].RiskScore > scores[j].RiskScore
		}
		return scores[i].SupplierID < scores[j].SupplierID
	})
	return scores, excluded, nil
}

func (g *GraphSnapshot) scoreSupplier(idx int, w RiskWeights) SupplierRisk {
	n := g.nodes[idx]

	var variability float64
	if n.LeadTimeMean > 0 {
		cv := n.LeadTimeStddev / n.LeadTimeMean
		variability = cv / (1 + cv)
	}
	late := clamp01(1 - n.OnTimeRate)
	hhi, _, ok := concentrationOf(g.out[idx])
	if !ok {
		hhi = 0
	}

	score := w.LeadTimeVariability*variability + w.OnTimeRate*late + w.Concentration*hhi
	return SupplierRisk{
		SupplierID:          n.ID,
		RiskScore:           clamp01(score),
		RiskLevel:           riskLevel(score),
		LeadTimeVariability: variability,
		LateRate:            late,
		Concentration:       hhi,
		ProductCount:        len(g.out[idx]),
	}
}

func riskLevel(score float64) string {
	switch {
	case score > 0.6:
		return "high"
	case score > 0.3:
		return "medium"
	default:
		return "low"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SingleSourceRisk is a product supplied by exactly one supplier
type SingleSourceRisk struct {
	ProductID      string `json:"product_id"`
	SoleSupplierID string `json:"sole_supplier_id"`
}

// SingleSourceProducts returns products with supplier in-degree exactly one,
// in product id order. Products with no supplier edges are not reported;
// they have no supplier data rather than a single source.
func (g *GraphSnapshot) SingleSourceProducts() []SingleSourceRisk {
	risks := make([]SingleSourceRisk, 0)
	for i, n := range g.nodes {
		if n.Kind != NodeProduct {
			continue
		}
		suppliers := g.supplierArcs(i)
		if len(suppliers) == 1 {
			risks = append(risks, SingleSourceRisk{
				ProductID:      n.ID,
				SoleSupplierID: g.nodes[suppliers[0].peer].ID,
			})
		}
	}
	return risks
}

func (g *GraphSnapshot) supplierArcs(idx int) []arc {
	arcs := make([]arc, 0, len(g.in[idx]))
	for _, a := range g.in[idx] {
		if g.nodes[a.peer].Kind == NodeSupplier {
			arcs = append(arcs, a)
		}
	}
	return arcs
}

// AffectedProduct is one product reachable from a failing node, with its
// remaining supplier redundancy after the failure
type AffectedProduct struct {
	ProductID           string `json:"product_id"`
	Depth               int    `json:"depth"`
	RemainingRedundancy int    `json:"remaining_redundancy"`
}

// AffectedCustomer is one customer reachable from a failing node
type AffectedCustomer struct {
	CustomerID string `json:"customer_id"`
	Depth      int    `json:"depth"`
}

// RippleResult is the downstream impact of one node failure
type RippleResult struct {
	FailedNodeID      string             `json:"failed_node_id"`
	AffectedProducts  []AffectedProduct  `json:"affected_products"`
	AffectedCustomers []AffectedCustomer `json:"affected_customers"`
	TotalAffected     int                `json:"total_affected"`
	Severity          string             `json:"severity"`
}

// Ripple traverses downstream from a failing supplier or product node with a
// breadth-first walk, visiting neighbors in id order and never revisiting a
// node, so the result is deterministic and cycle-safe. maxDepth 0 means
// unlimited within the connected component. Remaining redundancy per product
// is its supplier in-degree minus one, floored at zero.
func (g *GraphSnapshot) Ripple(failedNodeID string, maxDepth int) (*RippleResult, error) {
	start, ok := g.index[failedNodeID]
	if !ok {
		return nil, invalidInput("node_id", "unknown node %q", failedNodeID)
	}
	if maxDepth < 0 {
		return nil, invalidInput("max_depth", "must be non-negative, got %d", maxDepth)
	}
	if kind := g.nodes[start].Kind; kind == NodeCustomer {
		return nil, invalidInput("node_id", "ripple starts from a supplier or product, got %s node %q", kind, failedNodeID)
	}

	result := &RippleResult{FailedNodeID: failedNodeID}
	visited := make([]bool, len(g.nodes))
	visited[start] = true

	type queued struct {
		idx   int
		depth int
	}
	queue := []queued{{idx: start}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if maxDepth > 0 && cur.depth >= maxDepth {
			continue
		}
		for _, a := range g.out[cur.idx] {
			if visited[a.peer] {
				continue
			}
			visited[a.peer] = true
			depth := cur.depth + 1
			switch n := g.nodes[a.peer]; n.Kind {
			case NodeProduct:
				redundancy := len(g.supplierArcs(a.peer)) - 1
				if redundancy < 0 {
					redundancy = 0
				}
				result.AffectedProducts = append(result.AffectedProducts, AffectedProduct{
					ProductID:           n.ID,
					Depth:               depth,
					RemainingRedundancy: redundancy,
				})
			case NodeCustomer:
				result.AffectedCustomers = append(result.AffectedCustomers, AffectedCustomer{CustomerID: n.ID, Depth: depth})
			}
			queue = append(queue, queued{idx: a.peer, depth: depth})
		}
	}

	result.TotalAffected = len(result.AffectedProducts) + len(result.AffectedCustomers)
	switch {
	case result.TotalAffected > 10:
		result.Severity = "high"
	case result.TotalAffected > 3:
		result.Severity = "medium"
	default:
		result.Severity = "low"
	}
	return result, nil
}

// AlternativeSuppliers returns the suppliers connected to a product other
// than the one under consideration, ranked by ascending composite risk
func (g *GraphSnapshot) AlternativeSuppliers(productID, excludeSupplierID string, weights RiskWeights) ([]SupplierRisk, error) {
	w, err := weights.normalize()
	if err != nil {
		return nil, err
	}
	idx, ok := g.index[productID]
	if !ok {
		return nil, invalidInput("product_id", "unknown product %q", productID)
	}
	if g.nodes[idx].Kind != NodeProduct {
		return nil, invalidInput("product_id", "node %q is a %s, not a product", productID, g.nodes[idx].Kind)
	}

	alternatives := make([]SupplierRisk, 0)
	for _, a := range g.supplierArcs(idx) {
		if g.nodes[a.peer].ID == excludeSupplierID {
			continue
		}
		alternatives = append(alternatives, g.scoreSupplier(a.peer, w))
	}
	sort.Slice(alternatives, func(i, j int) bool {
		if alternatives[i].RiskScore != alternatives[j].RiskScore {
			return alternatives[i].RiskScore < alternatives[j].RiskScore
		}
		return alternatives[i].SupplierID < alternatives[j].SupplierID
	})
	return alternatives, nil
}

// SupplierLeadTime is one supplier's lead-time spread for variability ranking
type SupplierLeadTime struct {
	SupplierID     string  `json:"supplier_id"`
	LeadTimeMean   float64 `json:"lead_time_mean_days"`
	LeadTimeStddev float64 `json:"lead_time_stddev_days"`
	ProductCount   int     `json:"product_count"`
}

// LeadTimeVariability ranks suppliers by lead-time standard deviation
// descending, ties by id
func (g *GraphSnapshot) LeadTimeVariability() []SupplierLeadTime {
	out := make([]SupplierLeadTime, 0)
	for i, n := range g.nodes {
		if n.Kind != NodeSupplier {
			continue
		}
		out = append(out, SupplierLeadTime{
			SupplierID:     n.ID,
			LeadTimeMean:   n.LeadTimeMean,
			LeadTimeStddev: n.LeadTimeStddev,
			ProductCount:   len(g.out[i]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LeadTimeStddev != out[j].LeadTimeStddev {
			return out[i].LeadTimeStddev > out[j].LeadTimeStddev
		}
		return out[i].SupplierID < out[j].SupplierID
	})
	return out
}
