package graphstore

import (
	"context"
	"fmt"
	"time"

	"chainsight/internal/analytics"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Client reads the supplier/product/customer relationship graph from Neo4j.
// It only ever issues read queries; the graph is maintained by the ingestion
// pipeline, not by this service.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewClient connects to Neo4j and verifies connectivity
func NewClient(uri, user, password, database string, logger *zap.Logger) (*Client, error) {
	auth := neo4j.BasicAuth(user, password, "")
	driver, err := neo4j.NewDriverWithContext(uri, auth, func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = 50
		cfg.SocketConnectTimeout = 10 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("graphstore: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graphstore: verify connectivity: %w", err)
	}

	return &Client{driver: driver, database: database, logger: logger}, nil
}

// Close closes the underlying driver
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	return c.driver.Close(ctx)
}

const nodeQuery = `
	MATCH (n)
	WHERE n:Supplier OR n:Product OR n:Customer
	RETURN labels(n)[0] AS label,
	       coalesce(n.supplier_id, n.product_id, n.customer_id) AS id,
	       coalesce(n.on_time_rate, 0.0) AS on_time_rate,
	       coalesce(n.lead_time_mean_days, 0.0) AS lead_time_mean,
	       coalesce(n.lead_time_stddev_days, 0.0) AS lead_time_stddev
	ORDER BY id`

const edgeQuery = `
	MATCH (a)-[r:SUPPLIES|SELLS_TO]->(b)
	RETURN coalesce(a.supplier_id, a.product_id) AS from_id,
	       coalesce(b.product_id, b.customer_id) AS to_id,
	       coalesce(r.volume_share, 0.0) AS volume_share
	ORDER BY from_id, to_id`

var labelKinds = map[string]string{
	"Supplier": analytics.NodeSupplier,
	"Product":  analytics.NodeProduct,
	"Customer": analytics.NodeCustomer,
}

// Snapshot loads the whole relationship graph into an in-memory snapshot.
// Edges referencing unknown nodes are excluded by the snapshot builder and
// reported back so callers can surface the data quality issue.
func (c *Client) Snapshot(ctx context.Context) (*analytics.GraphSnapshot, []string, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	nodes, err := c.loadNodes(ctx, session)
	if err != nil {
		return nil, nil, fmt.Errorf("graphstore: load nodes: %w", err)
	}
	edges, err := c.loadEdges(ctx, session)
	if err != nil {
		return nil, nil, fmt.Errorf("graphstore: load edges: %w", err)
	}

	snapshot, skipped := analytics.NewGraphSnapshot(nodes, edges)
	if len(skipped) > 0 {
		c.logger.Warn("graph edges referenced unknown nodes",
			zap.Int("skipped", len(skipped)))
	}
	return snapshot, skipped, nil
}

func (c *Client) loadNodes(ctx context.Context, session neo4j.SessionWithContext) ([]analytics.Node, error) {
	result, err := session.Run(ctx, nodeQuery, nil)
	if err != nil {
		return nil, err
	}

	var nodes []analytics.Node
	for result.Next(ctx) {
		rec := result.Record()
		label, _ := rec.Get("label")
		id, _ := rec.Get("id")
		kind, ok := labelKinds[asString(label)]
		if !ok || asString(id) == "" {
			continue
		}
		onTime, _ := rec.Get("on_time_rate")
		ltMean, _ := rec.Get("lead_time_mean")
		ltStddev, _ := rec.Get("lead_time_stddev")
		nodes = append(nodes, analytics.Node{
			ID:             asString(id),
			Kind:           kind,
			OnTimeRate:     asFloat(onTime),
			LeadTimeMean:   asFloat(ltMean),
			LeadTimeStddev: asFloat(ltStddev),
		})
	}
	return nodes, result.Err()
}

func (c *Client) loadEdges(ctx context.Context, session neo4j.SessionWithContext) ([]analytics.EdgeInput, error) {
	result, err := session.Run(ctx, edgeQuery, nil)
	if err != nil {
		return nil, err
	}

	var edges []analytics.EdgeInput
	for result.Next(ctx) {
		rec := result.Record()
		from, _ := rec.Get("from_id")
		to, _ := rec.Get("to_id")
		share, _ := rec.Get("volume_share")
		edges = append(edges, analytics.EdgeInput{
			FromID:      asString(from),
			ToID:        asString(to),
			VolumeShare: asFloat(share),
		})
	}
	return edges, result.Err()
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}
