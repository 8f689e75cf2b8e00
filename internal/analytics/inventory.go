package analytics

import (
	"math"
	"sort"
	"time"

	"chainsight/internal/models"
)

// DefaultServiceLevels maps service level to its one-sided normal Z value.
// An unrecognized level is rejected rather than rounded to a neighbor.
var DefaultServiceLevels = map[float64]float64{
	0.90: 1.28,
	0.95: 1.65,
	0.98: 2.05,
	0.99: 2.33,
}

// EOQ returns the economic order quantity ceil(sqrt(2DS/H)) in whole units.
// D is annual demand, S fixed order cost, H annual holding cost per unit.
func EOQ(annualDemand, orderCost, holdingCost float64) (int, error) {
	if annualDemand <= 0 {
		return 0, invalidInput("annual_demand", "must be positive, got %.2f", annualDemand)
	}
	if orderCost <= 0 {
		return 0, invalidInput("order_cost", "must be positive, got %.2f", orderCost)
	}
	if holdingCost <= 0 {
		return 0, invalidInput("holding_cost", "must be positive, got %.2f", holdingCost)
	}
	return int(math.Ceil(math.Sqrt(2 * annualDemand * orderCost / holdingCost))), nil
}

// SafetyStock returns Z * sigma * sqrt(leadTime/periodDays) where sigma is
// the demand standard deviation observed over periodDays.
func SafetyStock(serviceLevel, demandStddev float64, leadTimeDays int, demandPeriodDays int, zTable map[float64]float64) (float64, error) {
	if zTable == nil {
		zTable = DefaultServiceLevels
	}
	z, ok := zTable[serviceLevel]
	if !ok {
		return 0, invalidInput("service_level", "no Z value configured for %.2f", serviceLevel)
	}
	if demandStddev < 0 {
		return 0, invalidInput("demand_stddev", "must be non-negative, got %.2f", demandStddev)
	}
	if leadTimeDays < 0 {
		return 0, invalidInput("lead_time_days", "must be non-negative, got %d", leadTimeDays)
	}
	if demandPeriodDays <= 0 {
		return 0, invalidInput("demand_period_days", "must be positive, got %d", demandPeriodDays)
	}
	return z * demandStddev * math.Sqrt(float64(leadTimeDays)/float64(demandPeriodDays)), nil
}

// ReorderPoint returns avg daily demand over the lead time plus safety stock
func ReorderPoint(avgDailyDemand float64, leadTimeDays int, safetyStock float64) (float64, error) {
	if avgDailyDemand < 0 {
		return 0, invalidInput("avg_daily_demand", "must be non-negative, got %.2f", avgDailyDemand)
	}
	if leadTimeDays < 0 {
		return 0, invalidInput("lead_time_days", "must be non-negative, got %d", leadTimeDays)
	}
	return avgDailyDemand*float64(leadTimeDays) + safetyStock, nil
}

// ClassifyConfig controls ABC/XYZ classification boundaries
type ClassifyConfig struct {
	ABoundaryPct float64 // cumulative revenue share for class A
	BBoundaryPct float64 // cumulative revenue share for class B
	XBoundaryCV  float64 // coefficient of variation below which demand is X
	YBoundaryCV  float64 // coefficient of variation below which demand is Y
}

// DefaultClassifyConfig returns the 80/95 revenue and 0.5/1.0 CV boundaries
func DefaultClassifyConfig() ClassifyConfig {
	return ClassifyConfig{ABoundaryPct: 80, BBoundaryPct: 95, XBoundaryCV: 0.5, YBoundaryCV: 1.0}
}

// Classification is the ABC/XYZ assignment for one product
type Classification struct {
	ProductID       string  `json:"product_id"`
	Revenue         float64 `json:"revenue"`
	RevenueSharePct float64 `json:"revenue_share_pct"`
	CumulativePct   float64 `json:"cumulative_pct"`
	ABCClass        string  `json:"abc_class"`
	DemandCV        Metric  `json:"demand_cv"`
	XYZClass        string  `json:"xyz_class"`
	NoDemand        bool    `json:"no_demand,omitempty"`
}

// ClassifyProducts assigns ABC by cumulative trailing revenue and XYZ by the
// coefficient of variation of daily demand. Products are ranked by revenue
// descending with ties broken by id, so the output is deterministic and the
// classes partition 100% of the included revenue. Zero-mean demand maps to
// class Z with the no-demand flag.
func ClassifyProducts(products []models.Product, sales []models.SalesTransaction, cfg ClassifyConfig) []Classification {
	revenue := make(map[string]float64, len(products))
	series := make(map[string][]float64, len(products))
	for _, t := range sales {
		revenue[t.ProductID] += t.Revenue
	}
	for _, p := range products {
		daily := BuildDailySeries(sales, p.ID)
		qty := make([]float64, 0, len(daily))
		for _, pt := range daily {
			qty = append(qty, float64(pt.Qty))
		}
		series[p.ID] = qty
	}

	out := make([]Classification, 0, len(products))
	var total float64
	for _, p := range products {
		total += revenue[p.ID]
		out = append(out, Classification{ProductID: p.ID, Revenue: revenue[p.ID]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].ProductID < out[j].ProductID
	})

	var cum float64
	for i := range out {
		c := &out[i]
		if total > 0 {
			c.RevenueSharePct = c.Revenue / total * 100
		}
		cum += c.RevenueSharePct
		c.CumulativePct = cum
		switch {
		case total == 0:
			c.ABCClass = "C"
		case cum <= cfg.ABoundaryPct:
			c.ABCClass = "A"
		case cum <= cfg.BBoundaryPct:
			c.ABCClass = "B"
		default:
			c.ABCClass = "C"
		}

		mean, stddev := meanStddev(series[c.ProductID])
		if mean == 0 {
			c.DemandCV = UndefinedMetric("no demand in window")
			c.XYZClass = "Z"
			c.NoDemand = true
			continue
		}
		cv := stddev / mean
		c.DemandCV = DefinedMetric(cv)
		switch {
		case cv < cfg.XBoundaryCV:
			c.XYZClass = "X"
		case cv < cfg.YBoundaryCV:
			c.XYZClass = "Y"
		default:
			c.XYZClass = "Z"
		}
	}
	return out
}

// AgingBucket is one days-since-last-movement band of current stock
type AgingBucket struct {
	Bucket     string  `json:"bucket"`
	SKUCount   int     `json:"sku_count"`
	TotalQty   int     `json:"total_qty"`
	TotalValue float64 `json:"total_value"`
}

// AgedPosition is one product's current position with its idle age
type AgedPosition struct {
	ProductID string  `json:"product_id"`
	QtyOnHand int     `json:"qty_on_hand"`
	Value     float64 `json:"value"`
	IdleDays  int     `json:"idle_days"`
	Bucket    string  `json:"bucket"`
}

// AgeInventory buckets on-hand stock by days since the last outbound
// movement (latest sale). Products with no recorded sale ever land in the
// oldest bucket.
func AgeInventory(products []models.Product, snapshots []models.InventorySnapshot, sales []models.SalesTransaction, asOf time.Time) ([]AgingBucket, []AgedPosition) {
	lastMovement := make(map[string]time.Time)
	for _, t := range sales {
		if t.Date.After(lastMovement[t.ProductID]) {
			lastMovement[t.ProductID] = t.Date
		}
	}

	byBucket := make(map[string]*AgingBucket, len(agingBucketNames))
	for _, name := range agingBucketNames {
		byBucket[name] = &AgingBucket{Bucket: name}
	}

	positions := make([]AgedPosition, 0)
	for _, pos := range LatestPositions(snapshots) {
		idle := idleDays(lastMovement, pos.ProductID, asOf)
		bucket := agingBucket(idle)
		value := float64(pos.QtyOnHand) * unitCostOf(products, pos.ProductID)
		b := byBucket[bucket]
		b.SKUCount++
		b.TotalQty += pos.QtyOnHand
		b.TotalValue += value
		positions = append(positions, AgedPosition{
			ProductID: pos.ProductID,
			QtyOnHand: pos.QtyOnHand,
			Value:     value,
			IdleDays:  idle,
			Bucket:    bucket,
		})
	}

	buckets := make([]AgingBucket, 0, len(agingBucketNames))
	for _, name := range agingBucketNames {
		buckets = append(buckets, *byBucket[name])
	}
	return buckets, positions
}

// DeadStock returns products with no outbound movement for more than
// thresholdDays, sorted by value at risk descending
func DeadStock(products []models.Product, snapshots []models.InventorySnapshot, sales []models.SalesTransaction, asOf time.Time, thresholdDays int) ([]AgedPosition, error) {
	if thresholdDays <= 0 {
		return nil, invalidInput("threshold_days", "must be positive, got %d", thresholdDays)
	}
	_, positions := AgeInventory(products, snapshots, sales, asOf)
	dead := positions[:0]
	for _, pos := range positions {
		if pos.IdleDays > thresholdDays && pos.QtyOnHand > 0 {
			dead = append(dead, pos)
		}
	}
	sort.Slice(dead, func(i, j int) bool {
		if dead[i].Value != dead[j].Value {
			return dead[i].Value > dead[j].Value
		}
		return dead[i].ProductID < dead[j].ProductID
	})
	return dead, nil
}

// OverstockItem is one product holding more than the configured multiple of
// lead-time demand
type OverstockItem struct {
	ProductID          string  `json:"product_id"`
	QtyOnHand          int     `json:"qty_on_hand"`
	LeadTimeDemand     float64 `json:"lead_time_demand"`
	Threshold          float64 `json:"threshold"`
	ExcessValue        float64 `json:"excess_value"`
}

// DetectOverstock flags products whose on-hand quantity exceeds
// multiplier * average demand during lead time
func DetectOverstock(products []models.Product, snapshots []models.InventorySnapshot, sales []models.SalesTransaction, multiplier float64) ([]OverstockItem, error) {
	if multiplier <= 0 {
		return nil, invalidInput("overstock_multiplier", "must be positive, got %.2f", multiplier)
	}
	velocity := velocityByProduct(sales)

	items := make([]OverstockItem, 0)
	for _, pos := range LatestPositions(snapshots) {
		p, ok := productByID(products, pos.ProductID)
		if !ok {
			continue
		}
		ltDemand := velocity[pos.ProductID] * float64(p.LeadTimeDays)
		threshold := multiplier * ltDemand
		if ltDemand > 0 && float64(pos.QtyOnHand) > threshold {
			items = append(items, OverstockItem{
				ProductID:      pos.ProductID,
				QtyOnHand:      pos.QtyOnHand,
				LeadTimeDemand: ltDemand,
				Threshold:      threshold,
				ExcessValue:    (float64(pos.QtyOnHand) - threshold) * p.UnitCost,
			})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].ExcessValue != items[j].ExcessValue {
			return items[i].ExcessValue > items[j].ExcessValue
		}
		return items[i].ProductID < items[j].ProductID
	})
	return items, nil
}

// StockoutRiskItem is one product's projected runway against its lead time
type StockoutRiskItem struct {
	ProductID      string  `json:"product_id"`
	QtyOnHand      int     `json:"qty_on_hand"`
	DailyVelocity  float64 `json:"daily_velocity"`
	DaysToStockout Metric  `json:"days_to_stockout"`
	LeadTimeDays   int     `json:"lead_time_days"`
	AtRisk         bool    `json:"at_risk"`
}

// ProjectStockouts computes days-to-stockout per product and flags those
// whose runway is shorter than lead time plus the safety margin. Products
// with zero velocity report an undefined runway and are never flagged.
func ProjectStockouts(products []models.Product, snapshots []models.InventorySnapshot, sales []models.SalesTransaction, safetyMarginDays int) []StockoutRiskItem {
	velocity := velocityByProduct(sales)

	items := make([]StockoutRiskItem, 0)
	for _, pos := range LatestPositions(snapshots) {
		p, ok := productByID(products, pos.ProductID)
		if !ok {
			continue
		}
		item := StockoutRiskItem{
			ProductID:     pos.ProductID,
			QtyOnHand:     pos.QtyOnHand,
			DailyVelocity: velocity[pos.ProductID],
			LeadTimeDays:  p.LeadTimeDays,
		}
		item.DaysToStockout = ratio(float64(pos.QtyOnHand), item.DailyVelocity, "daily velocity")
		if item.DaysToStockout.Defined {
			item.AtRisk = item.DaysToStockout.Value < float64(p.LeadTimeDays+safetyMarginDays)
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		vi, vj := items[i].DaysToStockout, items[j].DaysToStockout
		if vi.Defined != vj.Defined {
			return vi.Defined
		}
		if vi.Defined && vi.Value != vj.Value {
			return vi.Value < vj.Value
		}
		return items[i].ProductID < items[j].ProductID
	})
	return items
}

// LatestPositions reduces snapshots to the most recent one per product,
// sorted by product id for deterministic iteration
func LatestPositions(snapshots []models.InventorySnapshot) []models.InventorySnapshot {
	latest := make(map[string]models.InventorySnapshot, len(snapshots))
	for _, s := range snapshots {
		if cur, ok := latest[s.ProductID]; !ok || s.AsOfDate.After(cur.AsOfDate) {
			latest[s.ProductID] = s
		}
	}
	out := make([]models.InventorySnapshot, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func productByID(products []models.Product, id string) (models.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// neverMovedIdleDays stands in for products with no recorded outbound
// movement at all; it lands them in the oldest bucket.
const neverMovedIdleDays = 1 << 20

func idleDays(lastMovement map[string]time.Time, productID string, asOf time.Time) int {
	last, ok := lastMovement[productID]
	if !ok {
		return neverMovedIdleDays
	}
	return int(asOf.Sub(last).Hours() / 24)
}
