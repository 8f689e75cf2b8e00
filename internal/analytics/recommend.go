package analytics

import (
	"sort"

	"chainsight/internal/models"
)

// RecommendConfig controls reorder recommendation scoring
type RecommendConfig struct {
	UrgencyWeight    float64 // weight of the days-to-stockout component
	RiskWeight       float64 // weight of the supplier risk component
	ClassWeight      float64 // weight of the ABC class component
	OrderCost        float64 // fixed cost per order, for EOQ
	HoldingRate      float64 // annual holding cost as a fraction of unit cost
	ServiceLevel     float64 // service level for safety stock
	SafetyMarginDays int     // slack added to lead time for urgency
	DemandPeriodDays int     // observation period behind the demand stddev
}

// DefaultRecommendConfig returns the stock scoring defaults
func DefaultRecommendConfig() RecommendConfig {
	return RecommendConfig{
		UrgencyWeight:    0.5,
		RiskWeight:       0.3,
		ClassWeight:      0.2,
		OrderCost:        50,
		HoldingRate:      0.25,
		ServiceLevel:     0.95,
		SafetyMarginDays: 7,
		DemandPeriodDays: 1,
	}
}

// ReorderCandidate is the per-product input the ranker fuses. SupplierRisk
// is undefined when the product has no supplier data; that keeps the product
// rankable while marking the gap explicitly.
type ReorderCandidate struct {
	Product       models.Product
	ABCClass      string
	QtyOnHand     int
	QtyOnOrder    int
	DailyVelocity float64
	DemandStddev  float64
	SupplierRisk  Metric
}

// Recommendation is one prioritized reorder suggestion with the metrics
// that justify it
type Recommendation struct {
	ProductID      string  `json:"product_id"`
	Priority       float64 `json:"priority"`
	SuggestedQty   int     `json:"suggested_qty"`
	EOQ            int     `json:"eoq"`
	QtyOnHand      int     `json:"qty_on_hand"`
	QtyOnOrder     int     `json:"qty_on_order"`
	ReorderPoint   float64 `json:"reorder_point"`
	SafetyStock    float64 `json:"safety_stock"`
	DaysToStockout Metric  `json:"days_to_stockout"`
	SupplierRisk   Metric  `json:"supplier_risk"`
	ABCClass       string  `json:"abc_class"`
	LeadTimeDays   int     `json:"lead_time_days"`
}

// SkippedProduct reports a candidate excluded from a batch with the reason
type SkippedProduct struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

var abcClassWeights = map[string]float64{"A": 1.0, "B": 0.6, "C": 0.3}

// RankReorders fuses stockout runway, supplier risk and revenue class into a
// single priority per product and returns recommendations ordered by
// priority descending, ties by product id. A candidate with bad inputs is
// skipped with a reason instead of failing the batch; products whose
// position already covers the reorder point are not recommended.
func RankReorders(candidates []ReorderCandidate, cfg RecommendConfig) ([]Recommendation, []SkippedProduct, error) {
	wSum := cfg.UrgencyWeight + cfg.RiskWeight + cfg.ClassWeight
	if wSum <= 0 {
		return nil, nil, invalidInput("recommend_weights", "weights must sum to a positive value, got %.3f", wSum)
	}

	recs := make([]Recommendation, 0, len(candidates))
	var skipped []SkippedProduct
	for _, c := range candidates {
		rec, reason := scoreCandidate(c, cfg, wSum)
		if reason != "" {
			skipped = append(skipped, SkippedProduct{ProductID: c.Product.ID, Reason: reason})
			continue
		}
		if rec != nil {
			recs = append(recs, *rec)
		}
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority > recs[j].Priority
		}
		return recs[i].ProductID < recs[j].ProductID
	})
	return recs, skipped, nil
}

// scoreCandidate returns (nil, "") when the product simply needs no reorder
func scoreCandidate(c ReorderCandidate, cfg RecommendConfig, wSum float64) (*Recommendation, string) {
	if c.Product.LeadTimeDays < 0 {
		return nil, "negative lead time"
	}
	if c.DailyVelocity <= 0 {
		return nil, "no demand velocity in window"
	}
	holdingCost := c.Product.UnitCost * cfg.HoldingRate
	if holdingCost <= 0 {
		return nil, "unit cost missing, cannot derive holding cost"
	}

	ss, err := SafetyStock(cfg.ServiceLevel, c.DemandStddev, c.Product.LeadTimeDays, cfg.DemandPeriodDays, nil)
	if err != nil {
		return nil, err.Error()
	}
	rop, err := ReorderPoint(c.DailyVelocity, c.Product.LeadTimeDays, ss)
	if err != nil {
		return nil, err.Error()
	}
	if float64(c.QtyOnHand) >= rop {
		return nil, ""
	}

	eoq, err := EOQ(c.DailyVelocity*365, cfg.OrderCost, holdingCost)
	if err != nil {
		return nil, err.Error()
	}
	suggested := eoq - c.QtyOnOrder
	if suggested <= 0 {
		return nil, "open purchase orders already cover the suggested quantity"
	}

	daysToStockout := float64(c.QtyOnHand) / c.DailyVelocity
	cover := float64(c.Product.LeadTimeDays + cfg.SafetyMarginDays)
	urgency := 1.0
	if cover > 0 {
		urgency = clamp01(1 - daysToStockout/(2*cover))
	}

	risk := 0.0
	if c.SupplierRisk.Defined {
		risk = clamp01(c.SupplierRisk.Value)
	}

	priority := (cfg.UrgencyWeight*urgency + cfg.RiskWeight*risk + cfg.ClassWeight*abcClassWeights[c.ABCClass]) / wSum

	return &Recommendation{
		ProductID:      c.Product.ID,
		Priority:       priority,
		SuggestedQty:   suggested,
		EOQ:            eoq,
		QtyOnHand:      c.QtyOnHand,
		QtyOnOrder:     c.QtyOnOrder,
		ReorderPoint:   rop,
		SafetyStock:    ss,
		DaysToStockout: DefinedMetric(daysToStockout),
		SupplierRisk:   c.SupplierRisk,
		ABCClass:       c.ABCClass,
		LeadTimeDays:   c.Product.LeadTimeDays,
	}, ""
}
