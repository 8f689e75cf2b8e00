package service

import (
	"context"
	"sort"
	"time"

	"chainsight/internal/analytics"
	"chainsight/internal/models"
)

// SupplierPerformanceReport lists suppliers best on-time rate first
type SupplierPerformanceReport struct {
	Total     int               `json:"total"`
	Suppliers []models.Supplier `json:"suppliers"`
}

// SupplierPerformance lists all suppliers ranked by on-time delivery rate
func (e *Engine) SupplierPerformance(ctx context.Context) (report *SupplierPerformanceReport, err error) {
	ctx, done := e.startOp(ctx, "supplier_performance")
	defer func() { done(err) }()

	suppliers, err := e.tab.Suppliers(ctx)
	if err != nil {
		return nil, accessErr("suppliers", err)
	}
	ranked := make([]models.Supplier, len(suppliers))
	copy(ranked, suppliers)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].OnTimeRate != ranked[j].OnTimeRate {
			return ranked[i].OnTimeRate > ranked[j].OnTimeRate
		}
		return ranked[i].ID < ranked[j].ID
	})
	return &SupplierPerformanceReport{Total: len(ranked), Suppliers: ranked}, nil
}

// ProductCatalogReport lists products matching the requested filters
type ProductCatalogReport struct {
	Total    int              `json:"total"`
	Products []models.Product `json:"products"`
}

// ProductCatalog lists products, optionally narrowed by category or by the
// ABC class derived over the default window. Both filters may be combined.
func (e *Engine) ProductCatalog(ctx context.Context, category, abcClass string) (report *ProductCatalogReport, err error) {
	ctx, done := e.startOp(ctx, "product_catalog")
	defer func() { done(err) }()

	if abcClass != "" && abcClass != "A" && abcClass != "B" && abcClass != "C" {
		return nil, &analytics.InvalidInputError{Field: "abc_class", Reason: "must be A, B or C, got " + abcClass}
	}

	products, err := e.tab.Products(ctx)
	if err != nil {
		return nil, accessErr("products", err)
	}

	var inClass map[string]bool
	if abcClass != "" {
		classes, err := e.Classify(ctx, time.Time{}, time.Time{})
		if err != nil {
			return nil, err
		}
		inClass = make(map[string]bool, len(classes.Classes))
		for _, c := range classes.Classes {
			if c.ABCClass == abcClass {
				inClass[c.ProductID] = true
			}
		}
	}

	matched := make([]models.Product, 0, len(products))
	for _, p := range products {
		if category != "" && p.Category != category {
			continue
		}
		if inClass != nil && !inClass[p.ID] {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return &ProductCatalogReport{Total: len(matched), Products: matched}, nil
}
