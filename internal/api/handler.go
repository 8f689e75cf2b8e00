package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chainsight/internal/analytics"
	"chainsight/internal/broker"
	"chainsight/internal/service"
	"chainsight/internal/util"
)

// Handler contains HTTP handlers
type Handler struct {
	engine    *service.Engine
	publisher *broker.AlertPublisher
}

// NewHandler creates a new HTTP handler. publisher may be nil when no broker
// is configured; the on-demand scan endpoint then reports unavailable.
func NewHandler(engine *service.Engine, publisher *broker.AlertPublisher) *Handler {
	return &Handler{engine: engine, publisher: publisher}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/dashboard", h.dashboard)

		v1.GET("/cash-cycle", h.cashCycle)
		v1.POST("/cash-cycle/simulate", h.simulateCashCycle)
		v1.GET("/receivables/aging", h.receivablesAging)
		v1.GET("/receivables/dso", h.dsoAnalysis)
		v1.GET("/payables/dpo", h.dpoAnalysis)
		v1.GET("/working-capital", h.workingCapital)
		v1.GET("/working-capital/carrying-cost", h.carryingCost)
		v1.GET("/working-capital/pareto", h.pareto)

		v1.GET("/inventory/classification", h.classification)
		v1.GET("/inventory/turnover", h.turnover)
		v1.GET("/inventory/aging", h.inventoryAging)
		v1.GET("/inventory/dead-stock", h.deadStock)
		v1.GET("/inventory/overstock", h.overstock)
		v1.GET("/inventory/stockout-risks", h.stockoutRisks)

		v1.GET("/suppliers", h.supplierPerformance)
		v1.GET("/products", h.productCatalog)
		v1.GET("/products/:id/reorder-plan", h.reorderPlan)
		v1.GET("/products/:id/forecast", h.forecast)
		v1.GET("/products/:id/anomalies", h.anomalies)
		v1.GET("/products/:id/seasonality", h.seasonality)

		v1.GET("/shipments/tracking", h.shipmentTracking)

		v1.GET("/signals/seasonality", h.seasonality)
		v1.GET("/signals/velocity", h.velocity)
		v1.GET("/signals/revenue-trends", h.revenueTrends)
		v1.GET("/signals/customer-concentration", h.customerConcentration)

		v1.GET("/graph/network", h.network)
		v1.GET("/graph/nodes/:id/concentration", h.nodeConcentration)
		v1.GET("/graph/supplier-risks", h.supplierRisks)
		v1.GET("/graph/single-source", h.singleSource)
		v1.GET("/graph/nodes/:id/ripple", h.ripple)
		v1.GET("/graph/products/:id/alternative-suppliers", h.alternativeSuppliers)
		v1.GET("/graph/lead-time-variability", h.leadTimeVariability)

		v1.GET("/recommendations/reorders", h.recommendations)
		v1.POST("/alerts/scan", h.requestScan)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps the engine's typed errors onto HTTP statuses: bad
// parameters are the caller's fault, thin history is unprocessable, and a
// failing accessor is an upstream problem.
func respondError(c *gin.Context, err error) {
	var invalid *analytics.InvalidInputError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid input",
			"field":   invalid.Field,
			"details": invalid.Reason,
		})
		return
	}

	var insufficient *analytics.InsufficientDataError
	if errors.As(err, &insufficient) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Insufficient data",
			"details": insufficient.Error(),
		})
		return
	}

	var dataErr *analytics.DataAccessError
	if errors.As(err, &dataErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Data source unavailable",
			"details": dataErr.Error(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal error",
		"details": err.Error(),
	})
}

// queryWindow reads the optional from/to query parameters as dates. Malformed
// dates abort with 400 and return false.
func queryWindow(c *gin.Context) (from, to time.Time, ok bool) {
	var err error
	if v := c.Query("from"); v != "" {
		if from, err = time.Parse("2006-01-02", v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "field": "from", "details": "expected YYYY-MM-DD"})
			return from, to, false
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse("2006-01-02", v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "field": "to", "details": "expected YYYY-MM-DD"})
			return from, to, false
		}
	}
	return from, to, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	if v := c.Query(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func queryFloat(c *gin.Context, name string, fallback float64) float64 {
	if v := c.Query(name); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func (h *Handler) dashboard(c *gin.Context) {
	report, err := h.engine.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) cashCycle(c *gin.Context) {
	from, to, ok := queryWindow(c)
	if !ok {
		return
	}
	report, err := h.engine.CashCycle(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) simulateCashCycle(c *gin.Context) {
	from, to, ok := queryWindow(c)
	if !ok {
		return
	}
	var deltas analytics.CCCDeltas
	if err := c.ShouldBindJSON(&deltas); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	sim, err := h.engine.SimulateCashCycle(c.Request.Context(), from, to, deltas)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sim)
}

func (h *Handler) receivablesAging(c *gin.Context) {
	var asOf time.Time
	if v := c.Query("as_of"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "field": "as_of", "details": "expected YYYY-MM-DD"})
			return
		}
		asOf = parsed
	}
	report, err := h.engine.ReceivablesAging(c.Request.Context(), asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) dsoAnalysis(c *gin.Context) {
	report, err := h.engine.DSOAnalysis(c.Request.Context(), queryInt(c, "limit", 20))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) dpoAnalysis(c *gin.Context) {
	report, err := h.engine.DPOAnalysis(c.Request.Context(), queryInt(c, "limit", 20))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) supplierPerformance(c *gin.Context) {
	report, err := h.engine.SupplierPerformance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) productCatalog(c *gin.Context) {
	report, err := h.engine.ProductCatalog(c.Request.Context(), c.Query("category"), c.Query("abc_class"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) workingCapital(c *gin.Context) {
	summary, err := h.engine.WorkingCapital(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) carryingCost(c *gin.Context) {
	est, err := h.engine.CarryingCost(c.Request.Context(), queryFloat(c, "holding_rate", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}

func (h *Handler) pareto(c *gin.Context) {
	from, to, ok := queryWindow(c)
	if !ok {
		return
	}
	dimension := c.DefaultQuery("dimension", analytics.ParetoByRevenue)
	report, err := h.engine.Pareto(c.Request.Context(), from, to, dimension, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) classification(c *gin.Context) {
	from, to, ok := queryWindow(c)
	if !ok {
		return
	}
	report, err := h.engine.Classify(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) turnover(c *gin.Context) {
	from, to, ok := queryWindow(c)
	if !ok {
		return
	}
	entries, err := h.engine.Turnover(c.Request.Context(), from, to, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) inventoryAging(c *gin.Context) {
	report, err := h.engine.InventoryAging(c.Request.Context(), time.Time{})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) deadStock(c *gin.Context) {
	dead, err := h.engine.DeadStock(c.Request.Context(), time.Time{}, queryInt(c, "threshold_days", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": dead})
}

func (h *Handler) overstock(c *gin.Context) {
	items, err := h.engine.Overstock(c.Request.Context(), queryFloat(c, "multiplier", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) stockoutRisks(c *gin.Context) {
	items, err := h.engine.StockoutRisks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) reorderPlan(c *gin.Context) {
	params, err := h.engine.PlanReorder(c.Request.Context(), c.Param("id"), queryFloat(c, "service_level", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, params)
}

func (h *Handler) forecast(c *gin.Context) {
	forecast, err := h.engine.Forecast(c.Request.Context(), c.Param("id"),
		queryInt(c, "window_days", 0), queryInt(c, "horizon_days", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, forecast)
}

func (h *Handler) anomalies(c *gin.Context) {
	anomalies, err := h.engine.Anomalies(c.Request.Context(), c.Param("id"), queryFloat(c, "z_threshold", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"anomalies": anomalies})
}

func (h *Handler) seasonality(c *gin.Context) {
	report, err := h.engine.Seasonality(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) shipmentTracking(c *gin.Context) {
	summary, err := h.engine.ShipmentTracking(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) velocity(c *gin.Context) {
	from, to, ok := queryWindow(c)
	if !ok {
		return
	}
	entries, err := h.engine.Velocity(c.Request.Context(), from, to, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) revenueTrends(c *gin.Context) {
	from, to, ok := queryWindow(c)
	if !ok {
		return
	}
	granularity := c.DefaultQuery("granularity", analytics.GranularityMonthly)
	points, err := h.engine.RevenueTrends(c.Request.Context(), from, to, granularity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

func (h *Handler) customerConcentration(c *gin.Context) {
	from, to, ok := queryWindow(c)
	if !ok {
		return
	}
	report, err := h.engine.CustomerConcentration(c.Request.Context(), from, to, queryInt(c, "top", 10))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) network(c *gin.Context) {
	report, err := h.engine.Network(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) nodeConcentration(c *gin.Context) {
	result, err := h.engine.NodeConcentration(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) supplierRisks(c *gin.Context) {
	weights := analytics.RiskWeights{
		LeadTimeVariability: queryFloat(c, "w_lead_time", 0),
		OnTimeRate:          queryFloat(c, "w_on_time", 0),
		Concentration:       queryFloat(c, "w_concentration", 0),
	}
	report, err := h.engine.SupplierRisks(c.Request.Context(), weights)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) singleSource(c *gin.Context) {
	risks, err := h.engine.SingleSourceRisks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": risks})
}

func (h *Handler) ripple(c *gin.Context) {
	result, err := h.engine.Ripple(c.Request.Context(), c.Param("id"), queryInt(c, "max_depth", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) alternativeSuppliers(c *gin.Context) {
	alts, err := h.engine.AlternativeSuppliers(c.Request.Context(), c.Param("id"), c.Query("exclude"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suppliers": alts})
}

func (h *Handler) leadTimeVariability(c *gin.Context) {
	ranked, err := h.engine.LeadTimeVariability(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suppliers": ranked})
}

func (h *Handler) recommendations(c *gin.Context) {
	report, err := h.engine.Recommendations(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) requestScan(c *gin.Context) {
	if h.publisher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Alerting is not configured"})
		return
	}
	reason := c.DefaultQuery("reason", "api")
	if err := h.publisher.PublishScanRequested(c.Request.Context(), reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "scan requested"})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
