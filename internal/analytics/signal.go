package analytics

import (
	"math"
	"sort"
	"time"

	"chainsight/internal/models"
)

// SeriesPoint is one day of aggregated demand for a product
type SeriesPoint struct {
	Date    time.Time `json:"date"`
	Qty     int       `json:"qty"`
	Revenue float64   `json:"revenue"`
}

// BuildDailySeries aggregates a product's sales into one point per calendar
// day, sorted ascending by date
func BuildDailySeries(sales []models.SalesTransaction, productID string) []SeriesPoint {
	byDay := make(map[time.Time]*SeriesPoint)
	for _, t := range sales {
		if t.ProductID != productID {
			continue
		}
		day := t.Date.Truncate(24 * time.Hour)
		pt, ok := byDay[day]
		if !ok {
			pt = &SeriesPoint{Date: day}
			byDay[day] = pt
		}
		pt.Qty += t.Qty
		pt.Revenue += t.Revenue
	}
	series := make([]SeriesPoint, 0, len(byDay))
	for _, pt := range byDay {
		series = append(series, *pt)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series
}

// ForecastConfig controls the moving-average forecaster
type ForecastConfig struct {
	WindowDays  int // trailing observations averaged into the forecast
	HorizonDays int // future periods to emit
}

// DefaultForecastConfig returns the 7-day window, 30-day horizon defaults
func DefaultForecastConfig() ForecastConfig {
	return ForecastConfig{WindowDays: 7, HorizonDays: 30}
}

// ForecastPoint is one future period's point forecast
type ForecastPoint struct {
	Date time.Time `json:"date"`
	Qty  float64   `json:"qty"`
}

// Forecast is a moving-average demand forecast for one product
type Forecast struct {
	ProductID      string          `json:"product_id"`
	HistoricalDays int             `json:"historical_days"`
	WindowDays     int             `json:"window_days"`
	MovingAverage  float64         `json:"moving_average"`
	Trend          string          `json:"trend"`
	Points         []ForecastPoint `json:"points"`
	TotalPredicted float64         `json:"total_predicted"`
}

// Trend labels
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// ForecastDemand produces one point forecast per future period from a simple
// moving average over the trailing window. A series with fewer observations
// than the window is rejected with InsufficientDataError instead of
// forecasting from partial history.
func ForecastDemand(productID string, series []SeriesPoint, cfg ForecastConfig) (*Forecast, error) {
	if cfg.WindowDays <= 0 {
		return nil, invalidInput("window_days", "must be positive, got %d", cfg.WindowDays)
	}
	if cfg.HorizonDays <= 0 {
		return nil, invalidInput("horizon_days", "must be positive, got %d", cfg.HorizonDays)
	}
	if len(series) < cfg.WindowDays {
		return nil, &InsufficientDataError{Subject: "demand series for " + productID, Needed: cfg.WindowDays, Got: len(series)}
	}

	window := series[len(series)-cfg.WindowDays:]
	var sum float64
	for _, pt := range window {
		sum += float64(pt.Qty)
	}
	ma := sum / float64(cfg.WindowDays)

	trend := TrendStable
	if len(series) >= cfg.WindowDays*2 {
		prev := series[len(series)-cfg.WindowDays*2 : len(series)-cfg.WindowDays]
		var prevSum float64
		for _, pt := range prev {
			prevSum += float64(pt.Qty)
		}
		prevMA := prevSum / float64(cfg.WindowDays)
		switch {
		case ma > prevMA*1.1:
			trend = TrendIncreasing
		case ma < prevMA*0.9:
			trend = TrendDecreasing
		}
	}

	last := series[len(series)-1].Date
	points := make([]ForecastPoint, 0, cfg.HorizonDays)
	for i := 1; i <= cfg.HorizonDays; i++ {
		points = append(points, ForecastPoint{Date: last.AddDate(0, 0, i), Qty: ma})
	}

	return &Forecast{
		ProductID:      productID,
		HistoricalDays: len(series),
		WindowDays:     cfg.WindowDays,
		MovingAverage:  ma,
		Trend:          trend,
		Points:         points,
		TotalPredicted: ma * float64(cfg.HorizonDays),
	}, nil
}

// AnomalyConfig controls z-score anomaly detection
type AnomalyConfig struct {
	ZThreshold float64
}

// DefaultAnomalyConfig returns the 2.5 sigma default
func DefaultAnomalyConfig() AnomalyConfig {
	return AnomalyConfig{ZThreshold: 2.5}
}

// Anomaly is one observation flagged against the series statistics
type Anomaly struct {
	Date   time.Time `json:"date"`
	Qty    int       `json:"qty"`
	ZScore float64   `json:"z_score"`
}

// DetectAnomalies flags observations whose |z| exceeds the threshold against
// the series' population mean and standard deviation. A series with zero
// deviation reports no anomalies.
func DetectAnomalies(series []SeriesPoint, cfg AnomalyConfig) ([]Anomaly, error) {
	if cfg.ZThreshold <= 0 {
		return nil, invalidInput("z_threshold", "must be positive, got %.2f", cfg.ZThreshold)
	}
	values := make([]float64, len(series))
	for i, pt := range series {
		values[i] = float64(pt.Qty)
	}
	mean, stddev := meanStddev(values)
	if stddev == 0 {
		return nil, nil
	}

	anomalies := make([]Anomaly, 0)
	for _, pt := range series {
		z := (float64(pt.Qty) - mean) / stddev
		if math.Abs(z) > cfg.ZThreshold {
			anomalies = append(anomalies, Anomaly{Date: pt.Date, Qty: pt.Qty, ZScore: z})
		}
	}
	return anomalies, nil
}

// MonthIndex is one calendar month's demand relative to the overall mean
type MonthIndex struct {
	Month   time.Month `json:"month"`
	Qty     int        `json:"qty"`
	Revenue float64    `json:"revenue"`
	Index   Metric     `json:"index"`
}

// SeasonalityReport is the per-month seasonal profile of a demand series
type SeasonalityReport struct {
	Months    []MonthIndex `json:"months"`
	PeakMonth time.Month   `json:"peak_month"`
	LowMonth  time.Month   `json:"low_month"`
}

// Seasonality averages demand per calendar month across all available years
// and normalizes each month against the overall mean
func Seasonality(sales []models.SalesTransaction, productID string) (*SeasonalityReport, error) {
	qtyByMonth := make(map[time.Month]int)
	revByMonth := make(map[time.Month]float64)
	var observations int
	for _, t := range sales {
		if productID != "" && t.ProductID != productID {
			continue
		}
		qtyByMonth[t.Date.Month()] += t.Qty
		revByMonth[t.Date.Month()] += t.Revenue
		observations++
	}
	if observations == 0 {
		return nil, &InsufficientDataError{Subject: "seasonality", Needed: 1, Got: 0}
	}

	var totalQty int
	for _, q := range qtyByMonth {
		totalQty += q
	}
	mean := float64(totalQty) / float64(len(qtyByMonth))

	report := &SeasonalityReport{}
	peakQty, lowQty := math.Inf(-1), math.Inf(1)
	for m := time.January; m <= time.December; m++ {
		q, ok := qtyByMonth[m]
		if !ok {
			continue
		}
		mi := MonthIndex{Month: m, Qty: q, Revenue: revByMonth[m], Index: ratio(float64(q), mean, "mean monthly demand")}
		report.Months = append(report.Months, mi)
		if float64(q) > peakQty {
			peakQty, report.PeakMonth = float64(q), m
		}
		if float64(q) < lowQty {
			lowQty, report.LowMonth = float64(q), m
		}
	}
	return report, nil
}

// VelocityEntry is one product's daily sell-through rate
type VelocityEntry struct {
	ProductID     string  `json:"product_id"`
	TotalSold     int     `json:"total_sold"`
	SaleDays      int     `json:"sale_days"`
	DailyVelocity float64 `json:"daily_velocity"`
	Revenue       float64 `json:"revenue"`
}

// RankVelocity returns per-product units/day sorted fastest first, ties by id
func RankVelocity(sales []models.SalesTransaction, limit int) []VelocityEntry {
	type acc struct {
		qty     int
		revenue float64
		days    map[time.Time]struct{}
	}
	byProduct := make(map[string]*acc)
	for _, t := range sales {
		a, ok := byProduct[t.ProductID]
		if !ok {
			a = &acc{days: make(map[time.Time]struct{})}
			byProduct[t.ProductID] = a
		}
		a.qty += t.Qty
		a.revenue += t.Revenue
		a.days[t.Date.Truncate(24*time.Hour)] = struct{}{}
	}

	entries := make([]VelocityEntry, 0, len(byProduct))
	for id, a := range byProduct {
		e := VelocityEntry{ProductID: id, TotalSold: a.qty, SaleDays: len(a.days), Revenue: a.revenue}
		if e.SaleDays > 0 {
			e.DailyVelocity = float64(e.TotalSold) / float64(e.SaleDays)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].DailyVelocity != entries[j].DailyVelocity {
			return entries[i].DailyVelocity > entries[j].DailyVelocity
		}
		return entries[i].ProductID < entries[j].ProductID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Trend granularities
const (
	GranularityDaily   = "daily"
	GranularityWeekly  = "weekly"
	GranularityMonthly = "monthly"
)

// TrendPoint is one period's revenue with growth against the prior period
type TrendPoint struct {
	Period    time.Time `json:"period"`
	Revenue   float64   `json:"revenue"`
	Units     int       `json:"units"`
	GrowthPct Metric    `json:"growth_pct"`
}

// RevenueTrends aggregates revenue by period and reports period-over-period
// growth. Growth against a zero prior period is undefined.
func RevenueTrends(sales []models.SalesTransaction, granularity string) ([]TrendPoint, error) {
	truncate := func(t time.Time) time.Time {
		switch granularity {
		case GranularityDaily:
			return t.Truncate(24 * time.Hour)
		case GranularityWeekly:
			day := t.Truncate(24 * time.Hour)
			return day.AddDate(0, 0, -int(day.Weekday()))
		case GranularityMonthly:
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
		}
		return t
	}
	switch granularity {
	case GranularityDaily, GranularityWeekly, GranularityMonthly:
	default:
		return nil, invalidInput("granularity", "must be daily, weekly or monthly, got %q", granularity)
	}

	type acc struct {
		revenue float64
		units   int
	}
	byPeriod := make(map[time.Time]*acc)
	for _, t := range sales {
		p := truncate(t.Date)
		a, ok := byPeriod[p]
		if !ok {
			a = &acc{}
			byPeriod[p] = a
		}
		a.revenue += t.Revenue
		a.units += t.Qty
	}

	points := make([]TrendPoint, 0, len(byPeriod))
	for p, a := range byPeriod {
		points = append(points, TrendPoint{Period: p, Revenue: a.revenue, Units: a.units})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Period.Before(points[j].Period) })
	for i := range points {
		if i == 0 {
			points[i].GrowthPct = UndefinedMetric("no prior period")
			continue
		}
		prev := points[i-1].Revenue
		if prev == 0 {
			points[i].GrowthPct = UndefinedMetric("prior period revenue is zero")
			continue
		}
		points[i].GrowthPct = DefinedMetric((points[i].Revenue - prev) / prev * 100)
	}
	return points, nil
}

// CustomerShare is one customer's slice of window revenue
type CustomerShare struct {
	CustomerID string  `json:"customer_id"`
	Revenue    float64 `json:"revenue"`
	SharePct   float64 `json:"share_pct"`
}

// CustomerConcentrationReport bands revenue concentration across customers
type CustomerConcentrationReport struct {
	TopCustomers []CustomerShare `json:"top_customers"`
	TopSharePct  float64         `json:"top_share_pct"`
	RiskBand     string          `json:"risk_band"`
}

// CustomerConcentration ranks customers by revenue share and bands the
// combined top-N share as low (<50%), medium (<80%) or high.
func CustomerConcentration(sales []models.SalesTransaction, topN int) CustomerConcentrationReport {
	if topN <= 0 {
		topN = 10
	}
	revenue := make(map[string]float64)
	var total float64
	for _, t := range sales {
		if t.CustomerID == "" {
			continue
		}
		revenue[t.CustomerID] += t.Revenue
		total += t.Revenue
	}

	shares := make([]CustomerShare, 0, len(revenue))
	for id, r := range revenue {
		s := CustomerShare{CustomerID: id, Revenue: r}
		if total > 0 {
			s.SharePct = r / total * 100
		}
		shares = append(shares, s)
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Revenue != shares[j].Revenue {
			return shares[i].Revenue > shares[j].Revenue
		}
		return shares[i].CustomerID < shares[j].CustomerID
	})
	if len(shares) > topN {
		shares = shares[:topN]
	}

	report := CustomerConcentrationReport{TopCustomers: shares}
	for _, s := range shares {
		report.TopSharePct += s.SharePct
	}
	switch {
	case report.TopSharePct > 80:
		report.RiskBand = "high"
	case report.TopSharePct > 50:
		report.RiskBand = "medium"
	default:
		report.RiskBand = "low"
	}
	return report
}

// velocityByProduct returns average units/day per product over its own
// selling days
func velocityByProduct(sales []models.SalesTransaction) map[string]float64 {
	out := make(map[string]float64)
	for _, e := range RankVelocity(sales, 0) {
		out[e.ProductID] = e.DailyVelocity
	}
	return out
}

// DemandStats returns the mean and population standard deviation of a daily
// demand series, for safety-stock sizing
func DemandStats(series []SeriesPoint) (mean, stddev float64) {
	values := make([]float64, len(series))
	for i, pt := range series {
		values[i] = float64(pt.Qty)
	}
	return meanStddev(values)
}

// meanStddev returns the population mean and standard deviation
func meanStddev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(values)))
}
