package analytics

import (
	"testing"
	"time"

	"chainsight/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesOf(qtys ...int) []SeriesPoint {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	series := make([]SeriesPoint, 0, len(qtys))
	for i, q := range qtys {
		series = append(series, SeriesPoint{Date: start.AddDate(0, 0, i), Qty: q})
	}
	return series
}

func TestForecastDemand(t *testing.T) {
	series := seriesOf(10, 10, 10, 10, 10, 10, 10, 20, 20, 20, 20, 20, 20, 20)

	f, err := ForecastDemand("P1", series, ForecastConfig{WindowDays: 7, HorizonDays: 30})
	require.NoError(t, err)

	assert.InDelta(t, 20, f.MovingAverage, 1e-9)
	assert.Equal(t, TrendIncreasing, f.Trend)
	require.Len(t, f.Points, 30)
	assert.InDelta(t, 20, f.Points[0].Qty, 1e-9)
	assert.InDelta(t, 600, f.TotalPredicted, 1e-9)
	assert.Equal(t, series[len(series)-1].Date.AddDate(0, 0, 1), f.Points[0].Date)
}

func TestForecastDemandInsufficientHistory(t *testing.T) {
	_, err := ForecastDemand("P1", seriesOf(10, 10, 10), ForecastConfig{WindowDays: 7, HorizonDays: 30})

	var insufficient *InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 7, insufficient.Needed)
	assert.Equal(t, 3, insufficient.Got)
}

func TestDetectAnomaliesFlagsSpike(t *testing.T) {
	// seven flat days then a spike; only the spike crosses |z| > 2.5
	series := seriesOf(10, 10, 10, 10, 10, 10, 10, 50)

	anomalies, err := DetectAnomalies(series, AnomalyConfig{ZThreshold: 2.5})
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, 50, anomalies[0].Qty)
	assert.Equal(t, series[7].Date, anomalies[0].Date)
	assert.Greater(t, anomalies[0].ZScore, 2.5)
}

func TestDetectAnomaliesZeroDeviation(t *testing.T) {
	anomalies, err := DetectAnomalies(seriesOf(10, 10, 10, 10), DefaultAnomalyConfig())
	require.NoError(t, err)
	assert.Empty(t, anomalies, "a flat series has no anomalies")
}

func TestDetectAnomaliesInvalidThreshold(t *testing.T) {
	_, err := DetectAnomalies(seriesOf(1, 2, 3), AnomalyConfig{ZThreshold: 0})
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
}

func TestSeasonality(t *testing.T) {
	sales := []models.SalesTransaction{
		{ProductID: "P1", Date: time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC), Qty: 30, Revenue: 300},
		{ProductID: "P1", Date: time.Date(2025, 12, 12, 0, 0, 0, 0, time.UTC), Qty: 30, Revenue: 300},
		{ProductID: "P1", Date: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), Qty: 20, Revenue: 200},
	}

	report, err := Seasonality(sales, "P1")
	require.NoError(t, err)

	assert.Equal(t, time.December, report.PeakMonth)
	assert.Equal(t, time.June, report.LowMonth)
	require.Len(t, report.Months, 2)
	// mean monthly demand is (60+20)/2 = 40
	assert.InDelta(t, 0.5, report.Months[0].Index.Value, 1e-9)  // June
	assert.InDelta(t, 1.5, report.Months[1].Index.Value, 1e-9)  // December, both years pooled
}

func TestSeasonalityNoData(t *testing.T) {
	_, err := Seasonality(nil, "P1")
	var insufficient *InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}

func TestRankVelocity(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 5, d, 0, 0, 0, 0, time.UTC) }
	sales := []models.SalesTransaction{
		{ProductID: "FAST", Date: day(1), Qty: 10, Revenue: 100},
		{ProductID: "FAST", Date: day(2), Qty: 30, Revenue: 300},
		{ProductID: "SLOW", Date: day(1), Qty: 2, Revenue: 20},
	}

	entries := RankVelocity(sales, 0)
	require.Len(t, entries, 2)
	assert.Equal(t, "FAST", entries[0].ProductID)
	assert.InDelta(t, 20, entries[0].DailyVelocity, 1e-9)
	assert.InDelta(t, 2, entries[1].DailyVelocity, 1e-9)

	limited := RankVelocity(sales, 1)
	assert.Len(t, limited, 1)
}

func TestRevenueTrendsGrowth(t *testing.T) {
	sales := []models.SalesTransaction{
		{ProductID: "P1", Date: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), Qty: 1, Revenue: 100},
		{ProductID: "P1", Date: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), Qty: 1, Revenue: 150},
	}

	points, err := RevenueTrends(sales, GranularityMonthly)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.False(t, points[0].GrowthPct.Defined)
	require.True(t, points[1].GrowthPct.Defined)
	assert.InDelta(t, 50, points[1].GrowthPct.Value, 1e-9)
}

func TestRevenueTrendsInvalidGranularity(t *testing.T) {
	_, err := RevenueTrends(nil, "hourly")
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "granularity", invalid.Field)
}

func TestCustomerConcentration(t *testing.T) {
	day := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	sales := []models.SalesTransaction{
		{ProductID: "P1", CustomerID: "BIG", Date: day, Qty: 1, Revenue: 900},
		{ProductID: "P1", CustomerID: "SMALL", Date: day, Qty: 1, Revenue: 100},
	}

	report := CustomerConcentration(sales, 1)
	require.Len(t, report.TopCustomers, 1)
	assert.Equal(t, "BIG", report.TopCustomers[0].CustomerID)
	assert.InDelta(t, 90, report.TopSharePct, 1e-9)
	assert.Equal(t, "high", report.RiskBand)
}

func TestBuildDailySeriesAggregatesAndSorts(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 5, d, 0, 0, 0, 0, time.UTC) }
	sales := []models.SalesTransaction{
		{ProductID: "P1", Date: day(2), Qty: 5, Revenue: 50},
		{ProductID: "P1", Date: day(1), Qty: 3, Revenue: 30},
		{ProductID: "P1", Date: day(2), Qty: 2, Revenue: 20},
		{ProductID: "OTHER", Date: day(1), Qty: 99, Revenue: 990},
	}

	series := BuildDailySeries(sales, "P1")
	require.Len(t, series, 2)
	assert.Equal(t, day(1), series[0].Date)
	assert.Equal(t, 3, series[0].Qty)
	assert.Equal(t, 7, series[1].Qty)
	assert.InDelta(t, 70, series[1].Revenue, 1e-9)
}
