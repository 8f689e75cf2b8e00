package analytics

import (
	"testing"

	"chainsight/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeShipments(t *testing.T) {
	shipments := []models.Shipment{
		{OrderID: "PO-1", Status: models.ShipmentStatusDelivered, DelayDays: 0, FreightCost: 100},
		{OrderID: "PO-2", Status: models.ShipmentStatusDelivered, DelayDays: 4, FreightCost: 150},
		{OrderID: "PO-3", Status: models.ShipmentStatusDelayed, DelayDays: 6, FreightCost: 80},
		{OrderID: "PO-4", Status: models.ShipmentStatusInTransit, DelayDays: 0, FreightCost: 120},
	}

	summary := SummarizeShipments(shipments)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Delayed)
	assert.InDelta(t, 450, summary.TotalFreight, 1e-9)

	require.True(t, summary.AvgDelayDays.Defined)
	assert.InDelta(t, 5, summary.AvgDelayDays.Value, 1e-9)

	// one of two delivered shipments arrived on time
	require.True(t, summary.OnTimeRate.Defined)
	assert.InDelta(t, 0.5, summary.OnTimeRate.Value, 1e-9)

	require.Len(t, summary.ByStatus, 3)
	assert.Equal(t, models.ShipmentStatusDelayed, summary.ByStatus[0].Status)
	assert.Equal(t, 2, summary.ByStatus[1].Count)
}

func TestSummarizeShipmentsEmpty(t *testing.T) {
	summary := SummarizeShipments(nil)

	assert.Zero(t, summary.Total)
	assert.False(t, summary.AvgDelayDays.Defined)
	assert.False(t, summary.OnTimeRate.Defined)
}
