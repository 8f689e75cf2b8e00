package analytics

import (
	"sort"

	"chainsight/internal/models"
)

// StatusCount is one shipment status with its share of the fleet
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// ShipmentSummary condenses the inbound freight picture
type ShipmentSummary struct {
	Total        int           `json:"total"`
	ByStatus     []StatusCount `json:"by_status"`
	Delayed      int           `json:"delayed"`
	AvgDelayDays Metric        `json:"avg_delay_days"`
	OnTimeRate   Metric        `json:"on_time_rate"`
	TotalFreight float64       `json:"total_freight_cost"`
}

// SummarizeShipments aggregates inbound shipments by status with delay and
// freight totals. The average delay covers only delayed shipments; the
// on-time rate covers only delivered ones, and both report undefined when
// their population is empty.
func SummarizeShipments(shipments []models.Shipment) ShipmentSummary {
	summary := ShipmentSummary{Total: len(shipments)}
	byStatus := make(map[string]int)

	var delayDaysSum, delivered, deliveredOnTime int
	for _, s := range shipments {
		byStatus[s.Status]++
		summary.TotalFreight += s.FreightCost
		if s.DelayDays > 0 {
			summary.Delayed++
			delayDaysSum += s.DelayDays
		}
		if s.Status == models.ShipmentStatusDelivered {
			delivered++
			if s.DelayDays <= 0 {
				deliveredOnTime++
			}
		}
	}

	for status, count := range byStatus {
		summary.ByStatus = append(summary.ByStatus, StatusCount{Status: status, Count: count})
	}
	sort.Slice(summary.ByStatus, func(i, j int) bool {
		return summary.ByStatus[i].Status < summary.ByStatus[j].Status
	})

	summary.AvgDelayDays = ratio(float64(delayDaysSum), float64(summary.Delayed), "delayed shipments")
	summary.OnTimeRate = ratio(float64(deliveredOnTime), float64(delivered), "delivered shipments")
	return summary
}
