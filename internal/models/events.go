package models

import "time"

// Event types
const (
	EventTypeReorderAlert       = "REORDER_ALERT"
	EventTypeStockoutRiskAlert  = "STOCKOUT_RISK_ALERT"
	EventTypeSupplierRiskAlert  = "SUPPLIER_RISK_ALERT"
	EventTypeScanRequested      = "SCAN_REQUESTED"
	EventTypeScanCompleted      = "SCAN_COMPLETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ReorderAlertEvent published when a product falls below its reorder point
type ReorderAlertEvent struct {
	BaseEvent
	ProductID      string  `json:"product_id"`
	ABCClass       string  `json:"abc_class"`
	Priority       float64 `json:"priority"`
	SuggestedQty   int     `json:"suggested_qty"`
	DaysToStockout float64 `json:"days_to_stockout"`
}

// StockoutRiskAlertEvent published when projected cover drops below lead time
type StockoutRiskAlertEvent struct {
	BaseEvent
	ProductID      string  `json:"product_id"`
	QtyOnHand      int     `json:"qty_on_hand"`
	DaysToStockout float64 `json:"days_to_stockout"`
	LeadTimeDays   int     `json:"lead_time_days"`
}

// SupplierRiskAlertEvent published when a supplier's composite risk crosses
// the alert threshold
type SupplierRiskAlertEvent struct {
	BaseEvent
	SupplierID string  `json:"supplier_id"`
	RiskScore  float64 `json:"risk_score"`
	RiskLevel  string  `json:"risk_level"`
}

// ScanRequestedEvent asks the alert worker to run an immediate scan
type ScanRequestedEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}

// ScanCompletedEvent published after an alert scan finishes
type ScanCompletedEvent struct {
	BaseEvent
	AlertsPublished int    `json:"alerts_published"`
	DurationMillis  int64  `json:"duration_millis"`
	Trigger         string `json:"trigger"`
}
