package models

import "time"

// Product represents a catalog product. ABC/XYZ classes are derived by the
// engine at query time and are intentionally not part of the source row.
type Product struct {
	ID           string  `db:"product_id" json:"product_id"`
	Name         string  `db:"product_name" json:"product_name"`
	Category     string  `db:"category" json:"category"`
	UnitCost     float64 `db:"unit_cost" json:"unit_cost"`
	UnitPrice    float64 `db:"unit_price" json:"unit_price"`
	LeadTimeDays int     `db:"lead_time_days" json:"lead_time_days"`
}

// Supplier represents a supplier with observed delivery statistics
type Supplier struct {
	ID             string  `db:"supplier_id" json:"supplier_id"`
	Name           string  `db:"supplier_name" json:"supplier_name"`
	OnTimeRate     float64 `db:"on_time_rate" json:"on_time_rate"`
	LeadTimeMean   float64 `db:"lead_time_mean_days" json:"lead_time_mean_days"`
	LeadTimeStddev float64 `db:"lead_time_stddev_days" json:"lead_time_stddev_days"`
}

// Customer represents a buying customer
type Customer struct {
	ID          string  `db:"customer_id" json:"customer_id"`
	Name        string  `db:"customer_name" json:"customer_name"`
	Segment     string  `db:"segment" json:"segment"`
	CreditLimit float64 `db:"credit_limit" json:"credit_limit"`
}

// InventorySnapshot is one point-in-time stock observation for a product
type InventorySnapshot struct {
	ProductID  string    `db:"product_id" json:"product_id"`
	AsOfDate   time.Time `db:"as_of_date" json:"as_of_date"`
	QtyOnHand  int       `db:"qty_on_hand" json:"qty_on_hand"`
	QtyOnOrder int       `db:"qty_on_order" json:"qty_on_order"`
}

// SalesTransaction is one outbound sale line
type SalesTransaction struct {
	ProductID  string    `db:"product_id" json:"product_id"`
	CustomerID string    `db:"customer_id" json:"customer_id"`
	Date       time.Time `db:"transaction_date" json:"transaction_date"`
	Qty        int       `db:"qty" json:"qty"`
	Revenue    float64   `db:"revenue" json:"revenue"`
	Margin     float64   `db:"margin" json:"margin"`
}

// PurchaseOrder is one inbound order placed with a supplier
type PurchaseOrder struct {
	ID           string     `db:"po_id" json:"po_id"`
	ProductID    string     `db:"product_id" json:"product_id"`
	SupplierID   string     `db:"supplier_id" json:"supplier_id"`
	OrderDate    time.Time  `db:"order_date" json:"order_date"`
	DeliveryDate *time.Time `db:"delivery_date" json:"delivery_date,omitempty"`
	Value        float64    `db:"value" json:"value"`
}

// ARLedgerEntry is one receivables invoice; PaidDate nil means outstanding
type ARLedgerEntry struct {
	CustomerID  string     `db:"customer_id" json:"customer_id"`
	InvoiceDate time.Time  `db:"invoice_date" json:"invoice_date"`
	PaidDate    *time.Time `db:"paid_date" json:"paid_date,omitempty"`
	Amount      float64    `db:"amount" json:"amount"`
}

// APLedgerEntry is one payables invoice; PaidDate nil means outstanding
type APLedgerEntry struct {
	SupplierID  string     `db:"supplier_id" json:"supplier_id"`
	InvoiceDate time.Time  `db:"invoice_date" json:"invoice_date"`
	PaidDate    *time.Time `db:"paid_date" json:"paid_date,omitempty"`
	Amount      float64    `db:"amount" json:"amount"`
}

// Shipment is one inbound freight movement tied to a purchase order
type Shipment struct {
	OrderID     string  `db:"order_id" json:"order_id"`
	Status      string  `db:"status" json:"status"`
	DelayDays   int     `db:"delay_days" json:"delay_days"`
	FreightCost float64 `db:"freight_cost" json:"freight_cost"`
}

// SupplierProductEdge is the tabular mirror of a SUPPLIES graph edge
type SupplierProductEdge struct {
	SupplierID  string  `db:"supplier_id" json:"supplier_id"`
	ProductID   string  `db:"product_id" json:"product_id"`
	VolumeShare float64 `db:"volume_share" json:"volume_share"`
}

// Shipment statuses
const (
	ShipmentStatusInTransit = "IN_TRANSIT"
	ShipmentStatusDelivered = "DELIVERED"
	ShipmentStatusDelayed   = "DELAYED"
)
