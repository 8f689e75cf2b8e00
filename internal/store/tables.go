package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chainsight/internal/models"
)

// Products retrieves the full product catalog
func (s *Store) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products ORDER BY product_id")
	return products, err
}

// ProductByID retrieves one product
func (s *Store) ProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT * FROM products WHERE product_id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Suppliers retrieves all suppliers with their delivery statistics
func (s *Store) Suppliers(ctx context.Context) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	err := s.db.SelectContext(ctx, &suppliers,
		"SELECT * FROM suppliers ORDER BY supplier_id")
	return suppliers, err
}

// Customers retrieves all customers
func (s *Store) Customers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	err := s.db.SelectContext(ctx, &customers,
		"SELECT * FROM customers ORDER BY customer_id")
	return customers, err
}

// InventorySnapshots retrieves stock observations inside the window
func (s *Store) InventorySnapshots(ctx context.Context, from, to time.Time) ([]models.InventorySnapshot, error) {
	var snapshots []models.InventorySnapshot
	err := s.db.SelectContext(ctx, &snapshots,
		`SELECT * FROM inventory_snapshots
		 WHERE as_of_date BETWEEN $1 AND $2
		 ORDER BY product_id, as_of_date`, from, to)
	return snapshots, err
}

// SalesTransactions retrieves sale lines inside the window
func (s *Store) SalesTransactions(ctx context.Context, from, to time.Time) ([]models.SalesTransaction, error) {
	var sales []models.SalesTransaction
	err := s.db.SelectContext(ctx, &sales,
		`SELECT * FROM sales_transactions
		 WHERE transaction_date BETWEEN $1 AND $2
		 ORDER BY product_id, transaction_date`, from, to)
	return sales, err
}

// PurchaseOrders retrieves purchase orders placed inside the window
func (s *Store) PurchaseOrders(ctx context.Context, from, to time.Time) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	err := s.db.SelectContext(ctx, &orders,
		`SELECT * FROM purchase_orders
		 WHERE order_date BETWEEN $1 AND $2
		 ORDER BY po_id`, from, to)
	return orders, err
}

// ARLedger retrieves all receivables entries
func (s *Store) ARLedger(ctx context.Context) ([]models.ARLedgerEntry, error) {
	var entries []models.ARLedgerEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM ar_ledger ORDER BY customer_id, invoice_date")
	return entries, err
}

// APLedger retrieves all payables entries
func (s *Store) APLedger(ctx context.Context) ([]models.APLedgerEntry, error) {
	var entries []models.APLedgerEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM ap_ledger ORDER BY supplier_id, invoice_date")
	return entries, err
}

// Shipments retrieves all inbound freight movements
func (s *Store) Shipments(ctx context.Context) ([]models.Shipment, error) {
	var shipments []models.Shipment
	err := s.db.SelectContext(ctx, &shipments,
		"SELECT * FROM shipments ORDER BY order_id")
	return shipments, err
}

// SupplierProductEdges retrieves the tabular mirror of the SUPPLIES edges,
// used to assemble a relationship graph when no graph database is configured
func (s *Store) SupplierProductEdges(ctx context.Context) ([]models.SupplierProductEdge, error) {
	var edges []models.SupplierProductEdge
	err := s.db.SelectContext(ctx, &edges,
		"SELECT * FROM supplier_product_edges ORDER BY supplier_id, product_id")
	return edges, err
}
