package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the stock level at or below which an active product
// is reported as low on the dashboard.
const LowStockThreshold = 5

// Product represents a catalog entry.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	BuyingPrice   decimal.Decimal `json:"buyingPrice"`
	SellingPrice  decimal.Decimal `json:"sellingPrice"`
	StockQuantity *int            `json:"stockQuantity"`
	Active        bool            `json:"active"`
}

// Stock returns the stock quantity and whether it is set.
func (p *Product) Stock() (int, bool) {
	if p.StockQuantity == nil {
		return 0, false
	}
	return *p.StockQuantity, true
}

func (p *Product) clone() *Product {
	cp := *p
	if p.StockQuantity != nil {
		qty := *p.StockQuantity
		cp.StockQuantity = &qty
	}
	return &cp
}

// SalesOrder is the immutable record of a completed sale.
type SalesOrder struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customerName"`
	OrderDate    time.Time       `json:"orderDate"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Items        []SalesItem     `json:"items"`
}

func (o *SalesOrder) clone() *SalesOrder {
	cp := *o
	cp.Items = append([]SalesItem(nil), o.Items...)
	return &cp
}

// SalesItem is one priced line of an order. PricePerUnit is the selling
// price at settlement time and is never re-derived.
type SalesItem struct {
	ID           string          `json:"id"`
	OrderID      string          `json:"orderId"`
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	LineTotal    decimal.Decimal `json:"lineTotal"`
}

// SaleRequest is the input of a settlement.
type SaleRequest struct {
	CustomerName string            `json:"customerName"`
	Items        []SaleItemRequest `json:"items"`
}

// SaleItemRequest asks for Quantity units of one product.
type SaleItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// DashboardSummary holds the dashboard counters.
type DashboardSummary struct {
	TotalActiveProducts int             `json:"totalActiveProducts"`
	LowStockCount       int             `json:"lowStockCount"`
	Revenue             decimal.Decimal `json:"revenue"`
}
