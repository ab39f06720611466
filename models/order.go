package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	return s == OrderStatusPending || s == OrderStatusCompleted
}

// Order is one customer purchase as exported by the shop platform.
// OrderNumber is assigned by the platform and never changes once stored.
// A nil DeliveryDate means the export carried no usable delivery date.
type Order struct {
	ID           uint            `gorm:"primaryKey"`
	OrderNumber  string          `gorm:"uniqueIndex;not null"`
	CustomerName string          `gorm:"not null;default:''"`
	Email        string          `gorm:"not null;default:''"`
	Phone        string          `gorm:"not null;default:''"`
	Address      string          `gorm:"not null;default:''"`
	Commune      string          `gorm:"not null;default:''"`
	DeliveryDate *time.Time      `gorm:"type:date;index"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Status       OrderStatus     `gorm:"type:varchar(16);not null;default:'pending';index"`
	PlacedAt     *time.Time
	ImportedAt   time.Time `gorm:"not null"`
	CompletedAt  *time.Time
	LineItems    []LineItem `gorm:"foreignKey:OrderID"`
}

func (o *Order) TableName() string {
	return "orders"
}

// HasDeliveryDate reports whether the order can appear in date-scoped reports.
func (o *Order) HasDeliveryDate() bool {
	return o.DeliveryDate != nil && !o.DeliveryDate.IsZero()
}

// LineItem is one product entry of an order. Position keeps the export order.
type LineItem struct {
	ID          uint            `gorm:"primaryKey"`
	OrderID     uint            `gorm:"index;not null"`
	Position    int             `gorm:"not null"`
	ProductName string          `gorm:"not null"`
	ProductKey  string          `gorm:"index;not null"`
	Quantity    int             `gorm:"not null"`
	Unit        string          `gorm:"not null;default:''"`
	SKU         string          `gorm:"not null;default:''"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
}

func (l *LineItem) TableName() string {
	return "line_items"
}

// OrderFilters narrows ListOrders. Zero values disable a filter.
type OrderFilters struct {
	DeliveryDate        *time.Time
	Status              OrderStatus
	MissingDeliveryDate bool
}

// DateCount is the number of pending orders due on a delivery date.
type DateCount struct {
	Date   time.Time
	Orders int64
}
