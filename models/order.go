package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a committed order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsValid reports whether s is one of the known statuses
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Order represents a committed, billable order
type Order struct {
	Base
	TableID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"tableId"`
	Table      *Table          `gorm:"foreignKey:TableID" json:"table,omitempty"`
	ClientID   *uuid.UUID      `gorm:"type:uuid;index" json:"clientId"` // nullable
	Client     *Customer       `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Items      []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Total      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Status     OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"` // pending, processing, completed, cancelled
	IsActive   bool            `gorm:"not null;index" json:"isActive"`
	ReceiptKey *string         `json:"receiptKey,omitempty"` // nullable, set when the order is archived on completion
	Version    int             `gorm:"not null" json:"version"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// OrderItem is a single product line of an order
type OrderItem struct {
	Base
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"orderId"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"productId"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unitPrice"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}
