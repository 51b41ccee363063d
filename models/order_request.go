package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderRequest is a pending pre-order raised from a table, awaiting staff acceptance
type OrderRequest struct {
	Base
	TableID     uuid.UUID          `gorm:"type:uuid;not null;index" json:"tableId"`
	Table       *Table             `gorm:"foreignKey:TableID" json:"table,omitempty"`
	ClientID    *uuid.UUID         `gorm:"type:uuid;index" json:"clientId"` // nullable
	Client      *Customer          `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Items       []OrderRequestItem `gorm:"foreignKey:OrderRequestID;constraint:OnDelete:CASCADE" json:"items"`
	Total       decimal.Decimal    `gorm:"type:decimal(10,2);not null" json:"total"`
	IsCompleted bool               `gorm:"not null;index" json:"isCompleted"`
	Version     int                `gorm:"not null" json:"version"`
}

// TableName specifies the table name for the OrderRequest model
func (OrderRequest) TableName() string {
	return "order_requests"
}

// OrderRequestItem is a single product line of an order request
type OrderRequestItem struct {
	Base
	OrderRequestID uuid.UUID       `gorm:"type:uuid;not null;index" json:"orderRequestId"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"productId"`
	Product        *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity       int             `gorm:"not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unitPrice"` // captured at request time
	Subtotal       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
}

// TableName specifies the table name for the OrderRequestItem model
func (OrderRequestItem) TableName() string {
	return "order_request_items"
}
