package models

import "github.com/shopspring/decimal"

// ProductType classifies what a product is sold as
type ProductType string

const (
	ProductTypeFood     ProductType = "food"
	ProductTypeBeverage ProductType = "beverage"
	ProductTypeOther    ProductType = "other"
)

// Product represents a sellable item
type Product struct {
	Base
	Name        string          `gorm:"not null" json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock       int             `gorm:"not null" json:"stock"` // never negative, see ProductService.UpdateStock
	Type        ProductType     `gorm:"type:varchar(20);not null" json:"type"`
	IsActive    bool            `gorm:"not null" json:"isActive"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
