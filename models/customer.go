package models

import "github.com/google/uuid"

// Customer is a named patron seated at a table
type Customer struct {
	Base
	Name     string    `gorm:"not null" json:"name"`
	TableID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tableId"`
	Table    *Table    `gorm:"foreignKey:TableID" json:"table,omitempty"`
	IsActive bool      `gorm:"not null" json:"isActive"`
}

// TableName specifies the table name for the Customer model
func (Customer) TableName() string {
	return "customers"
}
