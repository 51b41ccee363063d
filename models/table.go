package models

// Table represents a physical seating unit in the venue
type Table struct {
	Base
	Number      int     `gorm:"uniqueIndex;not null" json:"number"`
	Name        string  `gorm:"not null" json:"name"`
	Description *string `json:"description"`
	IsOccupied  bool    `gorm:"not null" json:"isOccupied"` // only changed through TableService.ChangeOccupiedStatus
	IsActive    bool    `gorm:"not null" json:"isActive"`
}

// TableName specifies the table name for the Table model
func (Table) TableName() string {
	return "tables"
}
