package models

import "github.com/google/uuid"

// SongRequest is an entry in a table's song/karaoke queue
type SongRequest struct {
	Base
	SongName     string     `gorm:"not null" json:"songName"`
	TableID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"tableId"`
	Table        *Table     `gorm:"foreignKey:TableID" json:"table,omitempty"`
	ClientID     *uuid.UUID `gorm:"type:uuid;index" json:"clientId"`
	Client       *Customer  `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	IsKaraoke    bool       `gorm:"not null" json:"isKaraoke"`
	IsPlayed     bool       `gorm:"not null" json:"isPlayed"`
	RoundNumber  int        `gorm:"not null" json:"roundNumber"`
	OrderInRound int        `gorm:"not null" json:"orderInRound"`
	IsActive     bool       `gorm:"not null;index" json:"isActive"`
}

// TableName specifies the table name for the SongRequest model
func (SongRequest) TableName() string {
	return "song_requests"
}
