package realtime

import (
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/barpos-api/models"
	"github.com/shopspring/decimal"
)

// Event names pushed to connected clients
const (
	EventSongRequestUpdate    = "songRequestUpdate"
	EventTableStatusUpdate    = "tableStatusUpdate"
	EventOrderRequestUpdate   = "orderRequestUpdate"
	EventNewOrderNotification = "newOrderNotification"
)

// Envelope is the wire format of every frame written to a WebSocket client
type Envelope struct {
	Event   string      `json:"event"`
	TableID uuid.UUID   `json:"tableId"`
	Data    interface{} `json:"data"`
}

// SongRequestUpdate carries a table's active song queue
type SongRequestUpdate struct {
	TableID      uuid.UUID            `json:"tableId"`
	SongRequests []models.SongRequest `json:"songRequests"`
}

// TableStatus is the occupancy snapshot sent with a table status update
type TableStatus struct {
	IsOccupied bool      `json:"isOccupied"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableStatusUpdate announces an occupancy change
type TableStatusUpdate struct {
	TableID     uuid.UUID   `json:"tableId"`
	TableStatus TableStatus `json:"tableStatus"`
}

// OrderRequestUpdate carries a table's open order requests
type OrderRequestUpdate struct {
	TableID       uuid.UUID             `json:"tableId"`
	OrderRequests []models.OrderRequest `json:"orderRequests"`
}

// OrderInfo summarises a freshly created order request
type OrderInfo struct {
	Total      decimal.Decimal `json:"total"`
	ItemsCount int             `json:"itemsCount"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// NewOrderNotification announces a new order request
type NewOrderNotification struct {
	OrderRequestID uuid.UUID  `json:"orderRequestId"`
	TableID        uuid.UUID  `json:"tableId"`
	ClientID       *uuid.UUID `json:"clientId,omitempty"`
	OrderInfo      OrderInfo  `json:"orderInfo"`
}
