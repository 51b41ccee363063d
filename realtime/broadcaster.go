package realtime

import (
	"github.com/google/uuid"
	"github.com/kendall-kelly/barpos-api/models"
	"go.uber.org/zap"
)

// Broadcaster pushes a named event to every connected client.
// tableID scopes the event for clients that subscribed to a single table;
// clients without a subscription receive everything.
type Broadcaster interface {
	Broadcast(event string, tableID uuid.UUID, payload interface{})
}

type discard struct{}

func (discard) Broadcast(string, uuid.UUID, interface{}) {}

// Discard is a Broadcaster that drops every event
var Discard Broadcaster = discard{}

var broadcasterInstance = Discard

// GetBroadcaster returns the process-wide broadcaster
func GetBroadcaster() Broadcaster {
	return broadcasterInstance
}

// SetBroadcaster replaces the process-wide broadcaster
func SetBroadcaster(b Broadcaster) {
	if b == nil {
		b = Discard
	}
	broadcasterInstance = b
}

// Notifier builds the typed event payloads and hands them to a Broadcaster
type Notifier struct {
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewNotifier wraps b. A nil b drops every event.
func NewNotifier(b Broadcaster) *Notifier {
	if b == nil {
		b = Discard
	}
	return &Notifier{broadcaster: b, logger: zap.L().Named("notifier")}
}

// NotifySongRequestUpdate sends the table's active song queue
func (n *Notifier) NotifySongRequestUpdate(tableID uuid.UUID, songRequests []models.SongRequest) {
	if songRequests == nil {
		songRequests = []models.SongRequest{}
	}
	n.logger.Debug("song request update", zap.Stringer("table_id", tableID), zap.Int("count", len(songRequests)))
	n.broadcaster.Broadcast(EventSongRequestUpdate, tableID, SongRequestUpdate{TableID: tableID, SongRequests: songRequests})
}

// NotifyTableStatusUpdate sends a table's new occupancy
func (n *Notifier) NotifyTableStatusUpdate(tableID uuid.UUID, status TableStatus) {
	n.logger.Debug("table status update", zap.Stringer("table_id", tableID), zap.Bool("is_occupied", status.IsOccupied))
	n.broadcaster.Broadcast(EventTableStatusUpdate, tableID, TableStatusUpdate{TableID: tableID, TableStatus: status})
}

// NotifyOrderRequestUpdate sends the table's open order requests
func (n *Notifier) NotifyOrderRequestUpdate(tableID uuid.UUID, orderRequests []models.OrderRequest) {
	if orderRequests == nil {
		orderRequests = []models.OrderRequest{}
	}
	n.logger.Debug("order request update", zap.Stringer("table_id", tableID), zap.Int("count", len(orderRequests)))
	n.broadcaster.Broadcast(EventOrderRequestUpdate, tableID, OrderRequestUpdate{TableID: tableID, OrderRequests: orderRequests})
}

// NotifyNewOrder announces a freshly created order request
func (n *Notifier) NotifyNewOrder(orderRequestID, tableID uuid.UUID, clientID *uuid.UUID, info OrderInfo) {
	n.logger.Debug("new order", zap.Stringer("table_id", tableID), zap.Stringer("order_request_id", orderRequestID))
	n.broadcaster.Broadcast(EventNewOrderNotification, tableID, NewOrderNotification{
		OrderRequestID: orderRequestID,
		TableID:        tableID,
		ClientID:       clientID,
		OrderInfo:      info,
	})
}
