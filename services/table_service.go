package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/barpos-api/models"
	"github.com/kendall-kelly/barpos-api/realtime"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TableDetailOrderItem is an order line with its product name resolved
type TableDetailOrderItem struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// TableDetailOrder is an active order as shown on the table view
type TableDetailOrder struct {
	ID        uuid.UUID              `json:"id"`
	Client    *models.Customer       `json:"client"`
	Items     []TableDetailOrderItem `json:"items"`
	Total     decimal.Decimal        `json:"total"`
	Status    models.OrderStatus     `json:"status"`
	CreatedAt time.Time              `json:"createdAt"`
}

// TableDetail is the composite state of one table
type TableDetail struct {
	ID                   uuid.UUID             `json:"id"`
	Number               int                   `json:"number"`
	Name                 string                `json:"name"`
	Description          *string               `json:"description"`
	IsOccupied           bool                  `json:"isOccupied"`
	IsActive             bool                  `json:"isActive"`
	Customers            []models.Customer     `json:"customers"`
	ActiveOrders         []TableDetailOrder    `json:"activeOrders"`
	PendingOrderRequests []models.OrderRequest `json:"pendingOrderRequests"`
	CreatedAt            time.Time             `json:"createdAt"`
	UpdatedAt            time.Time             `json:"updatedAt"`
}

// TableService handles occupancy changes and the table detail view
type TableService struct {
	db       *gorm.DB
	notifier *realtime.Notifier
	logger   *zap.Logger
}

var tableServiceInstance *TableService

// NewTableService creates a table service
func NewTableService(db *gorm.DB, notifier *realtime.Notifier) *TableService {
	if notifier == nil {
		notifier = realtime.NewNotifier(nil)
	}
	return &TableService{db: db, notifier: notifier, logger: zap.L().Named("tables")}
}

// InitTableService creates the process-wide table service
func InitTableService(db *gorm.DB, notifier *realtime.Notifier) *TableService {
	tableServiceInstance = NewTableService(db, notifier)
	return tableServiceInstance
}

// GetTableService returns the process-wide table service
func GetTableService() *TableService {
	return tableServiceInstance
}

// SetTableService sets the table service instance (primarily for testing)
func SetTableService(service *TableService) {
	tableServiceInstance = service
}

// ChangeOccupiedStatus sets the table's occupancy. Setting the current value
// writes nothing and sends nothing.
func (s *TableService) ChangeOccupiedStatus(ctx context.Context, tableID uuid.UUID, occupied bool) (*models.Table, error) {
	db := s.db.WithContext(ctx)

	var table models.Table
	if err := loadForUpdate(db, &table, "Table", tableID); err != nil {
		return nil, translateStoreError(err, "load table")
	}
	if table.IsOccupied == occupied {
		return &table, nil
	}

	res := db.Model(&models.Table{}).
		Where("id = ? AND is_occupied = ?", tableID, table.IsOccupied).
		Update("is_occupied", occupied)
	if res.Error != nil {
		return nil, translateStoreError(res.Error, "update table occupancy")
	}
	if err := loadForUpdate(db, &table, "Table", tableID); err != nil {
		return nil, translateStoreError(err, "load table")
	}
	if res.RowsAffected == 0 {
		// another caller applied the same change first and has already announced it
		return &table, nil
	}

	s.logger.Info("table occupancy changed", zap.Stringer("table_id", tableID), zap.Bool("is_occupied", occupied))
	s.notifier.NotifyTableStatusUpdate(tableID, realtime.TableStatus{
		IsOccupied: table.IsOccupied,
		UpdatedAt:  table.UpdatedAt,
	})
	return &table, nil
}

// GetDetail assembles customers, active orders and open order requests for a table.
// Every collection is non-nil.
func (s *TableService) GetDetail(ctx context.Context, tableID uuid.UUID) (*TableDetail, error) {
	db := s.db.WithContext(ctx)

	var table models.Table
	if err := loadForUpdate(db, &table, "Table", tableID); err != nil {
		return nil, translateStoreError(err, "load table")
	}

	customers := []models.Customer{}
	if err := db.Where("table_id = ? AND is_active = ?", tableID, true).Order("created_at ASC").Find(&customers).Error; err != nil {
		return nil, translateStoreError(err, "load customers")
	}

	var orders []models.Order
	err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Product").
		Preload("Client").
		Where("table_id = ? AND is_active = ? AND status <> ?", tableID, true, models.OrderStatusCancelled).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, translateStoreError(err, "load active orders")
	}

	requests, err := openOrderRequests(db, tableID)
	if err != nil {
		return nil, translateStoreError(err, "load pending order requests")
	}

	activeOrders := make([]TableDetailOrder, 0, len(orders))
	for _, o := range orders {
		activeOrders = append(activeOrders, toTableDetailOrder(o))
	}

	return &TableDetail{
		ID:                   table.ID,
		Number:               table.Number,
		Name:                 table.Name,
		Description:          table.Description,
		IsOccupied:           table.IsOccupied,
		IsActive:             table.IsActive,
		Customers:            customers,
		ActiveOrders:         activeOrders,
		PendingOrderRequests: requests,
		CreatedAt:            table.CreatedAt,
		UpdatedAt:            table.UpdatedAt,
	}, nil
}

func toTableDetailOrder(o models.Order) TableDetailOrder {
	items := make([]TableDetailOrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		name := ""
		if it.Product != nil {
			name = it.Product.Name
		}
		items = append(items, TableDetailOrderItem{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal,
		})
	}
	return TableDetailOrder{
		ID:        o.ID,
		Client:    o.Client,
		Items:     items,
		Total:     o.Total,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
	}
}
