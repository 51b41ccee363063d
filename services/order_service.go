package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/barpos-api/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateOrderInput is the payload for creating an order
type CreateOrderInput struct {
	TableID  uuid.UUID          `json:"tableId" binding:"required"`
	ClientID *uuid.UUID         `json:"clientId"`
	Items    []LineItemInput    `json:"items" binding:"dive"`
	Status   models.OrderStatus `json:"status"`
	IsActive *bool              `json:"isActive"`
}

// Validate checks the status and line items
func (in CreateOrderInput) Validate() error {
	if in.TableID == uuid.Nil {
		return &BadRequestError{Code: "VALIDATION_ERROR", Message: "tableId is required"}
	}
	if in.Status != "" && !in.Status.IsValid() {
		return &BadRequestError{Code: "INVALID_STATUS", Message: "status must be one of: pending, processing, completed, cancelled"}
	}
	return validateLineItems(in.Items)
}

// UpdateOrderInput is a partial update. A non-nil Items replaces the whole item set.
type UpdateOrderInput struct {
	TableID     *uuid.UUID          `json:"tableId"`
	ClientID    *uuid.UUID          `json:"clientId"`
	ClearClient bool                `json:"clearClient"`
	Status      *models.OrderStatus `json:"status"`
	IsActive    *bool               `json:"isActive"`
	Items       []LineItemInput     `json:"items" binding:"omitempty,dive"`
	Version     *int                `json:"version"`
}

// Validate checks the status, the client change and the replacement items
func (in UpdateOrderInput) Validate() error {
	if in.Status != nil && !in.Status.IsValid() {
		return &BadRequestError{Code: "INVALID_STATUS", Message: "status must be one of: pending, processing, completed, cancelled"}
	}
	if err := validateClientChange(in.ClientID, in.ClearClient); err != nil {
		return err
	}
	return validateLineItems(in.Items)
}

// UpdateLineItemInput patches a single line
type UpdateLineItemInput struct {
	ProductID *uuid.UUID       `json:"productId"`
	Quantity  *int             `json:"quantity" binding:"omitempty,gt=0"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
}

// Validate checks the quantity and price bounds
func (in UpdateLineItemInput) Validate() error {
	if in.Quantity != nil && *in.Quantity < 1 {
		return &BadRequestError{Code: "VALIDATION_ERROR", Message: "quantity must be at least 1"}
	}
	if in.UnitPrice != nil {
		return validateUnitPrice(*in.UnitPrice)
	}
	return nil
}

// OrderFilter narrows an order listing
type OrderFilter struct {
	TableID     *uuid.UUID
	ClientID    *uuid.UUID
	Status      *models.OrderStatus
	IsActive    *bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// GroupedOrderItem merges the lines of one product within an order
type GroupedOrderItem struct {
	ProductID     uuid.UUID       `json:"productId"`
	Product       *models.Product `json:"product,omitempty"`
	TotalQuantity int             `json:"totalQuantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ItemIDs       []uuid.UUID     `json:"itemIds"`
}

// OrderDetail is an order together with its items grouped by product
type OrderDetail struct {
	models.Order
	GroupedItems []GroupedOrderItem `json:"groupedItems"`
}

// GroupOrderItems merges items that share a product, keeping first-seen order.
// The unit price of the first item seen for a product is reported for the group.
func GroupOrderItems(items []models.OrderItem) []GroupedOrderItem {
	groups := []GroupedOrderItem{}
	index := make(map[uuid.UUID]int)

	for _, item := range items {
		i, ok := index[item.ProductID]
		if !ok {
			index[item.ProductID] = len(groups)
			groups = append(groups, GroupedOrderItem{
				ProductID:     item.ProductID,
				Product:       item.Product,
				TotalQuantity: item.Quantity,
				UnitPrice:     item.UnitPrice,
				Subtotal:      item.Subtotal,
				ItemIDs:       []uuid.UUID{item.ID},
			})
			continue
		}
		g := &groups[i]
		g.TotalQuantity += item.Quantity
		g.Subtotal = g.Subtotal.Add(item.Subtotal)
		g.ItemIDs = append(g.ItemIDs, item.ID)
	}
	return groups
}

func newOrderDetail(order models.Order) *OrderDetail {
	if order.Items == nil {
		order.Items = []models.OrderItem{}
	}
	return &OrderDetail{Order: order, GroupedItems: GroupOrderItems(order.Items)}
}

// OrderService owns committed orders and their line items
type OrderService struct {
	db       *gorm.DB
	receipts ReceiptService
	audit    AuditLogger
	logger   *zap.Logger
}

var orderServiceInstance *OrderService

// NewOrderService creates an order service. receipts may be nil to disable archiving.
func NewOrderService(db *gorm.DB, receipts ReceiptService, audit AuditLogger) *OrderService {
	if audit == nil {
		audit = NopAuditLogger
	}
	return &OrderService{
		db:       db,
		receipts: receipts,
		audit:    audit,
		logger:   zap.L().Named("orders"),
	}
}

// InitOrderService creates the process-wide order service
func InitOrderService(db *gorm.DB, receipts ReceiptService, audit AuditLogger) *OrderService {
	orderServiceInstance = NewOrderService(db, receipts, audit)
	return orderServiceInstance
}

// GetOrderService returns the process-wide order service
func GetOrderService() *OrderService {
	return orderServiceInstance
}

// SetOrderService sets the order service instance (primarily for testing)
func SetOrderService(service *OrderService) {
	orderServiceInstance = service
}

func withOrderRelations(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Product").
		Preload("Client").
		Preload("Table")
}

// Create persists an order with its items. Status defaults to pending and isActive to true.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*OrderDetail, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.OrderStatusPending
	}
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = createOrderTx(tx, in.TableID, in.ClientID, in.Items, status, isActive)
		return err
	})
	if err != nil {
		return nil, translateStoreError(err, "create order")
	}

	s.logger.Info("order created", zap.Stringer("order_id", order.ID), zap.Stringer("table_id", order.TableID), zap.String("total", order.Total.StringFixed(2)))
	recordAudit(ctx, s.audit, s.logger, AuditOrderCreated, order.ID.String(), bson.M{
		"table_id": order.TableID.String(),
		"status":   string(order.Status),
		"total":    order.Total.StringFixed(2),
	})

	detail, err := s.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if detail.Status == models.OrderStatusCompleted {
		s.archiveReceipt(ctx, detail)
	}
	return detail, nil
}

// createOrderTx inserts the order shell and its items, then recomputes the total.
// Shared with order request acceptance so both happen in the caller's transaction.
func createOrderTx(tx *gorm.DB, tableID uuid.UUID, clientID *uuid.UUID, items []LineItemInput, status models.OrderStatus, isActive bool) (*models.Order, error) {
	if err := ensureExists(tx, &models.Table{}, "Table", tableID); err != nil {
		return nil, err
	}
	if clientID != nil {
		if err := ensureExists(tx, &models.Customer{}, "Customer", *clientID); err != nil {
			return nil, err
		}
	}

	order := models.Order{
		TableID:  tableID,
		ClientID: clientID,
		Total:    decimal.Zero,
		Status:   status,
		IsActive: isActive,
		Version:  1,
	}
	if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
		return nil, err
	}

	if err := insertOrderItems(tx, order.ID, items); err != nil {
		return nil, err
	}

	total, err := RecomputeOrderTotal(tx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Total = total
	return &order, nil
}

func insertOrderItems(tx *gorm.DB, orderID uuid.UUID, items []LineItemInput) error {
	if len(items) == 0 {
		return nil
	}

	for _, it := range items {
		if err := ensureExists(tx, &models.Product{}, "Product", it.ProductID); err != nil {
			return err
		}
		row := models.OrderItem{
			OrderID:   orderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  ComputeSubtotal(it.Quantity, it.UnitPrice),
		}
		// one insert per line keeps created_at increasing in input order
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID returns the order detail projection
func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*OrderDetail, error) {
	var order models.Order
	if err := loadForUpdate(withOrderRelations(s.db.WithContext(ctx)), &order, "Order", id); err != nil {
		return nil, translateStoreError(err, "load order")
	}
	return newOrderDetail(order), nil
}

func applyOrderFilter(q *gorm.DB, f OrderFilter) *gorm.DB {
	if f.TableID != nil {
		q = q.Where("table_id = ?", *f.TableID)
	}
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at <= ?", *f.CreatedTo)
	}
	return q
}

// List returns one page of orders, newest first, and the total match count
func (s *OrderService) List(ctx context.Context, f OrderFilter, p Pagination) ([]OrderDetail, int64, error) {
	p = p.Normalize()
	db := s.db.WithContext(ctx)

	var total int64
	if err := applyOrderFilter(db.Model(&models.Order{}), f).Count(&total).Error; err != nil {
		return nil, 0, translateStoreError(err, "count orders")
	}

	var orders []models.Order
	q := paginate(withOrderRelations(applyOrderFilter(db, f)).Order("created_at DESC"), p)
	if err := q.Find(&orders).Error; err != nil {
		return nil, 0, translateStoreError(err, "list orders")
	}

	details := make([]OrderDetail, 0, len(orders))
	for _, o := range orders {
		details = append(details, *newOrderDetail(o))
	}
	return details, total, nil
}

// Update applies a partial update. Moving the order into completed archives a receipt.
func (s *OrderService) Update(ctx context.Context, id uuid.UUID, in UpdateOrderInput) (*OrderDetail, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var previous models.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := loadForUpdate(tx, &order, "Order", id); err != nil {
			return err
		}
		if err := checkVersion(in.Version, order.Version, "Order", id); err != nil {
			return err
		}
		previous = order.Status

		updates := map[string]interface{}{}
		if in.TableID != nil {
			if err := ensureExists(tx, &models.Table{}, "Table", *in.TableID); err != nil {
				return err
			}
			updates["table_id"] = *in.TableID
		}
		if in.ClientID != nil {
			if err := ensureExists(tx, &models.Customer{}, "Customer", *in.ClientID); err != nil {
				return err
			}
			updates["client_id"] = *in.ClientID
		}
		if in.ClearClient {
			updates["client_id"] = nil
		}
		if in.Status != nil {
			updates["status"] = *in.Status
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}

		if in.Items != nil {
			if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
				return err
			}
			if err := insertOrderItems(tx, id, in.Items); err != nil {
				return err
			}
			if _, err := RecomputeOrderTotal(tx, id); err != nil {
				return err
			}
		}

		return bumpVersion(tx, &models.Order{}, "Order", id, order.Version)
	})
	if err != nil {
		return nil, translateStoreError(err, "update order")
	}

	detail, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.TableID != nil || in.ClientID != nil || in.ClearClient || in.IsActive != nil || in.Items != nil {
		s.auditUpdate(ctx, detail, "update order")
	}
	if detail.Status != previous {
		s.logger.Info("order status changed", zap.Stringer("order_id", id), zap.String("from", string(previous)), zap.String("to", string(detail.Status)))
		recordAudit(ctx, s.audit, s.logger, AuditOrderStatusChanged, id.String(), bson.M{
			"from": string(previous),
			"to":   string(detail.Status),
		})
		if detail.Status == models.OrderStatusCompleted {
			s.archiveReceipt(ctx, detail)
		}
	}
	return detail, nil
}

// archiveReceipt stores a receipt for a completed order. Failures are logged, the
// order stays completed either way.
func (s *OrderService) archiveReceipt(ctx context.Context, detail *OrderDetail) {
	if s.receipts == nil {
		return
	}

	key, err := s.receipts.ArchiveReceipt(ctx, detail)
	if err != nil {
		s.logger.Error("failed to archive receipt", zap.Stringer("order_id", detail.ID), zap.Error(err))
		return
	}
	if err := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", detail.ID).Update("receipt_key", key).Error; err != nil {
		s.logger.Error("failed to store receipt key", zap.Stringer("order_id", detail.ID), zap.Error(err))
		return
	}
	detail.ReceiptKey = &key
}

func (s *OrderService) auditUpdate(ctx context.Context, detail *OrderDetail, change string) {
	recordAudit(ctx, s.audit, s.logger, AuditOrderUpdated, detail.ID.String(), bson.M{
		"change":    change,
		"total":     detail.Total.StringFixed(2),
		"items":     len(detail.Items),
		"is_active": detail.IsActive,
		"version":   detail.Version,
	})
}

// ReceiptURL returns a download link for the order's archived receipt
func (s *OrderService) ReceiptURL(ctx context.Context, id uuid.UUID) (string, error) {
	var order models.Order
	if err := loadForUpdate(s.db.WithContext(ctx), &order, "Order", id); err != nil {
		return "", translateStoreError(err, "load order")
	}
	if order.ReceiptKey == nil || *order.ReceiptKey == "" {
		return "", &NotFoundError{Code: "RECEIPT_NOT_FOUND", Message: "No receipt has been archived for order " + id.String()}
	}
	if s.receipts == nil {
		return "", &BadRequestError{Code: "RECEIPTS_DISABLED", Message: "Receipt archiving is not configured"}
	}
	return s.receipts.GetReceiptURL(ctx, *order.ReceiptKey)
}

// History returns the audit trail of an order, newest first
func (s *OrderService) History(ctx context.Context, id uuid.UUID, limit int64) ([]*AuditEntry, error) {
	if err := ensureExists(s.db.WithContext(ctx), &models.Order{}, "Order", id); err != nil {
		return nil, translateStoreError(err, "load order")
	}
	return s.audit.History(ctx, id.String(), limit)
}

// AddItem appends a line to the order
func (s *OrderService) AddItem(ctx context.Context, orderID uuid.UUID, in LineItemInput) (*OrderDetail, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := loadForUpdate(tx, &order, "Order", orderID); err != nil {
			return err
		}
		if err := insertOrderItems(tx, orderID, []LineItemInput{in}); err != nil {
			return err
		}
		if _, err := RecomputeOrderTotal(tx, orderID); err != nil {
			return err
		}
		return bumpVersion(tx, &models.Order{}, "Order", orderID, order.Version)
	})
	if err != nil {
		return nil, translateStoreError(err, "add order item")
	}
	return s.updatedDetail(ctx, orderID, "add order item")
}

// UpdateItem patches one line of the order and recomputes its subtotal
func (s *OrderService) UpdateItem(ctx context.Context, orderID, itemID uuid.UUID, in UpdateLineItemInput) (*OrderDetail, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := loadForUpdate(tx, &order, "Order", orderID); err != nil {
			return err
		}

		var item models.OrderItem
		if err := tx.Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Order item", itemID)
			}
			return err
		}

		if in.ProductID != nil {
			if err := ensureExists(tx, &models.Product{}, "Product", *in.ProductID); err != nil {
				return err
			}
			item.ProductID = *in.ProductID
		}
		if in.Quantity != nil {
			item.Quantity = *in.Quantity
		}
		if in.UnitPrice != nil {
			item.UnitPrice = *in.UnitPrice
		}
		if err := validateSubtotal(item.Quantity, item.UnitPrice); err != nil {
			return err
		}
		item.Subtotal = ComputeSubtotal(item.Quantity, item.UnitPrice)

		if err := tx.Model(&models.OrderItem{}).Where("id = ?", itemID).Updates(map[string]interface{}{
			"product_id": item.ProductID,
			"quantity":   item.Quantity,
			"unit_price": item.UnitPrice,
			"subtotal":   item.Subtotal,
		}).Error; err != nil {
			return err
		}
		if _, err := RecomputeOrderTotal(tx, orderID); err != nil {
			return err
		}
		return bumpVersion(tx, &models.Order{}, "Order", orderID, order.Version)
	})
	if err != nil {
		return nil, translateStoreError(err, "update order item")
	}
	return s.updatedDetail(ctx, orderID, "update order item")
}

// RemoveItem deletes one line of the order
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*OrderDetail, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := loadForUpdate(tx, &order, "Order", orderID); err != nil {
			return err
		}

		res := tx.Where("id = ? AND order_id = ?", itemID, orderID).Delete(&models.OrderItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("Order item", itemID)
		}

		if _, err := RecomputeOrderTotal(tx, orderID); err != nil {
			return err
		}
		return bumpVersion(tx, &models.Order{}, "Order", orderID, order.Version)
	})
	if err != nil {
		return nil, translateStoreError(err, "remove order item")
	}
	return s.updatedDetail(ctx, orderID, "remove order item")
}

// updatedDetail reloads an order after an item mutation and records it in the audit trail
func (s *OrderService) updatedDetail(ctx context.Context, orderID uuid.UUID, change string) (*OrderDetail, error) {
	detail, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.auditUpdate(ctx, detail, change)
	return detail, nil
}

// Remove deletes the order and its items
func (s *OrderService) Remove(ctx context.Context, id uuid.UUID) error {
	var receiptKey *string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := loadForUpdate(tx, &order, "Order", id); err != nil {
			return err
		}
		receiptKey = order.ReceiptKey

		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, "id = ?", id).Error
	})
	if err != nil {
		return translateStoreError(err, "remove order")
	}

	if receiptKey != nil && s.receipts != nil {
		if err := s.receipts.DeleteReceipt(ctx, *receiptKey); err != nil {
			s.logger.Warn("failed to delete receipt", zap.Stringer("order_id", id), zap.Error(err))
		}
	}
	recordAudit(ctx, s.audit, s.logger, AuditOrderRemoved, id.String(), nil)
	return nil
}
