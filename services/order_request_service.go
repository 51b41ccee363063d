package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/barpos-api/models"
	"github.com/kendall-kelly/barpos-api/realtime"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateOrderRequestInput is the payload for raising an order request
type CreateOrderRequestInput struct {
	TableID  uuid.UUID       `json:"tableId" binding:"required"`
	ClientID *uuid.UUID      `json:"clientId"`
	Items    []LineItemInput `json:"items" binding:"dive"`
}

// Validate checks the table and line items
func (in CreateOrderRequestInput) Validate() error {
	if in.TableID == uuid.Nil {
		return &BadRequestError{Code: "VALIDATION_ERROR", Message: "tableId is required"}
	}
	return validateLineItems(in.Items)
}

// UpdateOrderRequestInput is a partial update. A non-nil Items replaces the whole item set.
type UpdateOrderRequestInput struct {
	TableID     *uuid.UUID      `json:"tableId"`
	ClientID    *uuid.UUID      `json:"clientId"`
	ClearClient bool            `json:"clearClient"`
	Items       []LineItemInput `json:"items" binding:"omitempty,dive"`
	Version     *int            `json:"version"`
}

// Validate checks the client change and the replacement items
func (in UpdateOrderRequestInput) Validate() error {
	if err := validateClientChange(in.ClientID, in.ClearClient); err != nil {
		return err
	}
	return validateLineItems(in.Items)
}

// OrderRequestFilter narrows an order request listing
type OrderRequestFilter struct {
	TableID     *uuid.UUID
	ClientID    *uuid.UUID
	IsCompleted *bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// AcceptResult is the outcome of accepting an order request
type AcceptResult struct {
	OrderRequest *models.OrderRequest `json:"orderRequest"`
	Order        *OrderDetail         `json:"order"`
}

// OrderRequestService owns the pending-request lifecycle
type OrderRequestService struct {
	db       *gorm.DB
	notifier *realtime.Notifier
	orders   *OrderService
	audit    AuditLogger
	logger   *zap.Logger
}

var orderRequestServiceInstance *OrderRequestService

// NewOrderRequestService creates an order request service.
// orders is used to project the order produced by Accept.
func NewOrderRequestService(db *gorm.DB, notifier *realtime.Notifier, orders *OrderService, audit AuditLogger) *OrderRequestService {
	if notifier == nil {
		notifier = realtime.NewNotifier(nil)
	}
	if audit == nil {
		audit = NopAuditLogger
	}
	if orders == nil {
		orders = NewOrderService(db, nil, audit)
	}
	return &OrderRequestService{
		db:       db,
		notifier: notifier,
		orders:   orders,
		audit:    audit,
		logger:   zap.L().Named("order_requests"),
	}
}

// InitOrderRequestService creates the process-wide order request service
func InitOrderRequestService(db *gorm.DB, notifier *realtime.Notifier, orders *OrderService, audit AuditLogger) *OrderRequestService {
	orderRequestServiceInstance = NewOrderRequestService(db, notifier, orders, audit)
	return orderRequestServiceInstance
}

// GetOrderRequestService returns the process-wide order request service
func GetOrderRequestService() *OrderRequestService {
	return orderRequestServiceInstance
}

// SetOrderRequestService sets the order request service instance (primarily for testing)
func SetOrderRequestService(service *OrderRequestService) {
	orderRequestServiceInstance = service
}

func withOrderRequestRelations(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Product").
		Preload("Client").
		Preload("Table")
}

func normalizeOrderRequest(r *models.OrderRequest) {
	if r.Items == nil {
		r.Items = []models.OrderRequestItem{}
	}
}

// openOrderRequests returns the table's requests that are neither completed nor accepted
func openOrderRequests(db *gorm.DB, tableID uuid.UUID) ([]models.OrderRequest, error) {
	requests := []models.OrderRequest{}
	err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Product").
		Preload("Client").
		Where("table_id = ? AND is_completed = ?", tableID, false).
		Order("created_at ASC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	for i := range requests {
		normalizeOrderRequest(&requests[i])
	}
	return requests, nil
}

// broadcastOpenRequests pushes the table's open requests to connected clients
func (s *OrderRequestService) broadcastOpenRequests(ctx context.Context, tableID uuid.UUID) {
	requests, err := openOrderRequests(s.db.WithContext(ctx), tableID)
	if err != nil {
		s.logger.Error("failed to load open order requests", zap.Stringer("table_id", tableID), zap.Error(err))
		return
	}
	s.notifier.NotifyOrderRequestUpdate(tableID, requests)
}

func insertOrderRequestItems(tx *gorm.DB, requestID uuid.UUID, items []LineItemInput) error {
	if len(items) == 0 {
		return nil
	}

	for _, it := range items {
		if err := ensureExists(tx, &models.Product{}, "Product", it.ProductID); err != nil {
			return err
		}
		row := models.OrderRequestItem{
			OrderRequestID: requestID,
			ProductID:      it.ProductID,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			Subtotal:       ComputeSubtotal(it.Quantity, it.UnitPrice),
		}
		// one insert per line keeps created_at increasing in input order
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func completedRequest(id uuid.UUID) error {
	return &BadRequestError{
		Code:    "ORDER_REQUEST_COMPLETED",
		Message: "Order request " + id.String() + " is already completed",
	}
}

// Create persists a request with its items and announces it to the table's viewers
func (s *OrderRequestService) Create(ctx context.Context, in CreateOrderRequestInput) (*models.OrderRequest, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var requestID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Table{}, "Table", in.TableID); err != nil {
			return err
		}
		if in.ClientID != nil {
			if err := ensureExists(tx, &models.Customer{}, "Customer", *in.ClientID); err != nil {
				return err
			}
		}

		request := models.OrderRequest{
			TableID:     in.TableID,
			ClientID:    in.ClientID,
			Total:       decimal.Zero,
			IsCompleted: false,
			Version:     1,
		}
		if err := tx.Omit(clause.Associations).Create(&request).Error; err != nil {
			return err
		}
		requestID = request.ID

		if err := insertOrderRequestItems(tx, request.ID, in.Items); err != nil {
			return err
		}
		_, err := RecomputeOrderRequestTotal(tx, request.ID)
		return err
	})
	if err != nil {
		return nil, translateStoreError(err, "create order request")
	}

	request, err := s.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order request created", zap.Stringer("order_request_id", request.ID), zap.Stringer("table_id", request.TableID), zap.Int("items", len(request.Items)))
	recordAudit(ctx, s.audit, s.logger, AuditOrderRequestCreated, request.ID.String(), bson.M{
		"table_id": request.TableID.String(),
		"total":    request.Total.StringFixed(2),
	})

	s.notifier.NotifyNewOrder(request.ID, request.TableID, request.ClientID, realtime.OrderInfo{
		Total:      request.Total,
		ItemsCount: len(request.Items),
		CreatedAt:  request.CreatedAt,
	})
	s.broadcastOpenRequests(ctx, request.TableID)

	return request, nil
}

// GetByID returns a request with its items, products, client and table
func (s *OrderRequestService) GetByID(ctx context.Context, id uuid.UUID) (*models.OrderRequest, error) {
	var request models.OrderRequest
	if err := loadForUpdate(withOrderRequestRelations(s.db.WithContext(ctx)), &request, "Order request", id); err != nil {
		return nil, translateStoreError(err, "load order request")
	}
	normalizeOrderRequest(&request)
	return &request, nil
}

func applyOrderRequestFilter(q *gorm.DB, f OrderRequestFilter) *gorm.DB {
	if f.TableID != nil {
		q = q.Where("table_id = ?", *f.TableID)
	}
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if f.IsCompleted != nil {
		q = q.Where("is_completed = ?", *f.IsCompleted)
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at <= ?", *f.CreatedTo)
	}
	return q
}

// List returns one page of requests, newest first, and the total match count
func (s *OrderRequestService) List(ctx context.Context, f OrderRequestFilter, p Pagination) ([]models.OrderRequest, int64, error) {
	p = p.Normalize()
	db := s.db.WithContext(ctx)

	var total int64
	if err := applyOrderRequestFilter(db.Model(&models.OrderRequest{}), f).Count(&total).Error; err != nil {
		return nil, 0, translateStoreError(err, "count order requests")
	}

	requests := []models.OrderRequest{}
	q := paginate(withOrderRequestRelations(applyOrderRequestFilter(db, f)).Order("created_at DESC"), p)
	if err := q.Find(&requests).Error; err != nil {
		return nil, 0, translateStoreError(err, "list order requests")
	}
	for i := range requests {
		normalizeOrderRequest(&requests[i])
	}
	return requests, total, nil
}

// Update applies a partial update. Replacing items of a completed request is rejected.
func (s *OrderRequestService) Update(ctx context.Context, id uuid.UUID, in UpdateOrderRequestInput) (*models.OrderRequest, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var previousTable uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request models.OrderRequest
		if err := loadForUpdate(tx, &request, "Order request", id); err != nil {
			return err
		}
		if err := checkVersion(in.Version, request.Version, "Order request", id); err != nil {
			return err
		}
		if in.Items != nil && request.IsCompleted {
			return completedRequest(id)
		}
		previousTable = request.TableID

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
		if len(updates) > 0 {
			if err := tx.Model(&models.OrderRequest{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}

		if in.Items != nil {
			if err := tx.Where("order_request_id = ?", id).Delete(&models.OrderRequestItem{}).Error; err != nil {
				return err
			}
			if err := insertOrderRequestItems(tx, id, in.Items); err != nil {
				return err
			}
			if _, err := RecomputeOrderRequestTotal(tx, id); err != nil {
				return err
			}
		}

		return bumpVersion(tx, &models.OrderRequest{}, "Order request", id, request.Version)
	})
	if err != nil {
		return nil, translateStoreError(err, "update order request")
	}

	request, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.auditUpdate(ctx, request, "update order request")
	if previousTable != request.TableID {
		s.broadcastOpenRequests(ctx, previousTable)
	}
	s.broadcastOpenRequests(ctx, request.TableID)
	return request, nil
}

func (s *OrderRequestService) auditUpdate(ctx context.Context, request *models.OrderRequest, change string) {
	recordAudit(ctx, s.audit, s.logger, AuditOrderRequestUpdated, request.ID.String(), bson.M{
		"change":  change,
		"total":   request.Total.StringFixed(2),
		"items":   len(request.Items),
		"version": request.Version,
	})
}

// mutateItems runs fn against an open request inside a transaction, then recomputes
// the total, bumps the version and broadcasts the table's open requests.
func (s *OrderRequestService) mutateItems(ctx context.Context, requestID uuid.UUID, action string, fn func(tx *gorm.DB) error) (*models.OrderRequest, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request models.OrderRequest
		if err := loadForUpdate(tx, &request, "Order request", requestID); err != nil {
			return err
		}
		if request.IsCompleted {
			return completedRequest(requestID)
		}
		if err := fn(tx); err != nil {
			return err
		}
		if _, err := RecomputeOrderRequestTotal(tx, requestID); err != nil {
			return err
		}
		return bumpVersion(tx, &models.OrderRequest{}, "Order request", requestID, request.Version)
	})
	if err != nil {
		return nil, translateStoreError(err, action)
	}

	request, err := s.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	s.auditUpdate(ctx, request, action)
	s.broadcastOpenRequests(ctx, request.TableID)
	return request, nil
}

// AddItem appends a line to an open request
func (s *OrderRequestService) AddItem(ctx context.Context, requestID uuid.UUID, in LineItemInput) (*models.OrderRequest, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.mutateItems(ctx, requestID, "add order request item", func(tx *gorm.DB) error {
		return insertOrderRequestItems(tx, requestID, []LineItemInput{in})
	})
}

// UpdateItem patches one line of an open request and recomputes its subtotal
func (s *OrderRequestService) UpdateItem(ctx context.Context, requestID, itemID uuid.UUID, in UpdateLineItemInput) (*models.OrderRequest, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.mutateItems(ctx, requestID, "update order request item", func(tx *gorm.DB) error {
		var item models.OrderRequestItem
		if err := tx.Where("id = ? AND order_request_id = ?", itemID, requestID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Order request item", itemID)
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

		return tx.Model(&models.OrderRequestItem{}).Where("id = ?", itemID).Updates(map[string]interface{}{
			"product_id": item.ProductID,
			"quantity":   item.Quantity,
			"unit_price": item.UnitPrice,
			"subtotal":   ComputeSubtotal(item.Quantity, item.UnitPrice),
		}).Error
	})
}

// RemoveItem deletes one line of an open request
func (s *OrderRequestService) RemoveItem(ctx context.Context, requestID, itemID uuid.UUID) (*models.OrderRequest, error) {
	return s.mutateItems(ctx, requestID, "remove order request item", func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND order_request_id = ?", itemID, requestID).Delete(&models.OrderRequestItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("Order request item", itemID)
		}
		return nil
	})
}

// Complete closes a request without producing an order
func (s *OrderRequestService) Complete(ctx context.Context, id uuid.UUID) (*models.OrderRequest, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request models.OrderRequest
		if err := loadForUpdate(tx, &request, "Order request", id); err != nil {
			return err
		}
		if request.IsCompleted {
			return completedRequest(id)
		}
		return markCompleted(tx, id)
	})
	if err != nil {
		return nil, translateStoreError(err, "complete order request")
	}

	request, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order request completed", zap.Stringer("order_request_id", id))
	recordAudit(ctx, s.audit, s.logger, AuditOrderRequestCompleted, id.String(), nil)
	s.broadcastOpenRequests(ctx, request.TableID)
	return request, nil
}

// markCompleted flips isCompleted only if it is still false, so that at most one
// concurrent caller can terminate a request.
func markCompleted(tx *gorm.DB, id uuid.UUID) error {
	res := tx.Model(&models.OrderRequest{}).
		Where("id = ? AND is_completed = ?", id, false).
		Updates(map[string]interface{}{
			"is_completed": true,
			"version":      gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return completedRequest(id)
	}
	return nil
}

// Accept converts an open request into a processing order. Creating the order and
// closing the request commit together or not at all.
func (s *OrderRequestService) Accept(ctx context.Context, id uuid.UUID) (*AcceptResult, error) {
	var orderID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request models.OrderRequest
		q := tx.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
		if err := loadForUpdate(q, &request, "Order request", id); err != nil {
			return err
		}
		if request.IsCompleted {
			return completedRequest(id)
		}
		if len(request.Items) == 0 {
			return &BadRequestError{
				Code:    "ORDER_REQUEST_EMPTY",
				Message: "Order request " + id.String() + " has no items to accept",
			}
		}

		lines := make([]LineItemInput, 0, len(request.Items))
		for _, item := range request.Items {
			lines = append(lines, LineItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}

		order, err := createOrderTx(tx, request.TableID, request.ClientID, lines, models.OrderStatusProcessing, true)
		if err != nil {
			return err
		}
		orderID = order.ID

		return markCompleted(tx, id)
	})
	if err != nil {
		return nil, translateStoreError(err, "accept order request")
	}

	request, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order request accepted", zap.Stringer("order_request_id", id), zap.Stringer("order_id", orderID))
	recordAudit(ctx, s.audit, s.logger, AuditOrderRequestAccepted, id.String(), bson.M{"order_id": orderID.String()})
	recordAudit(ctx, s.audit, s.logger, AuditOrderCreated, orderID.String(), bson.M{
		"table_id":         order.TableID.String(),
		"status":           string(order.Status),
		"total":            order.Total.StringFixed(2),
		"order_request_id": id.String(),
	})
	s.broadcastOpenRequests(ctx, request.TableID)

	return &AcceptResult{OrderRequest: request, Order: order}, nil
}

// Remove deletes a request and its items. No notification is sent.
func (s *OrderRequestService) Remove(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.OrderRequest{}, "Order request", id); err != nil {
			return err
		}
		if err := tx.Where("order_request_id = ?", id).Delete(&models.OrderRequestItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.OrderRequest{}, "id = ?", id).Error
	})
	if err != nil {
		return translateStoreError(err, "remove order request")
	}

	recordAudit(ctx, s.audit, s.logger, AuditOrderRequestRemoved, id.String(), nil)
	return nil
}

// History returns the audit trail of a request, newest first
func (s *OrderRequestService) History(ctx context.Context, id uuid.UUID, limit int64) ([]*AuditEntry, error) {
	if err := ensureExists(s.db.WithContext(ctx), &models.OrderRequest{}, "Order request", id); err != nil {
		return nil, translateStoreError(err, "load order request")
	}
	return s.audit.History(ctx, id.String(), limit)
}
