package services

import (
	"github.com/google/uuid"
	"github.com/kendall-kelly/barpos-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LineItemInput is a caller-supplied product line. The subtotal is always derived.
type LineItemInput struct {
	ProductID uuid.UUID       `json:"productId" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Validate checks the quantity and price bounds
func (in LineItemInput) Validate() error {
	if in.ProductID == uuid.Nil {
		return &BadRequestError{Code: "VALIDATION_ERROR", Message: "productId is required"}
	}
	if in.Quantity < 1 {
		return &BadRequestError{Code: "VALIDATION_ERROR", Message: "quantity must be at least 1"}
	}
	if err := validateUnitPrice(in.UnitPrice); err != nil {
		return err
	}
	return validateSubtotal(in.Quantity, in.UnitPrice)
}

func validateSubtotal(quantity int, price decimal.Decimal) error {
	if ComputeSubtotal(quantity, price).GreaterThan(maxUnitPrice) {
		return &BadRequestError{Code: "VALIDATION_ERROR", Message: "line subtotal must not exceed " + maxUnitPrice.String()}
	}
	return nil
}

// maxUnitPrice is the largest value a decimal(10,2) column holds. Line subtotals share the bound.
var maxUnitPrice = decimal.RequireFromString("99999999.99")

// validateUnitPrice keeps prices storable without rounding so subtotal stays quantity × unitPrice
func validateUnitPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return &BadRequestError{Code: "VALIDATION_ERROR", Message: "unitPrice must not be negative"}
	}
	if !price.Equal(price.Round(2)) {
		return &BadRequestError{Code: "VALIDATION_ERROR", Message: "unitPrice must have at most 2 decimal places"}
	}
	if price.GreaterThan(maxUnitPrice) {
		return &BadRequestError{Code: "VALIDATION_ERROR", Message: "unitPrice must not exceed " + maxUnitPrice.String()}
	}
	return nil
}

func validateLineItems(items []LineItemInput) error {
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ComputeSubtotal returns quantity × unitPrice without floating-point drift
func ComputeSubtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// RecomputeOrderRequestTotal rewrites the request total from its persisted items.
// A missing request updates zero rows and is not an error.
func RecomputeOrderRequestTotal(tx *gorm.DB, orderRequestID uuid.UUID) (decimal.Decimal, error) {
	return recomputeTotal(tx, &models.OrderRequestItem{}, "order_request_id", &models.OrderRequest{}, orderRequestID)
}

// RecomputeOrderTotal rewrites the order total from its persisted items.
// A missing order updates zero rows and is not an error.
func RecomputeOrderTotal(tx *gorm.DB, orderID uuid.UUID) (decimal.Decimal, error) {
	return recomputeTotal(tx, &models.OrderItem{}, "order_id", &models.Order{}, orderID)
}

func recomputeTotal(tx *gorm.DB, itemModel interface{}, fk string, parentModel interface{}, parentID uuid.UUID) (decimal.Decimal, error) {
	var subtotals []decimal.Decimal
	if err := tx.Model(itemModel).Where(fk+" = ?", parentID).Pluck("subtotal", &subtotals).Error; err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, s := range subtotals {
		total = total.Add(s)
	}

	if err := tx.Model(parentModel).Where("id = ?", parentID).Update("total", total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// validateClientChange rejects an update that both sets and clears the client
func validateClientChange(clientID *uuid.UUID, clear bool) error {
	if clear && clientID != nil {
		return &BadRequestError{Code: "VALIDATION_ERROR", Message: "clientId and clearClient are mutually exclusive"}
	}
	return nil
}
