package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/kendall-kelly/barpos-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductService adjusts product stock
type ProductService struct {
	db     *gorm.DB
	logger *zap.Logger
}

var productServiceInstance *ProductService

// NewProductService creates a product service
func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db, logger: zap.L().Named("products")}
}

// InitProductService creates the process-wide product service
func InitProductService(db *gorm.DB) *ProductService {
	productServiceInstance = NewProductService(db)
	return productServiceInstance
}

// GetProductService returns the process-wide product service
func GetProductService() *ProductService {
	return productServiceInstance
}

// SetProductService sets the product service instance (primarily for testing)
func SetProductService(service *ProductService) {
	productServiceInstance = service
}

// UpdateStock adds delta to the product's stock. A result below zero is stored as zero.
func (s *ProductService) UpdateStock(ctx context.Context, productID uuid.UUID, delta int) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := loadForUpdate(q, &product, "Product", productID); err != nil {
			return err
		}

		stock := product.Stock + delta
		if stock < 0 {
			stock = 0
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", productID).Update("stock", stock).Error; err != nil {
			return err
		}
		product.Stock = stock
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err, "update product stock")
	}

	s.logger.Info("stock updated", zap.Stringer("product_id", productID), zap.Int("delta", delta), zap.Int("stock", product.Stock))
	return &product, nil
}
