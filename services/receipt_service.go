package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptService archives completed orders and hands out links to the archived copy
type ReceiptService interface {
	// ArchiveReceipt stores a snapshot of the order and returns its storage key
	ArchiveReceipt(ctx context.Context, order *OrderDetail) (string, error)

	// GetReceiptURL generates a URL for downloading an archived receipt
	GetReceiptURL(ctx context.Context, key string) (string, error)

	// DeleteReceipt removes an archived receipt
	DeleteReceipt(ctx context.Context, key string) error
}

// S3ReceiptService implements ReceiptService using AWS S3 for storage
type S3ReceiptService struct {
	s3Service S3Interface
}

var receiptServiceInstance ReceiptService

// InitReceiptService initializes the receipt service with an S3 backend
func InitReceiptService(s3Service S3Interface) ReceiptService {
	receiptServiceInstance = &S3ReceiptService{s3Service: s3Service}
	return receiptServiceInstance
}

// GetReceiptService returns the initialized receipt service, nil when archiving is disabled
func GetReceiptService() ReceiptService {
	return receiptServiceInstance
}

// SetReceiptService sets the receipt service instance (primarily for testing)
func SetReceiptService(service ReceiptService) {
	receiptServiceInstance = service
}

// Receipt is the archived snapshot of a completed order
type Receipt struct {
	OrderID    uuid.UUID          `json:"orderId"`
	TableID    uuid.UUID          `json:"tableId"`
	ClientID   *uuid.UUID         `json:"clientId,omitempty"`
	Lines      []GroupedOrderItem `json:"lines"`
	Total      decimal.Decimal    `json:"total"`
	IssuedAt   time.Time          `json:"issuedAt"`
	OrderedAt  time.Time          `json:"orderedAt"`
	ItemsCount int                `json:"itemsCount"`
}

// ReceiptKey returns the storage key for an order's receipt
func ReceiptKey(orderID uuid.UUID, issuedAt time.Time) string {
	return fmt.Sprintf("receipts/%s/%s.json", issuedAt.UTC().Format("2006/01/02"), orderID)
}

// ArchiveReceipt uploads the receipt snapshot as JSON
func (s *S3ReceiptService) ArchiveReceipt(ctx context.Context, order *OrderDetail) (string, error) {
	issuedAt := time.Now().UTC()
	receipt := Receipt{
		OrderID:    order.ID,
		TableID:    order.TableID,
		ClientID:   order.ClientID,
		Lines:      order.GroupedItems,
		Total:      order.Total,
		IssuedAt:   issuedAt,
		OrderedAt:  order.CreatedAt,
		ItemsCount: len(order.Items),
	}

	body, err := json.Marshal(receipt)
	if err != nil {
		return "", fmt.Errorf("failed to encode receipt: %w", err)
	}

	key := ReceiptKey(order.ID, issuedAt)
	if err := s.s3Service.PutObject(ctx, key, body, "application/json"); err != nil {
		return "", fmt.Errorf("failed to archive receipt: %w", err)
	}
	return key, nil
}

// GetReceiptURL generates a presigned URL for an archived receipt
func (s *S3ReceiptService) GetReceiptURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	url, err := s.s3Service.GetPresignedURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to generate receipt URL: %w", err)
	}
	return url, nil
}

// DeleteReceipt deletes an archived receipt
func (s *S3ReceiptService) DeleteReceipt(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	if err := s.s3Service.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}
