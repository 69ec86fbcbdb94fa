package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"agromart/internal/models"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
// Line items live in their own table and are loaded with the order.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.id")
	})
}

// GetAll retrieves the orders matching filter, newest first.
func (r *GORMOrderRepository) GetAll(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	q := preloadItems(r.db.WithContext(ctx))
	if filter.CustomerID != "" {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.SellerID != "" {
		sub := r.db.Model(&models.OrderItem{}).Select("order_id").Where("seller_id = ?", filter.SellerID)
		q = q.Where("id IN (?)", sub)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, nil
}

// GetByID retrieves an order and its line items.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := preloadItems(r.db.WithContext(ctx)).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// Create inserts the order and its items in one transaction.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("order %s: %w", order.OrderNumber, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// UpdateStatus only matches the row while it still holds the expected status.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus, trackingNumber string) error {
	updates := map[string]interface{}{"status": to}
	if trackingNumber != "" {
		updates["tracking_number"] = trackingNumber
	}

	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update order status for order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

// UpdatePayment records payment bookkeeping on an order.
func (r *GORMOrderRepository) UpdatePayment(ctx context.Context, id string, status models.PaymentStatus, paymentID string) error {
	updates := map[string]interface{}{"payment_status": status}
	if paymentID != "" {
		updates["payment_id"] = paymentID
	}

	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update payment for order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// HasPaidPurchase looks for a paid order line referencing the product.
func (r *GORMOrderRepository) HasPaidPurchase(ctx context.Context, customerID, productID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.customer_id = ? AND orders.payment_status = ? AND order_items.product_id = ?",
			customerID, models.PaymentPaid, productID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up purchases: %w", err)
	}
	return count > 0, nil
}

func (r *GORMOrderRepository) missingOrConflict(ctx context.Context, id string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up order %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("order with ID %s: %w", id, ErrConflict)
}
