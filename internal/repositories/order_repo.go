package repositories

import (
	"context"

	"agromart/internal/models"
)

// OrderRepository is the order ledger.
type OrderRepository interface {
	GetAll(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// Create stores the order with its line items. A taken order number
	// yields ErrDuplicateKey and nothing is written.
	Create(ctx context.Context, order *models.Order) error
	// UpdateStatus moves the order from one status to another, failing with
	// ErrConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus, trackingNumber string) error
	UpdatePayment(ctx context.Context, id string, status models.PaymentStatus, paymentID string) error
	// HasPaidPurchase reports whether the customer has a paid order containing the product.
	HasPaidPurchase(ctx context.Context, customerID, productID string) (bool, error)
}
