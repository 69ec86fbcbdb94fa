package repositories

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"agromart/internal/models"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
// Order numbers are unique, as with the database index.
type MockOrderRepository struct {
	orders   map[string]models.Order
	byNumber map[string]string
	mu       sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders:   make(map[string]models.Order),
		byNumber: make(map[string]string),
	}
}

func cloneOrder(o models.Order) models.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

// GetAll returns the orders matching filter, newest first.
func (r *MockOrderRepository) GetAll(_ context.Context, filter models.OrderFilter) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if filter.CustomerID != "" && order.CustomerID != filter.CustomerID {
			continue
		}
		if filter.SellerID != "" && !order.HasSeller(filter.SellerID) {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		orderList = append(orderList, cloneOrder(order))
	}
	sort.Slice(orderList, func(i, j int) bool {
		return orderList[i].CreatedAt.After(orderList[j].CreatedAt)
	})
	return orderList, nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	order = cloneOrder(order)
	return &order, nil
}

// Create adds a new order.
func (r *MockOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if _, taken := r.byNumber[order.OrderNumber]; taken {
		return fmt.Errorf("order %s: %w", order.OrderNumber, ErrDuplicateKey)
	}
	if _, exists := r.orders[order.ID]; exists {
		return fmt.Errorf("order with ID %s: %w", order.ID, ErrDuplicateKey)
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		order.Items[i].ID = uint(i + 1)
		order.Items[i].OrderID = order.ID
	}
	r.orders[order.ID] = cloneOrder(*order)
	r.byNumber[order.OrderNumber] = order.ID
	return nil
}

// UpdateStatus updates the status of an order that still holds status from.
func (r *MockOrderRepository) UpdateStatus(_ context.Context, id string, from, to models.OrderStatus, trackingNumber string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	if order.Status != from {
		return fmt.Errorf("order with ID %s: %w", id, ErrConflict)
	}
	order.Status = to
	if trackingNumber != "" {
		order.TrackingNumber = trackingNumber
	}
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// UpdatePayment records payment bookkeeping on an order.
func (r *MockOrderRepository) UpdatePayment(_ context.Context, id string, status models.PaymentStatus, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	order.PaymentStatus = status
	if paymentID != "" {
		order.PaymentID = paymentID
	}
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// HasPaidPurchase reports whether the customer has a paid order containing the product.
func (r *MockOrderRepository) HasPaidPurchase(_ context.Context, customerID, productID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.CustomerID != customerID || order.PaymentStatus != models.PaymentPaid {
			continue
		}
		for _, item := range order.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}
