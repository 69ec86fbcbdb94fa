package repositories

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"agromart/internal/models"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
// Deleted products are kept with DeletedAt set, as the GORM store does.
type MockProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
	}
}

func cloneProduct(p models.Product) models.Product {
	p.Images = slices.Clone(p.Images)
	return p
}

// live returns the product unless it is missing or deleted. Callers hold mu.
func (r *MockProductRepository) live(id string) (models.Product, error) {
	product, ok := r.products[id]
	if !ok || product.DeletedAt.Valid {
		return models.Product{}, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return product, nil
}

// GetAll returns the products matching filter, newest first.
func (r *MockProductRepository) GetAll(_ context.Context, filter models.ProductFilter) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if p.DeletedAt.Valid {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.SellerID != "" && p.SellerID != filter.SellerID {
			continue
		}
		if filter.Organic != nil && p.IsOrganic != *filter.Organic {
			continue
		}
		if filter.AvailableOnly && !p.IsAvailable {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		productList = append(productList, cloneProduct(p))
	}
	sort.Slice(productList, func(i, j int) bool {
		return productList[i].CreatedAt.After(productList[j].CreatedAt)
	})
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, err := r.live(id)
	if err != nil {
		return nil, err
	}
	product = cloneProduct(product)
	return &product, nil
}

// Create adds a new product.
func (r *MockProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if _, exists := r.products[product.ID]; exists {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrDuplicateKey)
	}
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.products[product.ID] = cloneProduct(*product)
	return nil
}

// Update overwrites the seller-editable fields of an existing product.
func (r *MockProductRepository) Update(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.live(product.ID)
	if err != nil {
		return err
	}
	stored.Name = product.Name
	stored.Description = product.Description
	stored.Category = product.Category
	stored.Price = product.Price
	stored.Unit = product.Unit
	stored.Quantity = product.Quantity
	stored.IsOrganic = product.IsOrganic
	stored.Images = slices.Clone(product.Images)
	stored.HarvestDate = product.HarvestDate
	stored.ExpiryDate = product.ExpiryDate
	stored.Latitude = product.Latitude
	stored.Longitude = product.Longitude
	stored.UpdatedAt = time.Now()
	r.products[product.ID] = stored
	return nil
}

// Delete soft-deletes a product by its ID.
func (r *MockProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, err := r.live(id)
	if err != nil {
		return err
	}
	product.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	r.products[id] = product
	return nil
}

// SetAvailability toggles whether the product can be ordered.
func (r *MockProductRepository) SetAvailability(_ context.Context, id string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, err := r.live(id)
	if err != nil {
		return err
	}
	product.IsAvailable = available
	product.UpdatedAt = time.Now()
	r.products[id] = product
	return nil
}

// ReserveStock checks and decrements under the write lock.
func (r *MockProductRepository) ReserveStock(_ context.Context, id string, quantity int) (*models.Product, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product, err := r.live(id)
	if err != nil {
		return nil, err
	}
	if !product.IsAvailable {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrUnavailable)
	}
	if product.Quantity < quantity {
		return nil, &StockError{ProductID: id, Requested: quantity, Available: product.Quantity}
	}
	product.Quantity -= quantity
	r.products[id] = product

	product = cloneProduct(product)
	return &product, nil
}

// ReleaseStock adds quantity back.
func (r *MockProductRepository) ReleaseStock(_ context.Context, id string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Soft-deleted products still get their stock back.
	product, ok := r.products[id]
	if !ok {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	product.Quantity += quantity
	r.products[id] = product
	return nil
}

// setRating stores the cached rating aggregate for MockReviewRepository.
func (r *MockProductRepository) setRating(id string, average float64, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, err := r.live(id)
	if err != nil {
		return err
	}
	product.AverageRating = average
	product.ReviewCount = count
	r.products[id] = product
	return nil
}
