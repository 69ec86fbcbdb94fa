package repositories

import (
	"context"

	"agromart/internal/models"
)

// ProductRepository is the catalog store: the authoritative source of product
// price and availability.
type ProductRepository interface {
	GetAll(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	SetAvailability(ctx context.Context, id string, available bool) error

	// ReserveStock decrements the quantity only if the product is available
	// and holds at least quantity units, as one indivisible step. It returns
	// the product after the decrement, or ErrNotFound, ErrUnavailable or a
	// *StockError.
	ReserveStock(ctx context.Context, id string, quantity int) (*models.Product, error)
	// ReleaseStock gives previously reserved units back.
	ReleaseStock(ctx context.Context, id string, quantity int) error
}
