package repositories

import (
	"context"

	"agromart/internal/models"
)

// ReviewRepository stores product reviews, indexed by product.
type ReviewRepository interface {
	ListByProduct(ctx context.Context, productID string) ([]models.Review, error)
	GetByID(ctx context.Context, id string) (*models.Review, error)
	// Create fails with ErrDuplicateKey when the author already reviewed the product.
	Create(ctx context.Context, review *models.Review) error
	// Update overwrites rating, comment and images. Helpful votes only change
	// through ToggleHelpful.
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id string) error
	// ToggleHelpful flips voterID's helpful vote as one serialized step and
	// returns the updated review.
	ToggleHelpful(ctx context.Context, id, voterID string) (*models.Review, error)
	// RefreshRating recomputes the product's cached average and count from
	// its current reviews and stores them. Refreshes of the same product run
	// one at a time, so the last one always stores the latest reviews.
	RefreshRating(ctx context.Context, productID string, average func(ratings []int) float64) (float64, int, error)
}
