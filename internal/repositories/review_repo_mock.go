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

// MockReviewRepository is an in-memory implementation of ReviewRepository.
// Rating refreshes are written to products.
type MockReviewRepository struct {
	reviews  map[string]models.Review
	products *MockProductRepository
	mu       sync.RWMutex
}

// NewMockReviewRepository creates a new instance of MockReviewRepository
// that keeps the ratings cached in products up to date.
func NewMockReviewRepository(products *MockProductRepository) *MockReviewRepository {
	return &MockReviewRepository{
		reviews:  make(map[string]models.Review),
		products: products,
	}
}

func cloneReview(rv models.Review) models.Review {
	rv.Images = slices.Clone(rv.Images)
	rv.HelpfulVoters = slices.Clone(rv.HelpfulVoters)
	return rv
}

// ListByProduct returns a product's reviews, newest first.
func (r *MockReviewRepository) ListByProduct(_ context.Context, productID string) ([]models.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reviews := make([]models.Review, 0)
	for _, rv := range r.reviews {
		if rv.ProductID == productID {
			reviews = append(reviews, cloneReview(rv))
		}
	}
	sort.Slice(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	return reviews, nil
}

// GetByID returns a review by its ID.
func (r *MockReviewRepository) GetByID(_ context.Context, id string) (*models.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rv, ok := r.reviews[id]
	if !ok {
		return nil, fmt.Errorf("review with ID %s: %w", id, ErrNotFound)
	}
	rv = cloneReview(rv)
	return &rv, nil
}

// Create adds a review unless the author already reviewed the product.
func (r *MockReviewRepository) Create(_ context.Context, review *models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rv := range r.reviews {
		if rv.ProductID == review.ProductID && rv.AuthorID == review.AuthorID {
			return fmt.Errorf("review of product %s by %s: %w", review.ProductID, review.AuthorID, ErrDuplicateKey)
		}
	}
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now
	r.reviews[review.ID] = cloneReview(*review)
	return nil
}

// Update overwrites the mutable fields of a review.
func (r *MockReviewRepository) Update(_ context.Context, review *models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.reviews[review.ID]
	if !ok {
		return fmt.Errorf("review with ID %s: %w", review.ID, ErrNotFound)
	}
	stored.Rating = review.Rating
	stored.Comment = review.Comment
	stored.Images = slices.Clone(review.Images)
	stored.UpdatedAt = time.Now()
	r.reviews[review.ID] = stored
	return nil
}

// Delete removes a review.
func (r *MockReviewRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reviews[id]; !ok {
		return fmt.Errorf("review with ID %s: %w", id, ErrNotFound)
	}
	delete(r.reviews, id)
	return nil
}

// ToggleHelpful flips the voter's helpful vote under the write lock.
func (r *MockReviewRepository) ToggleHelpful(_ context.Context, id, voterID string) (*models.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.reviews[id]
	if !ok {
		return nil, fmt.Errorf("review with ID %s: %w", id, ErrNotFound)
	}
	stored.ToggleHelpful(voterID)
	stored.UpdatedAt = time.Now()
	r.reviews[id] = stored

	stored = cloneReview(stored)
	return &stored, nil
}

// RefreshRating holds the write lock from reading the ratings until the
// aggregate is stored.
func (r *MockReviewRepository) RefreshRating(_ context.Context, productID string, average func(ratings []int) float64) (float64, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ratings := make([]int, 0)
	for _, rv := range r.reviews {
		if rv.ProductID == productID {
			ratings = append(ratings, rv.Rating)
		}
	}
	avg := average(ratings)
	if err := r.products.setRating(productID, avg, len(ratings)); err != nil {
		return 0, 0, err
	}
	return avg, len(ratings), nil
}
