package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"agromart/internal/models"
)

// GORMReviewRepository is a GORM implementation of ReviewRepository.
type GORMReviewRepository struct {
	db *gorm.DB
}

// NewGORMReviewRepository creates a new instance of GORMReviewRepository.
func NewGORMReviewRepository(db *gorm.DB) *GORMReviewRepository {
	return &GORMReviewRepository{db: db}
}

// ListByProduct returns a product's reviews, newest first.
func (r *GORMReviewRepository) ListByProduct(ctx context.Context, productID string) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews for product %s: %w", productID, err)
	}
	return reviews, nil
}

// GetByID retrieves a single review.
func (r *GORMReviewRepository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("review with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get review by ID %s: %w", id, err)
	}
	return &review, nil
}

// Create inserts a review; the (product, author) index rejects a second one.
func (r *GORMReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("review of product %s by %s: %w", review.ProductID, review.AuthorID, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// Update overwrites rating, comment and images.
func (r *GORMReviewRepository) Update(ctx context.Context, review *models.Review) error {
	res := r.db.WithContext(ctx).Model(review).
		Select("rating", "comment", "images", "updated_at").
		Updates(review)
	if res.Error != nil {
		return fmt.Errorf("failed to update review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("review with ID %s: %w", review.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a review.
func (r *GORMReviewRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Review{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("review with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// ToggleHelpful flips voterID's vote while holding a row lock on the review.
func (r *GORMReviewRepository) ToggleHelpful(ctx context.Context, id, voterID string) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&review, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("review with ID %s: %w", id, ErrNotFound)
			}
			return err
		}
		review.ToggleHelpful(voterID)
		return tx.Model(&review).Select("helpful_voters", "updated_at").Updates(&review).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to toggle helpful vote: %w", err)
	}
	return &review, nil
}

// RefreshRating locks the product row, reads the ratings and stores the
// aggregate in one transaction. Concurrent refreshes of a product queue on
// the lock; SQLite gets the same effect from its single writer.
func (r *GORMReviewRepository) RefreshRating(ctx context.Context, productID string, average func(ratings []int) float64) (float64, int, error) {
	var (
		avg   float64
		count int
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product with ID %s: %w", productID, ErrNotFound)
			}
			return err
		}

		var ratings []int
		if err := tx.Model(&models.Review{}).Where("product_id = ?", productID).Pluck("rating", &ratings).Error; err != nil {
			return err
		}
		avg, count = average(ratings), len(ratings)
		return tx.Model(&product).UpdateColumns(map[string]any{
			"average_rating": avg,
			"review_count":   count,
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, 0, err
		}
		return 0, 0, fmt.Errorf("failed to refresh rating of product %s: %w", productID, err)
	}
	return avg, count, nil
}
