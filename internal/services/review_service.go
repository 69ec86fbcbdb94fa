package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"agromart/internal/logger"
	"agromart/internal/models"
	"agromart/internal/repositories"
	"agromart/internal/validation"
)

// ReviewInput is the author-editable part of a review.
type ReviewInput struct {
	Rating  int      `json:"rating" validate:"required,min=1,max=5"`
	Comment string   `json:"comment" validate:"required,min=10,max=500"`
	Images  []string `json:"images" validate:"omitempty,max=5,dive,required"`
}

// ReviewService manages product reviews and keeps each product's cached
// rating in step with them.
type ReviewService struct {
	reviewRepo  repositories.ReviewRepository
	productRepo repositories.ProductRepository
	orderRepo   repositories.OrderRepository
	validator   *validation.Validator
	log         *zap.Logger
}

// NewReviewService creates a new ReviewService. orderRepo is only used to mark
// reviews from paying customers as verified and may be nil.
func NewReviewService(reviewRepo repositories.ReviewRepository, productRepo repositories.ProductRepository, orderRepo repositories.OrderRepository, log *zap.Logger) *ReviewService {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		validator:   validation.New(),
		log:         logger.OrNop(log),
	}
}

// ListReviews returns a product's reviews, newest first.
func (s *ReviewService) ListReviews(ctx context.Context, productID string) ([]models.Review, error) {
	if _, err := s.getProduct(ctx, productID); err != nil {
		return nil, err
	}
	reviews, err := s.reviewRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// RatingSummary computes the aggregate straight from the reviews.
func (s *ReviewService) RatingSummary(ctx context.Context, productID string) (*models.RatingSummary, error) {
	reviews, err := s.ListReviews(ctx, productID)
	if err != nil {
		return nil, err
	}
	ratings := reviewRatings(reviews)
	return &models.RatingSummary{
		ProductID:     productID,
		AverageRating: AverageRating(ratings),
		ReviewCount:   len(ratings),
		Histogram:     RatingHistogram(ratings),
	}, nil
}

// AddReview records the actor's review of a product. Each user reviews a
// product at most once and sellers cannot review their own listings.
func (s *ReviewService) AddReview(ctx context.Context, actor Actor, productID string, input ReviewInput) (*models.Review, error) {
	product, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !canReview(actor, product) {
		return nil, ErrNotAuthorized
	}
	if fields := s.validator.Struct(input); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	review := &models.Review{
		ProductID:     productID,
		AuthorID:      actor.UserID,
		Rating:        input.Rating,
		Comment:       input.Comment,
		Images:        input.Images,
		HelpfulVoters: []string{},
		Verified:      s.hasPurchased(ctx, actor.UserID, productID),
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrDuplicateReview
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	if err := s.refreshRating(ctx, productID); err != nil {
		return nil, err
	}
	return review, nil
}

// UpdateReview revises rating, comment and images. Only the author or an
// admin may do so.
func (s *ReviewService) UpdateReview(ctx context.Context, actor Actor, productID, reviewID string, input ReviewInput) (*models.Review, error) {
	review, err := s.getReview(ctx, productID, reviewID)
	if err != nil {
		return nil, err
	}
	if !canModifyReview(actor, review) {
		return nil, ErrNotAuthorized
	}
	if fields := s.validator.Struct(input); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	review.Rating = input.Rating
	review.Comment = input.Comment
	review.Images = input.Images
	if err := s.reviewRepo.Update(ctx, review); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	if err := s.refreshRating(ctx, productID); err != nil {
		return nil, err
	}
	return s.getReview(ctx, productID, reviewID)
}

// DeleteReview removes a review. Authors and admins may delete.
func (s *ReviewService) DeleteReview(ctx context.Context, actor Actor, productID, reviewID string) error {
	review, err := s.getReview(ctx, productID, reviewID)
	if err != nil {
		return err
	}
	if !canModifyReview(actor, review) {
		return ErrNotAuthorized
	}
	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return s.refreshRating(ctx, productID)
}

// ToggleHelpful adds the actor to the review's helpful voters, or removes
// them if already present. Authors cannot vote on their own review.
func (s *ReviewService) ToggleHelpful(ctx context.Context, actor Actor, productID, reviewID string) (*models.Review, error) {
	if actor.UserID == "" {
		return nil, ErrNotAuthorized
	}
	review, err := s.getReview(ctx, productID, reviewID)
	if err != nil {
		return nil, err
	}
	if review.AuthorID == actor.UserID {
		return nil, ErrNotAuthorized
	}

	updated, err := s.reviewRepo.ToggleHelpful(ctx, reviewID, actor.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to toggle helpful vote: %w", err)
	}
	return updated, nil
}

// refreshRating recomputes the product's cached aggregate from every
// review. Running it again without changes stores the same values.
func (s *ReviewService) refreshRating(ctx context.Context, productID string) error {
	average, count, err := s.reviewRepo.RefreshRating(ctx, productID, AverageRating)
	if err != nil {
		return fmt.Errorf("failed to update product rating: %w", err)
	}
	s.log.Debug("product rating refreshed",
		zap.String("product_id", productID),
		zap.Float64("average", average),
		zap.Int("count", count),
	)
	return nil
}

func (s *ReviewService) hasPurchased(ctx context.Context, customerID, productID string) bool {
	if s.orderRepo == nil {
		return false
	}
	ok, err := s.orderRepo.HasPaidPurchase(ctx, customerID, productID)
	if err != nil {
		s.log.Warn("failed to check purchase history", zap.String("product_id", productID), zap.Error(err))
		return false
	}
	return ok
}

func (s *ReviewService) getProduct(ctx context.Context, productID string) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// getReview only finds reviews that belong to productID.
func (s *ReviewService) getReview(ctx context.Context, productID, reviewID string) (*models.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("review %s: %w", reviewID, ErrReviewNotFound)
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	if review.ProductID != productID {
		return nil, fmt.Errorf("review %s: %w", reviewID, ErrReviewNotFound)
	}
	return review, nil
}
