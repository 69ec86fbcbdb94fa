package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"agromart/internal/logger"
	"agromart/internal/middleware"
	"agromart/internal/services"
)

// ReviewHandler handles HTTP requests for product reviews.
type ReviewHandler struct {
	service *services.ReviewService
	log     *zap.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(service *services.ReviewService, log *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		log:     logger.OrNop(log),
	}
}

// RegisterRoutes registers the review routes under /products/:id.
func (h *ReviewHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	productRoutes := router.Group("/products/:id")
	productRoutes.Get("/reviews", h.HandleGetReviews)
	productRoutes.Get("/rating", h.HandleGetRating)
	productRoutes.Post("/reviews", auth, h.HandleCreateReview)
	productRoutes.Put("/reviews/:reviewId", auth, h.HandleUpdateReview)
	productRoutes.Delete("/reviews/:reviewId", auth, h.HandleDeleteReview)
	productRoutes.Post("/reviews/:reviewId/helpful", auth, h.HandleToggleHelpful)
}

// HandleGetReviews lists a product's reviews.
func (h *ReviewHandler) HandleGetReviews(c *fiber.Ctx) error {
	reviews, err := h.service.ListReviews(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, "Could not retrieve reviews", err)
	}
	return c.JSON(reviews)
}

// HandleGetRating returns the rating summary with its star histogram.
func (h *ReviewHandler) HandleGetRating(c *fiber.Ctx) error {
	summary, err := h.service.RatingSummary(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, "Could not retrieve rating", err)
	}
	return c.JSON(summary)
}

// HandleCreateReview adds the caller's review of a product.
func (h *ReviewHandler) HandleCreateReview(c *fiber.Ctx) error {
	var req services.ReviewInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	review, err := h.service.AddReview(c.UserContext(), middleware.Actor(c), c.Params("id"), req)
	if err != nil {
		return writeError(c, h.log, "Could not create review", err)
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

// HandleUpdateReview revises the caller's review.
func (h *ReviewHandler) HandleUpdateReview(c *fiber.Ctx) error {
	var req services.ReviewInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	review, err := h.service.UpdateReview(c.UserContext(), middleware.Actor(c), c.Params("id"), c.Params("reviewId"), req)
	if err != nil {
		return writeError(c, h.log, "Could not update review", err)
	}
	return c.JSON(review)
}

// HandleDeleteReview removes a review.
func (h *ReviewHandler) HandleDeleteReview(c *fiber.Ctx) error {
	err := h.service.DeleteReview(c.UserContext(), middleware.Actor(c), c.Params("id"), c.Params("reviewId"))
	if err != nil {
		return writeError(c, h.log, "Could not delete review", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleToggleHelpful flips the caller's helpful vote on a review.
func (h *ReviewHandler) HandleToggleHelpful(c *fiber.Ctx) error {
	review, err := h.service.ToggleHelpful(c.UserContext(), middleware.Actor(c), c.Params("id"), c.Params("reviewId"))
	if err != nil {
		return writeError(c, h.log, "Could not record vote", err)
	}
	return c.JSON(review)
}
