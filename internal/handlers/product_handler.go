package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"agromart/internal/logger"
	"agromart/internal/middleware"
	"agromart/internal/models"
	"agromart/internal/services"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	service *services.ProductService
	log     *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		log:     logger.OrNop(log),
	}
}

// RegisterRoutes registers the product routes. Reads are public; writes run
// behind auth.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/nearby", h.HandleGetNearbyProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", auth, middleware.RequireRole(models.RoleFarmer, models.RoleAdmin), h.HandleCreateProduct)
	productRoutes.Put("/:id", auth, h.HandleUpdateProduct)
	productRoutes.Patch("/:id/availability", auth, h.HandleSetAvailability)
	productRoutes.Delete("/:id", auth, h.HandleDeleteProduct)
}

// HandleGetProducts lists products. Query parameters: category, seller,
// organic, search and available (defaults to true).
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	filter := models.ProductFilter{
		Category:      models.Category(c.Query("category")),
		SellerID:      c.Query("seller"),
		Search:        c.Query("search"),
		AvailableOnly: c.QueryBool("available", true),
	}
	if c.Query("organic") != "" {
		organic := c.QueryBool("organic")
		filter.Organic = &organic
	}

	products, err := h.service.GetAllProducts(c.UserContext(), filter)
	if err != nil {
		return writeError(c, h.log, "Could not retrieve products", err)
	}
	return c.JSON(products)
}

// HandleGetNearbyProducts lists available products around lat/lng within radius km.
func (h *ProductHandler) HandleGetNearbyProducts(c *fiber.Ctx) error {
	if c.Query("lat") == "" || c.Query("lng") == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "lat and lng query parameters are required",
		})
	}
	products, err := h.service.NearbyProducts(c.UserContext(),
		c.QueryFloat("lat"), c.QueryFloat("lng"), c.QueryFloat("radius"))
	if err != nil {
		return writeError(c, h.log, "Could not search nearby products", err)
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, "Could not retrieve product", err)
	}
	return c.JSON(product)
}

// HandleCreateProduct lists a new product for the authenticated farmer.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return badBody(c, err)
	}
	if err := h.service.CreateProduct(c.UserContext(), middleware.Actor(c), &product); err != nil {
		return writeError(c, h.log, "Could not create product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct replaces the editable fields of a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return badBody(c, err)
	}
	product.ID = c.Params("id")

	updated, err := h.service.UpdateProduct(c.UserContext(), middleware.Actor(c), &product)
	if err != nil {
		return writeError(c, h.log, "Could not update product", err)
	}
	return c.JSON(updated)
}

type availabilityRequest struct {
	IsAvailable *bool `json:"is_available"`
}

// HandleSetAvailability lists or delists a product.
func (h *ProductHandler) HandleSetAvailability(c *fiber.Ctx) error {
	var req availabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if req.IsAvailable == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  []fiber.Map{{"field": "is_available", "message": "is required"}},
		})
	}

	product, err := h.service.SetAvailability(c.UserContext(), middleware.Actor(c), c.Params("id"), *req.IsAvailable)
	if err != nil {
		return writeError(c, h.log, "Could not update availability", err)
	}
	return c.JSON(product)
}

// HandleDeleteProduct removes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), middleware.Actor(c), c.Params("id")); err != nil {
		return writeError(c, h.log, "Could not delete product", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
