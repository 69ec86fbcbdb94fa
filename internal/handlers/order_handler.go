package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"agromart/internal/logger"
	"agromart/internal/middleware"
	"agromart/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
	log     *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		log:     logger.OrNop(log),
	}
}

// RegisterRoutes registers the order routes. Every order route requires auth.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	orderRoutes := router.Group("/orders", auth)
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Patch("/:id/status", h.HandleUpdateOrderStatus)
	orderRoutes.Patch("/:id/payment", h.HandleUpdatePaymentStatus)
}

// HandleGetOrders lists the orders visible to the caller, optionally by ?status=.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext(), middleware.Actor(c), c.Query("status"))
	if err != nil {
		return writeError(c, h.log, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), middleware.Actor(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, "Could not retrieve order", err)
	}
	return c.JSON(order)
}

// HandleCreateOrder places an order for the authenticated customer.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req services.PlaceOrderInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	actor := middleware.Actor(c)
	order, err := h.service.PlaceOrder(c.UserContext(), actor.UserID, req)
	if err != nil {
		return writeError(c, h.log, "Could not place order", err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleUpdateOrderStatus moves an order to a new status.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req services.StatusUpdate
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	order, err := h.service.SetStatus(c.UserContext(), middleware.Actor(c), c.Params("id"), req)
	if err != nil {
		return writeError(c, h.log, "Order update failed", err)
	}
	return c.JSON(order)
}

// HandleUpdatePaymentStatus records a payment outcome.
func (h *OrderHandler) HandleUpdatePaymentStatus(c *fiber.Ctx) error {
	var req services.PaymentUpdate
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	order, err := h.service.SetPaymentStatus(c.UserContext(), middleware.Actor(c), c.Params("id"), req)
	if err != nil {
		return writeError(c, h.log, "Payment update failed", err)
	}
	return c.JSON(order)
}
