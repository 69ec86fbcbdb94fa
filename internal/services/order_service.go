package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"agromart/internal/logger"
	"agromart/internal/models"
	"agromart/internal/repositories"
	"agromart/internal/validation"
)

// OrderLineRequest is one requested product and quantity.
type OrderLineRequest struct {
	ProductID string `json:"product" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

// PlaceOrderInput is what a customer submits to place an order. Prices and
// payment status are never taken from the request; PaymentID is only a
// reference to a payment still to be confirmed through SetPaymentStatus.
type PlaceOrderInput struct {
	Items           []OrderLineRequest   `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress models.Address       `json:"delivery_address"`
	Notes           string               `json:"notes" validate:"max=500"`
	PaymentMethod   models.PaymentMethod `json:"payment_method" validate:"omitempty,oneof=card cash bank_transfer"`
	PaymentID       string               `json:"payment_id" validate:"max=128"`
}

// UnmarshalJSON also accepts the camelCase keys deliveryAddress,
// paymentMethod and paymentId.
func (in *PlaceOrderInput) UnmarshalJSON(data []byte) error {
	type plain PlaceOrderInput
	var aux struct {
		plain
		DeliveryAddressAlt *models.Address     `json:"deliveryAddress"`
		PaymentMethodAlt   models.PaymentMethod `json:"paymentMethod"`
		PaymentIDAlt       string               `json:"paymentId"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*in = PlaceOrderInput(aux.plain)
	if aux.DeliveryAddressAlt != nil && in.DeliveryAddress == (models.Address{}) {
		in.DeliveryAddress = *aux.DeliveryAddressAlt
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = aux.PaymentMethodAlt
	}
	if in.PaymentID == "" {
		in.PaymentID = aux.PaymentIDAlt
	}
	return nil
}

// StatusUpdate requests a fulfilment status change.
type StatusUpdate struct {
	Status         string `json:"status" validate:"required"`
	TrackingNumber string `json:"tracking_number" validate:"max=64"`
}

// PaymentUpdate records a payment outcome.
type PaymentUpdate struct {
	Status    string `json:"payment_status" validate:"required"`
	PaymentID string `json:"payment_id" validate:"max=128"`
}

type reservation struct {
	productID string
	quantity  int
}

// OrderService places orders against the catalog and drives their lifecycle.
type OrderService struct {
	orderRepo      repositories.OrderRepository
	productRepo    repositories.ProductRepository
	publisher      EventPublisher
	validator      *validation.Validator
	log            *zap.Logger
	now            func() time.Time
	newOrderNumber func(time.Time) string
}

// NewOrderService creates a new OrderService. publisher may be nil, in which
// case no events are emitted.
func NewOrderService(orderRepo repositories.OrderRepository, productRepo repositories.ProductRepository, publisher EventPublisher, log *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		productRepo:    productRepo,
		publisher:      publisher,
		validator:      validation.New(),
		log:            logger.OrNop(log),
		now:            time.Now,
		newOrderNumber: NewOrderNumber,
	}
}

// PlaceOrder validates the request, reserves stock for every line and records
// the order. Any failure after the first reservation gives back all units
// reserved so far, so a failed call leaves the catalog as it found it.
func (s *OrderService) PlaceOrder(ctx context.Context, customerID string, input PlaceOrderInput) (*models.Order, error) {
	if customerID == "" {
		return nil, ErrNotAuthorized
	}
	if fields := s.validator.Struct(input); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	reserved := make([]reservation, 0, len(input.Items))
	total := decimal.Zero

	for _, line := range input.Items {
		product, err := s.productRepo.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, s.rollback(ctx, reserved, lookupError(line.ProductID, err))
		}
		if !product.IsAvailable {
			return nil, s.rollback(ctx, reserved, &ProductError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Err:         ErrProductUnavailable,
			})
		}
		if product.Quantity < line.Quantity {
			return nil, s.rollback(ctx, reserved, &ProductError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   line.Quantity,
				Available:   product.Quantity,
				Err:         ErrInsufficientStock,
			})
		}

		// the read above is advisory; the guarded decrement decides
		if _, err := s.productRepo.ReserveStock(ctx, product.ID, line.Quantity); err != nil {
			return nil, s.rollback(ctx, reserved, reserveError(product, line.Quantity, err))
		}
		reserved = append(reserved, reservation{productID: product.ID, quantity: line.Quantity})

		item := models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			SellerID:    product.SellerID,
			Quantity:    line.Quantity,
			Price:       product.Price,
		}
		items = append(items, item)
		total = total.Add(item.Subtotal())
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:              uuid.NewString(),
		CustomerID:      customerID,
		Items:           items,
		DeliveryAddress: input.DeliveryAddress,
		Notes:           input.Notes,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentPending,
		PaymentMethod:   input.PaymentMethod,
		PaymentID:       input.PaymentID,
		TotalAmount:     total,
		OrderedAt:       now,
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = models.PaymentCard
	}

	if err := s.createWithUniqueNumber(ctx, order); err != nil {
		return nil, s.rollback(ctx, reserved, fmt.Errorf("failed to create order: %w", err))
	}

	s.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_id", customerID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	s.publish(ctx, EventOrderCreated, order)
	return order, nil
}

// createWithUniqueNumber assigns a fresh order number until the store accepts it.
func (s *OrderService) createWithUniqueNumber(ctx context.Context, order *models.Order) error {
	for attempt := 1; ; attempt++ {
		order.OrderNumber = s.newOrderNumber(order.OrderedAt)
		err := s.orderRepo.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repositories.ErrDuplicateKey) || attempt >= maxOrderNumberAttempts {
			return err
		}
		s.log.Warn("order number collision, retrying",
			zap.String("order_number", order.OrderNumber),
			zap.Int("attempt", attempt),
		)
	}
}

// rollback releases reservations newest first and returns cause joined with
// any release failure.
func (s *OrderService) rollback(ctx context.Context, reserved []reservation, cause error) error {
	errs := []error{cause}
	// release even if the request context is already cancelled
	ctx = context.WithoutCancel(ctx)
	for i := len(reserved) - 1; i >= 0; i-- {
		r := reserved[i]
		if err := s.productRepo.ReleaseStock(ctx, r.productID, r.quantity); err != nil {
			s.log.Error("failed to release reserved stock",
				zap.String("product_id", r.productID),
				zap.Int("quantity", r.quantity),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("release %d units of product %s: %w", r.quantity, r.productID, err))
		}
	}
	if len(errs) == 1 {
		return cause
	}
	return errors.Join(errs...)
}

func lookupError(productID string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return &ProductError{ProductID: productID, Err: ErrProductNotFound}
	}
	return fmt.Errorf("failed to get product %s: %w", productID, err)
}

func reserveError(product *models.Product, requested int, err error) error {
	var stockErr *repositories.StockError
	switch {
	case errors.As(err, &stockErr):
		return &ProductError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   requested,
			Available:   stockErr.Available,
			Err:         ErrInsufficientStock,
		}
	case errors.Is(err, repositories.ErrUnavailable):
		return &ProductError{ProductID: product.ID, ProductName: product.Name, Err: ErrProductUnavailable}
	case errors.Is(err, repositories.ErrNotFound):
		return &ProductError{ProductID: product.ID, ProductName: product.Name, Err: ErrProductNotFound}
	default:
		return fmt.Errorf("failed to reserve stock for product %s: %w", product.ID, err)
	}
}

// GetOrder returns an order visible to the actor.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canViewOrder(actor, order) {
		return nil, ErrNotAuthorized
	}
	return order, nil
}

// ListOrders returns the orders the actor may see: all of them for admins,
// orders containing their products for farmers and their own for customers.
func (s *OrderService) ListOrders(ctx context.Context, actor Actor, status string) ([]models.Order, error) {
	var filter models.OrderFilter
	if status != "" {
		st, err := models.ToOrderStatus(status)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}
		filter.Status = st
	}
	switch {
	case actor.IsAdmin():
	case actor.Role == models.RoleFarmer:
		filter.SellerID = actor.UserID
	case actor.UserID != "":
		filter.CustomerID = actor.UserID
	default:
		return nil, ErrNotAuthorized
	}

	orders, err := s.orderRepo.GetAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// SetStatus moves an order along its lifecycle. Cancelling an order gives its
// stock back to the catalog.
func (s *OrderService) SetStatus(ctx context.Context, actor Actor, id string, update StatusUpdate) (*models.Order, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canUpdateOrder(actor, order) {
		return nil, ErrNotAuthorized
	}

	next, err := models.ToOrderStatus(update.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, update.Status)
	}
	if fields := s.validator.Struct(update); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, next)
	}

	if err := s.orderRepo.UpdateStatus(ctx, id, order.Status, next, update.TrackingNumber); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			return nil, ErrConflict
		case errors.Is(err, repositories.ErrNotFound):
			return nil, fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
		default:
			return nil, fmt.Errorf("failed to update order status: %w", err)
		}
	}
	s.log.Info("order status changed",
		zap.String("order_id", id),
		zap.String("from", string(order.Status)),
		zap.String("to", string(next)),
		zap.String("actor", actor.UserID),
	)

	if next == models.OrderStatusCancelled {
		s.restock(ctx, order)
	}

	updated, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventOrderStatusChanged, updated)
	return updated, nil
}

// restock returns a cancelled order's units. The cancellation is already
// committed, so failures are logged rather than returned.
func (s *OrderService) restock(ctx context.Context, order *models.Order) {
	ctx = context.WithoutCancel(ctx)
	for _, item := range order.Items {
		if err := s.productRepo.ReleaseStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.log.Error("failed to restock cancelled order item",
				zap.String("order_id", order.ID),
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
		}
	}
}

// SetPaymentStatus records a payment outcome on an order.
func (s *OrderService) SetPaymentStatus(ctx context.Context, actor Actor, id string, update PaymentUpdate) (*models.Order, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canUpdateOrder(actor, order) {
		return nil, ErrNotAuthorized
	}

	status := models.PaymentStatus(update.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, update.Status)
	}
	if status == models.PaymentPaid && update.PaymentID == "" {
		return nil, newValidationError("payment_id", "is required")
	}

	if err := s.orderRepo.UpdatePayment(ctx, id, status, update.PaymentID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	updated, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventOrderPaymentChanged, updated)
	return updated, nil
}

func (s *OrderService) getOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// publish emits an order event. Delivery is best effort: the order is already
// stored when this runs.
func (s *OrderService) publish(ctx context.Context, eventType string, order *models.Order) {
	if s.publisher == nil {
		return
	}
	body, err := json.Marshal(newOrderEvent(eventType, order, s.now()))
	if err != nil {
		s.log.Error("failed to encode order event", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, eventType, body); err != nil {
		s.log.Warn("failed to publish order event",
			zap.String("event", eventType),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}
