package services

import (
	"errors"
	"fmt"
	"strings"

	"agromart/internal/validation"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrProductNotFound      = errors.New("product not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrReviewNotFound       = errors.New("review not found")
	ErrProductUnavailable   = errors.New("product is not available")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrDuplicateReview      = errors.New("product already reviewed by this user")
	ErrNotAuthorized        = errors.New("not authorized")
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
	ErrInvalidTransition    = errors.New("order status transition not allowed")
	ErrConflict             = errors.New("order was modified concurrently")
	ErrUserExists           = errors.New("user already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)

// ValidationError lists every offending input field.
type ValidationError struct {
	Fields []validation.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []validation.FieldError{{Field: field, Message: message}}}
}

// ProductError is a product-level failure while placing an order. Err is one
// of ErrProductNotFound, ErrProductUnavailable or ErrInsufficientStock.
type ProductError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
	Err         error
}

func (e *ProductError) Error() string {
	name := e.ProductID
	if e.ProductName != "" {
		name = fmt.Sprintf("%s (%s)", e.ProductName, e.ProductID)
	}
	switch {
	case errors.Is(e.Err, ErrProductNotFound):
		return fmt.Sprintf("product %s not found", name)
	case errors.Is(e.Err, ErrProductUnavailable):
		return fmt.Sprintf("product %s is not available", name)
	case errors.Is(e.Err, ErrInsufficientStock):
		return fmt.Sprintf("insufficient stock for product %s (requested: %d, available: %d)", name, e.Requested, e.Available)
	default:
		return fmt.Sprintf("product %s: %v", name, e.Err)
	}
}

func (e *ProductError) Unwrap() error {
	return e.Err
}
