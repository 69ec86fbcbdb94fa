package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"agromart/internal/logger"
	"agromart/internal/models"
	"agromart/internal/repositories"
	"agromart/internal/validation"
)

const (
	earthRadiusKm       = 6371.0
	defaultNearbyRadius = 25.0
	maxNearbyRadius     = 500.0
)

// ProductDistance is a product together with its distance from a search point.
type ProductDistance struct {
	models.Product
	DistanceKm float64 `json:"distance_km"`
}

// ProductService handles business logic for the product catalog.
type ProductService struct {
	productRepo repositories.ProductRepository
	validator   *validation.Validator
	log         *zap.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(productRepo repositories.ProductRepository, log *zap.Logger) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		validator:   validation.New(),
		log:         logger.OrNop(log),
	}
}

// GetAllProducts retrieves the products matching filter.
func (s *ProductService) GetAllProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	products, err := s.productRepo.GetAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return products, nil
}

// GetProductByID retrieves a product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", id, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// NearbyProducts returns available products within radiusKm of the point,
// closest first. A non-positive radius falls back to the default.
func (s *ProductService) NearbyProducts(ctx context.Context, lat, lon, radiusKm float64) ([]ProductDistance, error) {
	if lat < -90 || lat > 90 {
		return nil, newValidationError("lat", "must be a valid latitude")
	}
	if lon < -180 || lon > 180 {
		return nil, newValidationError("lng", "must be a valid longitude")
	}
	if radiusKm <= 0 {
		radiusKm = defaultNearbyRadius
	}
	if radiusKm > maxNearbyRadius {
		return nil, newValidationError("radius", fmt.Sprintf("must be at most %.0f", maxNearbyRadius))
	}

	products, err := s.productRepo.GetAll(ctx, models.ProductFilter{AvailableOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	nearby := lo.FilterMap(products, func(p models.Product, _ int) (ProductDistance, bool) {
		d := haversineKm(lat, lon, p.Latitude, p.Longitude)
		return ProductDistance{Product: p, DistanceKm: math.Round(d*100) / 100}, d <= radiusKm
	})
	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})
	return nearby, nil
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

// CreateProduct lists a new product owned by the acting farmer. New listings
// start available and unrated.
func (s *ProductService) CreateProduct(ctx context.Context, actor Actor, product *models.Product) error {
	if !canCreateProduct(actor) {
		return ErrNotAuthorized
	}
	if err := s.validate(product); err != nil {
		return err
	}

	product.ID = ""
	product.SellerID = actor.UserID
	product.IsAvailable = true
	product.AverageRating = 0
	product.ReviewCount = 0

	if err := s.productRepo.Create(ctx, product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	s.log.Info("product created",
		zap.String("product_id", product.ID),
		zap.String("seller_id", product.SellerID),
		zap.Int("quantity", product.Quantity),
	)
	return nil
}

// UpdateProduct applies the seller-editable fields of product to the stored listing.
func (s *ProductService) UpdateProduct(ctx context.Context, actor Actor, product *models.Product) (*models.Product, error) {
	existing, err := s.GetProductByID(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	if !canEditProduct(actor, existing) {
		return nil, ErrNotAuthorized
	}
	if err := s.validate(product); err != nil {
		return nil, err
	}

	product.SellerID = existing.SellerID
	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", product.ID, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return s.GetProductByID(ctx, product.ID)
}

// SetAvailability lists or delists a product without touching its stock.
func (s *ProductService) SetAvailability(ctx context.Context, actor Actor, id string, available bool) (*models.Product, error) {
	existing, err := s.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEditProduct(actor, existing) {
		return nil, ErrNotAuthorized
	}
	if err := s.productRepo.SetAvailability(ctx, id, available); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", id, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to set availability: %w", err)
	}
	return s.GetProductByID(ctx, id)
}

// DeleteProduct removes a listing. Past orders keep their snapshots.
func (s *ProductService) DeleteProduct(ctx context.Context, actor Actor, id string) error {
	existing, err := s.GetProductByID(ctx, id)
	if err != nil {
		return err
	}
	if !canDeleteProduct(actor, existing) {
		return ErrNotAuthorized
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("product %s: %w", id, ErrProductNotFound)
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.log.Info("product deleted", zap.String("product_id", id), zap.String("actor", actor.UserID))
	return nil
}

func (s *ProductService) validate(product *models.Product) error {
	if fields := s.validator.Struct(product); fields != nil {
		return &ValidationError{Fields: fields}
	}
	if product.HarvestDate != nil && product.ExpiryDate != nil && product.ExpiryDate.Before(*product.HarvestDate) {
		return newValidationError("expiry_date", "must not be before harvest_date")
	}
	return nil
}
