package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agromart/internal/models"
	"agromart/internal/repositories"
	"agromart/internal/services"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(_ context.Context, filter models.ProductFilter) ([]models.Product, error) {
	args := m.Called(filter)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(_ context.Context, product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(_ context.Context, product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(_ context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockProductRepository) SetAvailability(_ context.Context, id string, available bool) error {
	args := m.Called(id, available)
	return args.Error(0)
}

func (m *MockProductRepository) ReserveStock(_ context.Context, id string, quantity int) (*models.Product, error) {
	args := m.Called(id, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) ReleaseStock(_ context.Context, id string, quantity int) error {
	args := m.Called(id, quantity)
	return args.Error(0)
}

var (
	farmer   = services.Actor{UserID: "farmer-1", Role: models.RoleFarmer}
	other    = services.Actor{UserID: "farmer-2", Role: models.RoleFarmer}
	customer = services.Actor{UserID: "customer-1", Role: models.RoleCustomer}
	admin    = services.Actor{UserID: "admin-1", Role: models.RoleAdmin}
)

func newTomatoes() *models.Product {
	return &models.Product{
		ID:          "1",
		SellerID:    farmer.UserID,
		Name:        "Heirloom Tomatoes",
		Category:    models.CategoryVegetables,
		Price:       decimal.RequireFromString("4.50"),
		Unit:        models.UnitKg,
		Quantity:    100,
		IsAvailable: true,
	}
}

func TestProductService_GetAllProducts(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	filter := models.ProductFilter{Category: models.CategoryVegetables}
	expectedProducts := []models.Product{*newTomatoes(), {ID: "2", Name: "Carrots"}}

	mockRepo.On("GetAll", filter).Return(expectedProducts, nil).Once()

	products, err := service.GetAllProducts(context.Background(), filter)

	assert.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, expectedProducts, products)
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetProductByID(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	expectedProduct := newTomatoes()

	// Test successful retrieval
	mockRepo.On("GetByID", "1").Return(expectedProduct, nil).Once()
	product, err := service.GetProductByID(ctx, "1")
	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)
	mockRepo.AssertExpectations(t)

	// Test product not found
	mockRepo.On("GetByID", "99").Return(nil, fmt.Errorf("product with ID 99: %w", repositories.ErrNotFound)).Once()
	product, err = service.GetProductByID(ctx, "99")
	assert.ErrorIs(t, err, services.ErrProductNotFound)
	assert.Nil(t, product)
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	newProduct := newTomatoes()
	newProduct.ID = ""
	newProduct.SellerID = "someone-else"
	newProduct.IsAvailable = false
	newProduct.AverageRating = 4.9

	// Test successful creation
	mockRepo.On("Create", newProduct).Return(nil).Once()
	err := service.CreateProduct(ctx, farmer, newProduct)
	assert.NoError(t, err)
	assert.Equal(t, farmer.UserID, newProduct.SellerID)
	assert.True(t, newProduct.IsAvailable)
	assert.Zero(t, newProduct.AverageRating)
	mockRepo.AssertExpectations(t)

	// Test creation failure (e.g., database error)
	mockRepo.On("Create", newProduct).Return(fmt.Errorf("database error")).Once()
	err = service.CreateProduct(ctx, farmer, newProduct)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database error")
	mockRepo.AssertExpectations(t)

	// Customers cannot list products
	err = service.CreateProduct(ctx, customer, newTomatoes())
	assert.ErrorIs(t, err, services.ErrNotAuthorized)

	// Invalid listings never reach the repository
	invalid := newTomatoes()
	invalid.Name = ""
	invalid.Price = decimal.NewFromInt(-1)
	err = service.CreateProduct(ctx, farmer, invalid)
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
	mockRepo.AssertNotCalled(t, "Create", invalid)
}

func TestProductService_CreateProduct_ExpiryBeforeHarvest(t *testing.T) {
	service := services.NewProductService(new(MockProductRepository), nil)

	harvest := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	expiry := harvest.AddDate(0, 0, -1)
	product := newTomatoes()
	product.HarvestDate = &harvest
	product.ExpiryDate = &expiry

	err := service.CreateProduct(context.Background(), farmer, product)
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestProductService_UpdateProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	stored := newTomatoes()
	updatedProduct := newTomatoes()
	updatedProduct.Name = "Heirloom Tomatoes Updated"
	updatedProduct.Price = decimal.RequireFromString("5.00")

	// Test successful update
	mockRepo.On("GetByID", "1").Return(stored, nil).Twice()
	mockRepo.On("Update", updatedProduct).Return(nil).Once()
	_, err := service.UpdateProduct(ctx, farmer, updatedProduct)
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)

	// Only the owner may update
	mockRepo.On("GetByID", "1").Return(stored, nil).Once()
	_, err = service.UpdateProduct(ctx, other, updatedProduct)
	assert.ErrorIs(t, err, services.ErrNotAuthorized)

	// Even admins do not edit someone else's listing
	mockRepo.On("GetByID", "1").Return(stored, nil).Once()
	_, err = service.UpdateProduct(ctx, admin, updatedProduct)
	assert.ErrorIs(t, err, services.ErrNotAuthorized)

	// Test update of a missing product
	mockRepo.On("GetByID", "99").Return(nil, repositories.ErrNotFound).Once()
	_, err = service.UpdateProduct(ctx, farmer, &models.Product{ID: "99", Name: "NonExistent"})
	assert.ErrorIs(t, err, services.ErrProductNotFound)
	mockRepo.AssertExpectations(t)
}

func TestProductService_SetAvailability(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMockProductRepository()
	service := services.NewProductService(repo, nil)

	product := newTomatoes()
	product.ID = ""
	require.NoError(t, service.CreateProduct(ctx, farmer, product))

	updated, err := service.SetAvailability(ctx, farmer, product.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable)
	assert.Equal(t, 100, updated.Quantity)

	_, err = service.SetAvailability(ctx, other, product.ID, true)
	assert.ErrorIs(t, err, services.ErrNotAuthorized)
}

func TestProductService_DeleteProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	// Test successful deletion by the owner
	mockRepo.On("GetByID", "1").Return(newTomatoes(), nil).Once()
	mockRepo.On("Delete", "1").Return(nil).Once()
	err := service.DeleteProduct(ctx, farmer, "1")
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)

	// Admins may remove any listing
	mockRepo.On("GetByID", "1").Return(newTomatoes(), nil).Once()
	mockRepo.On("Delete", "1").Return(nil).Once()
	assert.NoError(t, service.DeleteProduct(ctx, admin, "1"))

	// Other farmers may not
	mockRepo.On("GetByID", "1").Return(newTomatoes(), nil).Once()
	assert.ErrorIs(t, service.DeleteProduct(ctx, other, "1"), services.ErrNotAuthorized)

	// Test deletion failure (e.g., product not found)
	mockRepo.On("GetByID", "99").Return(nil, repositories.ErrNotFound).Once()
	err = service.DeleteProduct(ctx, farmer, "99")
	assert.ErrorIs(t, err, services.ErrProductNotFound)
	mockRepo.AssertExpectations(t)
}

func TestProductService_NearbyProducts(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	near := models.Product{ID: "near", Latitude: 52.52, Longitude: 13.405}
	mid := models.Product{ID: "mid", Latitude: 52.40, Longitude: 13.06}
	far := models.Product{ID: "far", Latitude: 48.137, Longitude: 11.575}
	mockRepo.On("GetAll", models.ProductFilter{AvailableOnly: true}).
		Return([]models.Product{far, mid, near}, nil)

	results, err := service.NearbyProducts(ctx, 52.52, 13.405, 50)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].ID)
	assert.Zero(t, results[0].DistanceKm)
	assert.Equal(t, "mid", results[1].ID)
	assert.InDelta(t, 26.7, results[1].DistanceKm, 1.0)

	_, err = service.NearbyProducts(ctx, 95, 13.405, 50)
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = service.NearbyProducts(ctx, 52.52, 13.405, 10000)
	assert.ErrorIs(t, err, services.ErrValidation)
}
