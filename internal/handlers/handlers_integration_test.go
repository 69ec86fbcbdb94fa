package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"agromart/internal/database"
	"agromart/internal/middleware"
	"agromart/internal/models"
	"agromart/internal/repositories"
	"agromart/internal/server"
	"agromart/internal/services"
)

const testJWTSecret = "test_jwt_secret_0123456789"

type testEnv struct {
	app  *fiber.App
	auth *services.AuthService
	db   *gorm.DB
}

// setupApp builds the full application on a private in-memory SQLite database.
func setupApp(t *testing.T, limiter *middleware.RateLimiter) *testEnv {
	t.Helper()

	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), 1)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	productRepo := repositories.NewGORMProductRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	reviewRepo := repositories.NewGORMReviewRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)

	authService := services.NewAuthService(userRepo, testJWTSecret, time.Hour, nil)
	app := server.New(server.Dependencies{
		DB:              db,
		Auth:            authService,
		Products:        services.NewProductService(productRepo, nil),
		Orders:          services.NewOrderService(orderRepo, productRepo, nil, nil),
		Reviews:         services.NewReviewService(reviewRepo, productRepo, orderRepo, nil),
		AuthRateLimiter: limiter,
	})

	return &testEnv{app: app, auth: authService, db: db}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

// signUp registers a user with the given role and returns a bearer token.
func (e *testEnv) signUp(t *testing.T, username string, role models.Role) string {
	t.Helper()

	status, body := e.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
		"role":     string(role),
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	return decode[map[string]string](t, body)["token"]
}

func (e *testEnv) createProduct(t *testing.T, token, name, price string, quantity int) models.Product {
	t.Helper()

	status, body := e.do(t, http.MethodPost, "/api/v1/products", token, map[string]interface{}{
		"name":      name,
		"category":  "vegetables",
		"price":     price,
		"unit":      "kg",
		"quantity":  quantity,
		"latitude":  52.52,
		"longitude": 13.405,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	return decode[models.Product](t, body)
}

func TestAuthRegisterAndLogin(t *testing.T) {
	env := setupApp(t, nil)

	userToRegister := map[string]string{
		"username": "testuser",
		"email":    "test@example.com",
		"password": "password123",
	}
	status, body := env.do(t, http.MethodPost, "/api/v1/auth/register", "", userToRegister)
	assert.Equal(t, http.StatusCreated, status)
	registerResp := decode[map[string]interface{}](t, body)
	assert.Equal(t, "User registered successfully", registerResp["message"])
	user := registerResp["user"].(map[string]interface{})
	assert.Equal(t, "customer", user["role"])
	assert.NotContains(t, user, "password")

	// Test Duplicate Registration (username)
	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/register", "", userToRegister)
	assert.Equal(t, http.StatusConflict, status)

	// Self-registration as admin is rejected
	status, body = env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "root",
		"email":    "root@example.com",
		"password": "password123",
		"role":     "admin",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "role")

	// Test Login
	status, body = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "testuser",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, status)
	loginResp := decode[map[string]string](t, body)
	assert.NotEmpty(t, loginResp["token"])

	claims, err := env.auth.ValidateToken(loginResp["token"])
	assert.NoError(t, err)
	assert.Equal(t, "testuser", claims.Username)
	assert.Equal(t, models.RoleCustomer, claims.Role)

	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "testuser",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthRateLimit(t *testing.T) {
	env := setupApp(t, middleware.NewRateLimiter(0.001, 2))

	credentials := map[string]string{"username": "nobody", "password": "password123"}
	for i := 0; i < 2; i++ {
		status, _ := env.do(t, http.MethodPost, "/api/v1/auth/login", "", credentials)
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, _ := env.do(t, http.MethodPost, "/api/v1/auth/login", "", credentials)
	assert.Equal(t, http.StatusTooManyRequests, status)

	// other routes are not throttled
	status, _ = env.do(t, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestProductEndpoints(t *testing.T) {
	env := setupApp(t, nil)
	farmerToken := env.signUp(t, "farmer", models.RoleFarmer)
	otherToken := env.signUp(t, "otherfarmer", models.RoleFarmer)
	customerToken := env.signUp(t, "customer", models.RoleCustomer)

	created := env.createProduct(t, farmerToken, "Heirloom Tomatoes", "4.50", 20)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsAvailable)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("4.50")))

	// --- reads are public ---
	status, body := env.do(t, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Product](t, body), 1)

	status, body = env.do(t, http.MethodGet, "/api/v1/products/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.ID, decode[models.Product](t, body).ID)

	status, body = env.do(t, http.MethodGet, "/api/v1/products/nearby?lat=52.5&lng=13.4&radius=10", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]services.ProductDistance](t, body), 1)

	status, _ = env.do(t, http.MethodGet, "/api/v1/products/nearby?lat=52.5", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// --- writes need auth and ownership ---
	status, _ = env.do(t, http.MethodPost, "/api/v1/products", "", map[string]string{"name": "Nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/products", customerToken, map[string]string{"name": "Nope"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = env.do(t, http.MethodPost, "/api/v1/products", farmerToken, map[string]interface{}{
		"name":     "X",
		"category": "rocks",
		"price":    "-1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	validation := decode[map[string]interface{}](t, body)
	assert.Equal(t, "Validation failed", validation["message"])
	assert.NotEmpty(t, validation["errors"])

	update := map[string]interface{}{
		"name":     "Heirloom Tomatoes Deluxe",
		"category": "vegetables",
		"price":    "5.25",
		"unit":     "kg",
		"quantity": 18,
	}
	status, _ = env.do(t, http.MethodPut, "/api/v1/products/"+created.ID, otherToken, update)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = env.do(t, http.MethodPut, "/api/v1/products/"+created.ID, farmerToken, update)
	assert.Equal(t, http.StatusOK, status)
	updated := decode[models.Product](t, body)
	assert.Equal(t, "Heirloom Tomatoes Deluxe", updated.Name)
	assert.Equal(t, 18, updated.Quantity)

	status, body = env.do(t, http.MethodPatch, "/api/v1/products/"+created.ID+"/availability", farmerToken,
		map[string]bool{"is_available": false})
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, decode[models.Product](t, body).IsAvailable)

	status, body = env.do(t, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]models.Product](t, body))

	status, body = env.do(t, http.MethodGet, "/api/v1/products?available=false", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Product](t, body), 1)

	status, _ = env.do(t, http.MethodDelete, "/api/v1/products/"+created.ID, farmerToken, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = env.do(t, http.MethodGet, "/api/v1/products/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOrderEndpoints(t *testing.T) {
	env := setupApp(t, nil)
	farmerToken := env.signUp(t, "farmer", models.RoleFarmer)
	customerToken := env.signUp(t, "customer", models.RoleCustomer)

	p1 := env.createProduct(t, farmerToken, "Carrots", "2.50", 5)
	p2 := env.createProduct(t, farmerToken, "Potatoes", "4.00", 3)

	address := map[string]string{"street": "1 Orchard Lane", "city": "Springfield", "zip_code": "12345"}
	placeOrder := func(lines ...map[string]interface{}) (int, []byte) {
		return env.do(t, http.MethodPost, "/api/v1/orders", customerToken, map[string]interface{}{
			"items":            lines,
			"delivery_address": address,
		})
	}
	item := func(id string, qty int) map[string]interface{} {
		return map[string]interface{}{"product": id, "quantity": qty}
	}
	stockOf := func(id string) int {
		status, body := env.do(t, http.MethodGet, "/api/v1/products/"+id, "", nil)
		require.Equal(t, http.StatusOK, status)
		return decode[models.Product](t, body).Quantity
	}

	status, _ := env.do(t, http.MethodPost, "/api/v1/orders", "", map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := placeOrder(item(p1.ID, 2), item(p2.ID, 1))
	require.Equal(t, http.StatusCreated, status, string(body))
	order := decode[models.Order](t, body)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("9.00")))
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, 3, stockOf(p1.ID))
	assert.Equal(t, 2, stockOf(p2.ID))

	status, body = placeOrder(item(p1.ID, 1), item(p2.ID, 3))
	assert.Equal(t, http.StatusBadRequest, status)
	failure := decode[map[string]interface{}](t, body)
	assert.Equal(t, p2.ID, failure["product_id"])
	assert.EqualValues(t, 2, failure["available"])
	assert.Equal(t, 3, stockOf(p1.ID))
	assert.Equal(t, 2, stockOf(p2.ID))

	status, _ = placeOrder(item(uuid.NewString(), 1))
	assert.Equal(t, http.StatusNotFound, status)

	status, body = placeOrder()
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "items")

	// --- reads ---
	status, body = env.do(t, http.MethodGet, "/api/v1/orders", customerToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Order](t, body), 1)

	status, body = env.do(t, http.MethodGet, "/api/v1/orders/"+order.ID, farmerToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, order.OrderNumber, decode[models.Order](t, body).OrderNumber)

	// --- lifecycle ---
	statusPath := "/api/v1/orders/" + order.ID + "/status"
	status, _ = env.do(t, http.MethodPatch, statusPath, customerToken, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodPatch, statusPath, farmerToken, map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodPatch, statusPath, farmerToken, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.OrderStatusConfirmed, decode[models.Order](t, body).Status)

	status, _ = env.do(t, http.MethodPatch, statusPath, farmerToken, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusConflict, status)

	status, body = env.do(t, http.MethodPatch, "/api/v1/orders/"+order.ID+"/payment", farmerToken,
		map[string]string{"payment_status": "paid", "payment_id": "pay_123"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.PaymentPaid, decode[models.Order](t, body).PaymentStatus)

	status, body = env.do(t, http.MethodPatch, statusPath, farmerToken, map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.OrderStatusCancelled, decode[models.Order](t, body).Status)
	assert.Equal(t, 5, stockOf(p1.ID))
	assert.Equal(t, 3, stockOf(p2.ID))

	status, _ = env.do(t, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), customerToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOrderEndpointsCamelCaseBody(t *testing.T) {
	env := setupApp(t, nil)
	farmerToken := env.signUp(t, "farmer", models.RoleFarmer)
	customerToken := env.signUp(t, "customer", models.RoleCustomer)
	p1 := env.createProduct(t, farmerToken, "Kale", "3.00", 4)

	status, body := env.do(t, http.MethodPost, "/api/v1/orders", customerToken, map[string]interface{}{
		"items":           []map[string]interface{}{{"product": p1.ID, "quantity": 1}},
		"deliveryAddress": map[string]string{"street": "9 Mill Road", "city": "Shelbyville", "zipCode": "54321"},
		"paymentId":       "pay_7",
		"payment_status":  "paid",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	order := decode[models.Order](t, body)
	assert.Equal(t, "54321", order.DeliveryAddress.ZipCode)
	assert.Equal(t, "pay_7", order.PaymentID)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
}

func TestReviewEndpoints(t *testing.T) {
	env := setupApp(t, nil)
	farmerToken := env.signUp(t, "farmer", models.RoleFarmer)
	aliceToken := env.signUp(t, "alice", models.RoleCustomer)
	bobToken := env.signUp(t, "bob", models.RoleCustomer)

	product := env.createProduct(t, farmerToken, "Strawberries", "6.00", 10)
	reviewsPath := "/api/v1/products/" + product.ID + "/reviews"

	status, body := env.do(t, http.MethodPost, reviewsPath, aliceToken, map[string]interface{}{
		"rating": 4, "comment": "Sweet and fresh, would buy again",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	aliceReview := decode[models.Review](t, body)

	status, _ = env.do(t, http.MethodPost, reviewsPath, aliceToken, map[string]interface{}{
		"rating": 1, "comment": "Changed my mind entirely",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = env.do(t, http.MethodPost, reviewsPath, farmerToken, map[string]interface{}{
		"rating": 5, "comment": "Best berries in the valley",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodPost, reviewsPath, bobToken, map[string]interface{}{
		"rating": 7, "comment": "too short",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodPost, reviewsPath, bobToken, map[string]interface{}{
		"rating": 5, "comment": "Perfectly ripe, great value",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = env.do(t, http.MethodGet, "/api/v1/products/"+product.ID+"/rating", "", nil)
	assert.Equal(t, http.StatusOK, status)
	summary := decode[models.RatingSummary](t, body)
	assert.Equal(t, 4.5, summary.AverageRating)
	assert.Equal(t, 2, summary.ReviewCount)
	assert.Equal(t, 1, summary.Histogram[4])
	assert.Equal(t, 1, summary.Histogram[5])

	status, body = env.do(t, http.MethodGet, "/api/v1/products/"+product.ID, "", nil)
	assert.Equal(t, http.StatusOK, status)
	cached := decode[models.Product](t, body)
	assert.Equal(t, 4.5, cached.AverageRating)
	assert.Equal(t, 2, cached.ReviewCount)

	status, body = env.do(t, http.MethodPost, reviewsPath+"/"+aliceReview.ID+"/helpful", bobToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[models.Review](t, body).HelpfulVoters, 1)

	status, _ = env.do(t, http.MethodPut, reviewsPath+"/"+aliceReview.ID, bobToken, map[string]interface{}{
		"rating": 1, "comment": "Hijacking this review",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodDelete, reviewsPath+"/"+aliceReview.ID, aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = env.do(t, http.MethodGet, reviewsPath, "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Review](t, body), 1)

	status, body = env.do(t, http.MethodGet, "/api/v1/products/"+product.ID+"/rating", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5.0, decode[models.RatingSummary](t, body).AverageRating)
}

func TestHealth(t *testing.T) {
	env := setupApp(t, nil)

	status, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	health := decode[map[string]string](t, body)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "connected", health["database"])
	assert.Equal(t, "disabled", health["rabbitmq"])
}
