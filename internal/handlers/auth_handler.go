package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"agromart/internal/logger"
	"agromart/internal/models"
	"agromart/internal/services"
	"agromart/internal/validation"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validator   *validation.Validator
	log         *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validation.New(),
		log:         logger.OrNop(log),
	}
}

// RegisterRoutes registers the authentication routes. Each middleware, such as
// a rate limiter, runs before both endpoints.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, middlewares ...fiber.Handler) {
	authRoutes := router.Group("/auth", middlewares...)
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var user models.User
	if err := c.BodyParser(&user); err != nil {
		return badBody(c, err)
	}
	user.ID = ""

	if fields := h.validator.Struct(user); fields != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fields,
		})
	}

	if err := h.authService.RegisterUser(c.UserContext(), &user); err != nil {
		return writeError(c, h.log, "Registration failed", err)
	}
	h.log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	// For security, do not return the password hash
	user.Password = ""
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	if fields := h.validator.Struct(req); fields != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fields,
		})
	}

	token, err := h.authService.LoginUser(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return writeError(c, h.log, "Authentication failed", err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}
