package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lmercier/bulletin-analyzer/utils/auth"
	"github.com/lmercier/bulletin-analyzer/utils/response"
	"github.com/lmercier/bulletin-analyzer/utils/validation"
)

// AuthHandler authenticates the single admin account configured through the
// environment. There is no user table; the credentials live in config.
type AuthHandler struct {
	adminUsername     string
	adminPasswordHash string
	jwtManager        *auth.JWTManager
	validator         *validation.Validator
	tokenExpirySecs   int
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(adminUsername, adminPasswordHash string, jwtManager *auth.JWTManager) *AuthHandler {
	return &AuthHandler{
		adminUsername:     adminUsername,
		adminPasswordHash: adminPasswordHash,
		jwtManager:        jwtManager,
		validator:         validation.NewValidator(),
		tokenExpirySecs:   12 * 60 * 60,
	}
}

// LoginRequest represents an admin login request
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"` // in seconds
}

// Login handles admin login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	if req.Username != h.adminUsername {
		return response.Unauthorized(c, "Invalid username or password")
	}

	if err := auth.VerifyPassword(h.adminPasswordHash, req.Password); err != nil {
		return response.Unauthorized(c, "Invalid username or password")
	}

	accessToken, err := h.jwtManager.GenerateAccessToken(req.Username)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate access token")
	}

	return response.SuccessWithMessage(c, "Login successful", LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   h.tokenExpirySecs,
	})
}
