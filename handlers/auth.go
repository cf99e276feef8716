package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/services"
	"github.com/LovationAdmin/gastos-api/utils"

	"github.com/gin-gonic/gin"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type AuthHandler struct {
	Identity services.IdentityProvider
	Email    *services.EmailService
}

func NewAuthHandler(identity services.IdentityProvider, email *services.EmailService) *AuthHandler {
	return &AuthHandler{Identity: identity, Email: email}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, email and password are required"})
		return
	}

	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, email and password are required"})
		return
	}
	if !emailPattern.MatchString(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	user, err := h.Identity.SignUp(c.Request.Context(), services.SignUpInput{
		Name:     name,
		Email:    email,
		Password: req.Password,
	})
	if err != nil {
		var providerErr *services.ProviderError
		switch {
		case errors.As(err, &providerErr):
			utils.LogAuthAction("register", email, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": providerErr.Message})
		case errors.Is(err, services.ErrEmailTaken):
			utils.LogAuthAction("register", email, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
		default:
			utils.SafeError("❌ Registration failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	utils.LogAuthAction("register", email, true)

	if h.Email.Enabled() {
		go func(to, name string) {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := h.Email.SendWelcome(ctx, to, name); err != nil {
				utils.SafeWarn("⚠️ Failed to send welcome email: %v", err)
			}
		}(user.Email, user.Name)
	}

	c.JSON(http.StatusCreated, models.RegisterResponse{
		Message: "User registered successfully",
		User:    *user,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	email := strings.TrimSpace(req.Email)
	if !emailPattern.MatchString(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	session, err := h.Identity.SignIn(c.Request.Context(), services.SignInInput{
		Email:    email,
		Password: req.Password,
		TOTPCode: strings.TrimSpace(req.TOTPCode),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			utils.LogAuthAction("login", email, false)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		case errors.Is(err, services.ErrTOTPRequired):
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":        "2FA code required",
				"requires_2fa": true,
			})
		case errors.Is(err, services.ErrInvalidTOTP):
			utils.LogAuthAction("login", email, false)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid 2FA code"})
		default:
			utils.SafeError("❌ Login failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	utils.LogAuthAction("login", email, true)

	c.JSON(http.StatusOK, models.AuthResponse{
		Message:     "Login successful",
		AccessToken: session.AccessToken,
		User:        session.User,
	})
}
