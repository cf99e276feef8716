package handlers

import (
	"errors"
	"net/http"

	"github.com/LovationAdmin/gastos-api/middleware"
	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/services"
	"github.com/LovationAdmin/gastos-api/utils"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	Identity services.IdentityProvider
}

func NewProfileHandler(identity services.IdentityProvider) *ProfileHandler {
	return &ProfileHandler{Identity: identity}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": middleware.GetPrincipal(c).User()})
}

func (h *ProfileHandler) totpManager(c *gin.Context) (services.TOTPManager, bool) {
	manager, ok := h.Identity.(services.TOTPManager)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "2FA is not available with this identity provider"})
		return nil, false
	}
	return manager, true
}

func (h *ProfileHandler) SetupTOTP(c *gin.Context) {
	manager, ok := h.totpManager(c)
	if !ok {
		return
	}

	secret, otpURL, err := manager.SetupTOTP(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.SafeError("❌ 2FA setup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, models.TOTPSetupResponse{Secret: secret, QRCode: otpURL})
}

func (h *ProfileHandler) VerifyTOTP(c *gin.Context) {
	manager, ok := h.totpManager(c)
	if !ok {
		return
	}

	var req models.VerifyTOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code is required"})
		return
	}

	err := manager.EnableTOTP(c.Request.Context(), middleware.GetUserID(c), req.Code)
	if err != nil {
		respondTOTPError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "2FA enabled", "enabled": true})
}

func (h *ProfileHandler) DisableTOTP(c *gin.Context) {
	manager, ok := h.totpManager(c)
	if !ok {
		return
	}

	var req models.DisableTOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password and code are required"})
		return
	}

	err := manager.DisableTOTP(c.Request.Context(), middleware.GetUserID(c), req.Password, req.Code)
	if err != nil {
		respondTOTPError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "2FA disabled", "enabled": false})
}

func respondTOTPError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTOTPNotSetUp):
		c.JSON(http.StatusBadRequest, gin.H{"error": "2FA has not been set up"})
	case errors.Is(err, services.ErrInvalidTOTP):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 2FA code"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid password"})
	default:
		utils.SafeError("❌ 2FA update failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
