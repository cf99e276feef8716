package handlers

import (
	"errors"
	"net/http"

	"github.com/LovationAdmin/gastos-api/services"
	"github.com/LovationAdmin/gastos-api/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to status codes. Anything unexpected is
// logged and answered with a generic message.
func respondError(c *gin.Context, err error, action string) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
	case errors.Is(err, services.ErrExpenseNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
	default:
		utils.SafeError("❌ %s failed: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
