package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/LovationAdmin/gastos-api/migration"
	"github.com/LovationAdmin/gastos-api/services"
	"github.com/LovationAdmin/gastos-api/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler runs maintenance jobs guarded by the X-Admin-Secret header.
type AdminHandler struct {
	Repo     *services.ExpenseRepository
	Secret   string
	Location *time.Location
}

func NewAdminHandler(repo *services.ExpenseRepository, secret string, loc *time.Location) *AdminHandler {
	return &AdminHandler{Repo: repo, Secret: secret, Location: loc}
}

func (h *AdminHandler) authorized(c *gin.Context) bool {
	if h.Secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ADMIN_SECRET not configured"})
		return false
	}

	provided := c.GetHeader("X-Admin-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.Secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin secret"})
		return false
	}
	return true
}

// MigrateAllExpenses normalizes every stored expense.
func (h *AdminHandler) MigrateAllExpenses(c *gin.Context) {
	if !h.authorized(c) {
		return
	}
	h.run(c, "")
}

// MigrateUserExpenses normalizes the expenses of one user.
func (h *AdminHandler) MigrateUserExpenses(c *gin.Context) {
	if !h.authorized(c) {
		return
	}
	h.run(c, c.Param("user_id"))
}

func (h *AdminHandler) run(c *gin.Context, userID string) {
	if userID != "" {
		utils.SafeInfo("🔧 Expense migration requested for user %s", utils.MaskID(userID))
	} else {
		utils.SafeInfo("🔧 Expense migration requested for all users")
	}

	result, err := migration.NormalizeExpenses(c.Request.Context(), h.Repo, userID, h.Location)
	if err != nil {
		utils.SafeError("❌ Migration failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Migration failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
