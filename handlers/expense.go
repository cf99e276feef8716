package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/LovationAdmin/gastos-api/middleware"
	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/services"
	"github.com/LovationAdmin/gastos-api/utils"

	"github.com/gin-gonic/gin"
)

type ExpenseHandler struct {
	Expenses    *services.ExpenseService
	Categorizer *services.CategorizerService
	Events      services.EventPublisher
}

func NewExpenseHandler(expenses *services.ExpenseService, categorizer *services.CategorizerService, events services.EventPublisher) *ExpenseHandler {
	return &ExpenseHandler{
		Expenses:    expenses,
		Categorizer: categorizer,
		Events:      events,
	}
}

// GetSummary returns the dashboard: this month's total and the latest expenses.
func (h *ExpenseHandler) GetSummary(c *gin.Context) {
	summary, err := h.Expenses.Summary(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		respondError(c, err, "load summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
	expenses, err := h.Expenses.List(c.Request.Context(), middleware.GetUserID(c), c.Query("q"))
	if err != nil {
		respondError(c, err, "list expenses")
		return
	}
	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}

func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	expense, err := h.Expenses.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "get expense")
		return
	}
	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var input models.ExpenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	expense, err := h.Expenses.Create(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err, "create expense")
		return
	}

	utils.LogExpenseAction("created", expense.ID, userID)
	h.afterWrite(c.Request.Context(), models.EventExpenseCreated, expense)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Expense created successfully",
		"expense": expense,
	})
}

func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)
	expenseID := c.Param("id")

	// A missing expense is 404 even when the body is malformed.
	var input models.ExpenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		if _, getErr := h.Expenses.Get(c.Request.Context(), userID, expenseID); getErr != nil {
			respondError(c, getErr, "update expense")
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	expense, err := h.Expenses.Update(c.Request.Context(), userID, expenseID, input)
	if err != nil {
		respondError(c, err, "update expense")
		return
	}

	utils.LogExpenseAction("updated", expense.ID, userID)
	h.afterWrite(c.Request.Context(), models.EventExpenseUpdated, expense)

	c.JSON(http.StatusOK, gin.H{
		"message": "Expense updated successfully",
		"expense": expense,
	})
}

func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)
	expenseID := c.Param("id")

	if err := h.Expenses.Delete(c.Request.Context(), userID, expenseID); err != nil {
		respondError(c, err, "delete expense")
		return
	}

	utils.LogExpenseAction("deleted", expenseID, userID)
	h.publish(c.Request.Context(), models.ExpenseEvent{
		Type:      models.EventExpenseDeleted,
		UserID:    userID,
		ExpenseID: expenseID,
		At:        time.Now().UTC(),
	})

	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully"})
}

// ============================================================================
// CATEGORIES
// ============================================================================

// ListCategories needs no authentication.
func ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": models.Categories})
}

// SuggestCategory proposes a category for a description typed in the form.
func (h *ExpenseHandler) SuggestCategory(c *gin.Context) {
	var req models.CategorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Description is required"})
		return
	}

	category, err := h.Categorizer.Suggest(c.Request.Context(), middleware.GetUserID(c), req.Description)
	if err != nil {
		respondError(c, err, "categorize expense")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"description": req.Description,
		"category":    category,
	})
}

// ============================================================================
// SIDE EFFECTS
// ============================================================================

func (h *ExpenseHandler) afterWrite(ctx context.Context, eventType string, expense *models.Expense) {
	if h.Categorizer != nil {
		h.Categorizer.Learn(ctx, expense.UserID, expense.Description, expense.Category)
	}
	h.publish(ctx, models.ExpenseEvent{
		Type:      eventType,
		UserID:    expense.UserID,
		ExpenseID: expense.ID,
		At:        time.Now().UTC(),
	})
}

func (h *ExpenseHandler) publish(ctx context.Context, event models.ExpenseEvent) {
	if h.Events == nil {
		return
	}
	if err := h.Events.PublishExpenseEvent(ctx, event); err != nil {
		utils.SafeWarn("⚠️ Failed to publish %s: %v", event.Type, err)
	}
}
