package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const recentExpensesLimit = 5

type ExpenseService struct {
	repo *ExpenseRepository
	loc  *time.Location
	now  func() time.Time
}

func NewExpenseService(repo *ExpenseRepository, loc *time.Location) *ExpenseService {
	if loc == nil {
		loc = time.UTC
	}
	return &ExpenseService{
		repo: repo,
		loc:  loc,
		now:  time.Now,
	}
}

// WithClock replaces the wall clock used for month boundaries.
func (s *ExpenseService) WithClock(now func() time.Time) *ExpenseService {
	s.now = now
	return s
}

// ============================================================================
// VALIDATION
// ============================================================================

// Validate applies the same rules on create and update.
func (s *ExpenseService) Validate(in models.ExpenseInput) (*models.ExpensePatch, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" || in.Amount == "" || strings.TrimSpace(in.Category) == "" || strings.TrimSpace(in.Date) == "" {
		return nil, newValidationError("All fields are required")
	}

	amount, err := parseAmount(in.Amount)
	if err != nil {
		return nil, newValidationError("Amount must be a valid number")
	}
	if amount <= 0 {
		return nil, newValidationError("Amount must be greater than zero")
	}

	category, ok := models.NormalizeCategory(in.Category)
	if !ok {
		return nil, newValidationError("Invalid category. Allowed: " + strings.Join(models.Categories, ", "))
	}

	date, err := utils.ParseDate(in.Date, s.loc)
	if err != nil {
		return nil, newValidationError("Invalid date format")
	}

	return &models.ExpensePatch{
		Description: description,
		Amount:      amount,
		Category:    category,
		Date:        date.UTC(),
	}, nil
}

// ============================================================================
// CRUD
// ============================================================================

func (s *ExpenseService) Create(ctx context.Context, userID string, in models.ExpenseInput) (*models.Expense, error) {
	patch, err := s.Validate(in)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		ID:          uuid.New().String(),
		Description: patch.Description,
		Amount:      patch.Amount,
		Category:    patch.Category,
		Date:        patch.Date,
		UserID:      userID,
	}

	if err := s.repo.Create(ctx, userID, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *ExpenseService) Get(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	return s.repo.Get(ctx, userID, expenseID)
}

// Update reports ErrExpenseNotFound before looking at the payload. The
// existence lookup only happens on its own when the payload is invalid.
func (s *ExpenseService) Update(ctx context.Context, userID, expenseID string, in models.ExpenseInput) (*models.Expense, error) {
	patch, err := s.Validate(in)
	if err != nil {
		if _, getErr := s.repo.Get(ctx, userID, expenseID); getErr != nil {
			return nil, getErr
		}
		return nil, err
	}

	return s.repo.Update(ctx, userID, expenseID, *patch)
}

func (s *ExpenseService) Delete(ctx context.Context, userID, expenseID string) error {
	return s.repo.Delete(ctx, userID, expenseID)
}

// ============================================================================
// READS
// ============================================================================

// List returns the user's expenses, most recent first. A non-empty query keeps
// expenses whose description or category contains it, ignoring case.
func (s *ExpenseService) List(ctx context.Context, userID, query string) ([]models.Expense, error) {
	expenses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	SortByDateDesc(expenses)

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return expenses, nil
	}

	filtered := make([]models.Expense, 0, len(expenses))
	for _, e := range expenses {
		if strings.Contains(strings.ToLower(e.Description), query) ||
			strings.Contains(strings.ToLower(e.Category), query) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// Summary totals the current month up to now and returns the five most recent
// expenses overall. Expenses dated later this month are not counted yet.
func (s *ExpenseService) Summary(ctx context.Context, principal models.Principal) (*models.ExpenseSummary, error) {
	expenses, err := s.List(ctx, principal.UserID, "")
	if err != nil {
		return nil, err
	}

	now := s.now()
	monthStart := utils.StartOfMonth(now, s.loc)

	total := decimal.Zero
	for _, e := range expenses {
		if !e.Date.Before(monthStart) && !e.Date.After(now) {
			total = total.Add(decimal.NewFromFloat(e.Amount))
		}
	}

	limit := recentExpensesLimit
	if len(expenses) < limit {
		limit = len(expenses)
	}
	recent := make([]models.Expense, limit)
	copy(recent, expenses[:limit])

	return &models.ExpenseSummary{
		TotalMonth:     total.InexactFloat64(),
		RecentExpenses: recent,
		UserName:       principal.Name,
	}, nil
}

// SortByDateDesc orders expenses by date, most recent first, ties by id.
func SortByDateDesc(expenses []models.Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		if !expenses[i].Date.Equal(expenses[j].Date) {
			return expenses[i].Date.After(expenses[j].Date)
		}
		return expenses[i].ID < expenses[j].ID
	})
}
