package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/services"
	"github.com/LovationAdmin/gastos-api/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var fixedNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

type ExpenseServiceSuite struct {
	suite.Suite
	ctx context.Context
	kv  *store.MemoryStore
	svc *services.ExpenseService
}

func (s *ExpenseServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.kv = store.NewMemoryStore()
	repo := services.NewExpenseRepository(s.kv, time.UTC)
	s.svc = services.NewExpenseService(repo, time.UTC).WithClock(func() time.Time { return fixedNow })
}

func input(description, amount, category, date string) models.ExpenseInput {
	return models.ExpenseInput{
		Description: description,
		Amount:      models.AmountInput(amount),
		Category:    category,
		Date:        date,
	}
}

func (s *ExpenseServiceSuite) create(userID string, in models.ExpenseInput) *models.Expense {
	expense, err := s.svc.Create(s.ctx, userID, in)
	require.NoError(s.T(), err)
	return expense
}

func validationMessage(err error) string {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	return ""
}

func (s *ExpenseServiceSuite) TestCreateAssignsIDAndOwner() {
	expense := s.create("user-1", input("Supermercado", "45.30", "Alimentos", "2026-03-10"))

	assert.NotEmpty(s.T(), expense.ID)
	assert.Equal(s.T(), "user-1", expense.UserID)
	assert.Equal(s.T(), 45.30, expense.Amount)
	assert.Equal(s.T(), time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC), expense.Date)

	got, err := s.svc.Get(s.ctx, "user-1", expense.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), expense, got)
}

func (s *ExpenseServiceSuite) TestCreateMapsCategoryAlias() {
	expense := s.create("user-1", input("Lunch", "12", "food", "2026-03-10"))
	assert.Equal(s.T(), models.CategoryFood, expense.Category)
}

func (s *ExpenseServiceSuite) TestValidation() {
	tests := []struct {
		name    string
		in      models.ExpenseInput
		message string
	}{
		{"missing description", input("", "10", "Alimentos", "2026-03-01"), "All fields are required"},
		{"blank description", input("   ", "10", "Alimentos", "2026-03-01"), "All fields are required"},
		{"missing amount", input("Taxi", "", "Transporte", "2026-03-01"), "All fields are required"},
		{"missing category", input("Taxi", "10", "", "2026-03-01"), "All fields are required"},
		{"missing date", input("Taxi", "10", "Transporte", ""), "All fields are required"},
		{"amount not a number", input("Taxi", "abc", "Transporte", "2026-03-01"), "Amount must be a valid number"},
		{"zero amount", input("Taxi", "0", "Transporte", "2026-03-01"), "Amount must be greater than zero"},
		{"negative amount", input("Taxi", "-5", "Transporte", "2026-03-01"), "Amount must be greater than zero"},
		{"bad date", input("Taxi", "5", "Transporte", "yesterday"), "Invalid date format"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.Create(s.ctx, "user-1", tt.in)
			require.Error(s.T(), err)
			assert.Equal(s.T(), tt.message, validationMessage(err))
		})
	}

	assert.Equal(s.T(), 0, s.kv.Len(), "rejected input must not touch the store")
}

func (s *ExpenseServiceSuite) TestValidationRejectsUnknownCategory() {
	_, err := s.svc.Create(s.ctx, "user-1", input("Vuelo", "300", "Viajes", "2026-03-01"))
	assert.Contains(s.T(), validationMessage(err), "Invalid category")
}

func (s *ExpenseServiceSuite) TestGetIsScopedToOwner() {
	expense := s.create("user-1", input("Cine", "8", "Entretenimiento", "2026-03-01"))

	_, err := s.svc.Get(s.ctx, "user-2", expense.ID)
	assert.ErrorIs(s.T(), err, services.ErrExpenseNotFound)

	assert.ErrorIs(s.T(), s.svc.Delete(s.ctx, "user-2", expense.ID), services.ErrExpenseNotFound)
}

func (s *ExpenseServiceSuite) TestUpdateReplacesFields() {
	expense := s.create("user-1", input("Cine", "8", "Entretenimiento", "2026-03-01"))

	updated, err := s.svc.Update(s.ctx, "user-1", expense.ID, input("Teatro", "25.5", "Entretenimiento", "2026-03-02"))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), expense.ID, updated.ID)
	assert.Equal(s.T(), "user-1", updated.UserID)
	assert.Equal(s.T(), "Teatro", updated.Description)
	assert.Equal(s.T(), 25.5, updated.Amount)

	got, err := s.svc.Get(s.ctx, "user-1", expense.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), updated, got)
}

func (s *ExpenseServiceSuite) TestUpdateMissingExpenseIsNotFoundBeforeValidation() {
	_, err := s.svc.Update(s.ctx, "user-1", "nope", input("", "", "", ""))
	assert.ErrorIs(s.T(), err, services.ErrExpenseNotFound)
}

func (s *ExpenseServiceSuite) TestUpdateValidates() {
	expense := s.create("user-1", input("Cine", "8", "Entretenimiento", "2026-03-01"))

	_, err := s.svc.Update(s.ctx, "user-1", expense.ID, input("Cine", "0", "Entretenimiento", "2026-03-01"))
	assert.Equal(s.T(), "Amount must be greater than zero", validationMessage(err))

	got, err := s.svc.Get(s.ctx, "user-1", expense.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 8.0, got.Amount)
}

func (s *ExpenseServiceSuite) TestDeleteTwice() {
	expense := s.create("user-1", input("Taxi", "10", "Transporte", "2026-03-01"))

	require.NoError(s.T(), s.svc.Delete(s.ctx, "user-1", expense.ID))
	assert.ErrorIs(s.T(), s.svc.Delete(s.ctx, "user-1", expense.ID), services.ErrExpenseNotFound)
}

func (s *ExpenseServiceSuite) TestListSortedByDateDesc() {
	s.create("user-1", input("B", "1", "Otros", "2026-03-05"))
	s.create("user-1", input("C", "1", "Otros", "2026-01-20"))
	s.create("user-1", input("A", "1", "Otros", "2026-03-14T18:30:00Z"))
	s.create("user-2", input("Other user", "1", "Otros", "2026-03-15"))

	expenses, err := s.svc.List(s.ctx, "user-1", "")
	require.NoError(s.T(), err)
	require.Len(s.T(), expenses, 3)

	assert.Equal(s.T(), "A", expenses[0].Description)
	assert.Equal(s.T(), "B", expenses[1].Description)
	assert.Equal(s.T(), "C", expenses[2].Description)
}

func (s *ExpenseServiceSuite) TestListFiltersByQuery() {
	s.create("user-1", input("Supermercado", "1", "Alimentos", "2026-03-05"))
	s.create("user-1", input("Taxi", "1", "Transporte", "2026-03-06"))
	s.create("user-1", input("Cena", "1", "Alimentos", "2026-03-07"))

	expenses, err := s.svc.List(s.ctx, "user-1", "ALIMENTOS")
	require.NoError(s.T(), err)
	assert.Len(s.T(), expenses, 2)

	expenses, err = s.svc.List(s.ctx, "user-1", "tax")
	require.NoError(s.T(), err)
	require.Len(s.T(), expenses, 1)
	assert.Equal(s.T(), "Taxi", expenses[0].Description)
}

func (s *ExpenseServiceSuite) TestSummaryOnlyTotalsCurrentMonth() {
	s.create("user-1", input("Cafe", "10.00", "Alimentos", "2026-03-02"))
	s.create("user-1", input("Metro", "20.50", "Transporte", "2026-03-10"))
	s.create("user-1", input("Pan", "5.25", "Alimentos", "2026-03-14"))
	s.create("user-1", input("Renta", "100", "Servicios", "2026-02-20"))

	summary, err := s.svc.Summary(s.ctx, models.Principal{UserID: "user-1", Name: "Ana"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 35.75, summary.TotalMonth)
	assert.Equal(s.T(), "Ana", summary.UserName)
	assert.Len(s.T(), summary.RecentExpenses, 4)

	expenses, err := s.svc.List(s.ctx, "user-1", "")
	require.NoError(s.T(), err)
	assert.Len(s.T(), expenses, 4)
}

func (s *ExpenseServiceSuite) TestSummaryExcludesNextMonth() {
	s.create("user-1", input("Early", "10", "Otros", "2026-03-01T00:00:00Z"))
	s.create("user-1", input("Future", "99", "Otros", "2026-04-01T00:00:00Z"))

	summary, err := s.svc.Summary(s.ctx, models.Principal{UserID: "user-1"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 10.0, summary.TotalMonth)
}

func (s *ExpenseServiceSuite) TestSummaryExcludesLaterThisMonth() {
	s.create("user-1", input("Cafe", "10", "Alimentos", "2026-03-10"))
	s.create("user-1", input("Renta", "99", "Servicios", "2026-03-28"))
	s.create("user-1", input("Hoy", "1", "Otros", fixedNow.Format(time.RFC3339)))

	summary, err := s.svc.Summary(s.ctx, models.Principal{UserID: "user-1"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 11.0, summary.TotalMonth)

	expenses, err := s.svc.List(s.ctx, "user-1", "")
	require.NoError(s.T(), err)
	require.Len(s.T(), expenses, 3)
	assert.Equal(s.T(), "Renta", expenses[0].Description)
}

func (s *ExpenseServiceSuite) TestSummaryRecentLimit() {
	for i := 1; i <= 7; i++ {
		s.create("user-1", input(fmt.Sprintf("E%d", i), "1", "Otros", fmt.Sprintf("2026-03-%02d", i)))
	}

	summary, err := s.svc.Summary(s.ctx, models.Principal{UserID: "user-1"})
	require.NoError(s.T(), err)
	require.Len(s.T(), summary.RecentExpenses, 5)
	assert.Equal(s.T(), "E7", summary.RecentExpenses[0].Description)
	assert.Equal(s.T(), "E3", summary.RecentExpenses[4].Description)
	assert.Equal(s.T(), 7.0, summary.TotalMonth)
}

func (s *ExpenseServiceSuite) TestSummaryWithoutExpenses() {
	summary, err := s.svc.Summary(s.ctx, models.Principal{UserID: "user-1", Name: "Ana"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 0.0, summary.TotalMonth)
	assert.NotNil(s.T(), summary.RecentExpenses)
	assert.Empty(s.T(), summary.RecentExpenses)

	body, err := json.Marshal(summary)
	require.NoError(s.T(), err)
	assert.JSONEq(s.T(), `{"totalMonth":0,"recentExpenses":[],"userName":"Ana"}`, string(body))
}

func TestExpenseService(t *testing.T) {
	suite.Run(t, new(ExpenseServiceSuite))
}

func TestSummaryUsesConfiguredTimezone(t *testing.T) {
	ctx := context.Background()
	loc := time.FixedZone("UTC-6", -6*60*60)
	repo := services.NewExpenseRepository(store.NewMemoryStore(), loc)
	svc := services.NewExpenseService(repo, loc).WithClock(func() time.Time { return fixedNow })

	// 2026-02-28 21:00 local time
	_, err := svc.Create(ctx, "user-1", input("Late February", "50", "Otros", "2026-03-01T03:00:00Z"))
	require.NoError(t, err)
	// Date-only input is read in the configured zone
	_, err = svc.Create(ctx, "user-1", input("First of March", "5", "Otros", "2026-03-01"))
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, models.Principal{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, summary.TotalMonth)
}

func TestSortByDateDescBreaksTiesByID(t *testing.T) {
	day := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	expenses := []models.Expense{
		{ID: "c", Date: day},
		{ID: "a", Date: day},
		{ID: "z", Date: day.Add(time.Hour)},
		{ID: "b", Date: day},
	}

	services.SortByDateDesc(expenses)

	ids := []string{}
	for _, e := range expenses {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"z", "a", "b", "c"}, ids)
}
