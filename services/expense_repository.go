package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/store"
	"github.com/LovationAdmin/gastos-api/utils"
)

const expenseKeyPrefix = "expense:"

// ExpenseRepository stores expenses under expense:<userId>:<expenseId>.
// It never offers a lookup by expense id alone.
type ExpenseRepository struct {
	kv  store.KV
	loc *time.Location
}

func NewExpenseRepository(kv store.KV, loc *time.Location) *ExpenseRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &ExpenseRepository{kv: kv, loc: loc}
}

func expenseKey(userID, expenseID string) string {
	return expenseUserPrefix(userID) + expenseID
}

func expenseUserPrefix(userID string) string {
	return expenseKeyPrefix + userID + ":"
}

func (r *ExpenseRepository) Create(ctx context.Context, userID string, expense *models.Expense) error {
	expense.UserID = userID
	return r.put(ctx, expense)
}

func (r *ExpenseRepository) Get(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	raw, err := r.kv.Get(ctx, expenseKey(userID, expenseID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrExpenseNotFound
	}
	if err != nil {
		return nil, err
	}

	return DecodeExpense(raw, r.loc)
}

// Update replaces the mutable fields; id and userId are preserved.
func (r *ExpenseRepository) Update(ctx context.Context, userID, expenseID string, patch models.ExpensePatch) (*models.Expense, error) {
	expense, err := r.Get(ctx, userID, expenseID)
	if err != nil {
		return nil, err
	}

	expense.Description = patch.Description
	expense.Amount = patch.Amount
	expense.Category = patch.Category
	expense.Date = patch.Date

	if err := r.put(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, userID, expenseID string) error {
	err := r.kv.Delete(ctx, expenseKey(userID, expenseID))
	if errors.Is(err, store.ErrNotFound) {
		return ErrExpenseNotFound
	}
	return err
}

// ListByUser returns the user's expenses in store order.
func (r *ExpenseRepository) ListByUser(ctx context.Context, userID string) ([]models.Expense, error) {
	entries, err := r.kv.GetByPrefix(ctx, expenseUserPrefix(userID))
	if err != nil {
		return nil, err
	}

	expenses := make([]models.Expense, 0, len(entries))
	for _, entry := range entries {
		expense, err := DecodeExpense(entry.Value, r.loc)
		if err != nil {
			utils.SafeWarn("[Expenses] skipping unreadable record %s: %v", entry.Key, err)
			continue
		}
		expenses = append(expenses, *expense)
	}
	return expenses, nil
}

// RawEntries returns stored records untouched, for all users when userID is empty.
func (r *ExpenseRepository) RawEntries(ctx context.Context, userID string) ([]store.Entry, error) {
	prefix := expenseKeyPrefix
	if userID != "" {
		prefix = expenseUserPrefix(userID)
	}
	return r.kv.GetByPrefix(ctx, prefix)
}

// Rewrite stores expense under a key previously returned by RawEntries.
func (r *ExpenseRepository) Rewrite(ctx context.Context, key string, expense *models.Expense) error {
	if key != expenseKey(expense.UserID, expense.ID) {
		return fmt.Errorf("key %q does not match expense %s of user %s", key, expense.ID, expense.UserID)
	}
	return r.put(ctx, expense)
}

func (r *ExpenseRepository) put(ctx context.Context, expense *models.Expense) error {
	raw, err := EncodeExpense(expense)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, expenseKey(expense.UserID, expense.ID), raw)
}

// ============================================================================
// RECORD CODEC
// ============================================================================

// storedExpense is the lenient shape read back from the store. Records written
// by older clients carry date-only strings and string amounts.
type storedExpense struct {
	ID          string             `json:"id"`
	Description string             `json:"description"`
	Amount      models.AmountInput `json:"amount"`
	Category    string             `json:"category"`
	Date        string             `json:"date"`
	UserID      string             `json:"userId"`
}

// EncodeExpense produces the canonical stored form (UTC RFC 3339 date).
func EncodeExpense(expense *models.Expense) (json.RawMessage, error) {
	canonical := *expense
	canonical.Date = expense.Date.UTC()
	return json.Marshal(canonical)
}

// DecodeExpense reads a stored record, accepting legacy layouts.
func DecodeExpense(raw json.RawMessage, loc *time.Location) (*models.Expense, error) {
	var record storedExpense
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode expense: %w", err)
	}

	amount, err := parseAmount(record.Amount)
	if err != nil {
		return nil, fmt.Errorf("decode expense %s: %w", record.ID, err)
	}

	date, err := utils.ParseDate(record.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("decode expense %s: %w", record.ID, err)
	}

	return &models.Expense{
		ID:          record.ID,
		Description: record.Description,
		Amount:      amount,
		Category:    record.Category,
		Date:        date.UTC(),
		UserID:      record.UserID,
	}, nil
}

func parseAmount(raw models.AmountInput) (float64, error) {
	value, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", string(raw))
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("invalid amount %q", string(raw))
	}
	return value, nil
}
