// Package migration rewrites stored expenses written by older clients into the
// canonical record layout.
package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/services"
	"github.com/LovationAdmin/gastos-api/utils"
)

// Result counts what a run did.
type Result struct {
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

type legacyFields struct {
	Amount   json.RawMessage `json:"amount"`
	Date     string          `json:"date"`
	Category string          `json:"category"`
}

// NormalizeRecord decodes a stored expense and reports whether its stored form
// differs from the canonical one: string amounts, non-RFC 3339 dates, and
// category aliases or labels outside the closed set (mapped to "Otros").
func NormalizeRecord(raw json.RawMessage, loc *time.Location) (*models.Expense, bool, error) {
	expense, err := services.DecodeExpense(raw, loc)
	if err != nil {
		return nil, false, err
	}

	var fields legacyFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false, fmt.Errorf("decode legacy fields: %w", err)
	}

	changed := false

	if strings.HasPrefix(strings.TrimSpace(string(fields.Amount)), `"`) {
		changed = true
	}

	if fields.Date != utils.FormatDate(expense.Date) {
		changed = true
	}

	category, ok := models.NormalizeCategory(expense.Category)
	if !ok {
		category = models.CategoryOther
	}
	if category != expense.Category {
		expense.Category = category
		changed = true
	}

	return expense, changed, nil
}

// NormalizeExpenses migrates one user's expenses, or everybody's when userID
// is empty.
func NormalizeExpenses(ctx context.Context, repo *services.ExpenseRepository, userID string, loc *time.Location) (Result, error) {
	var result Result

	entries, err := repo.RawEntries(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("failed to list expenses: %w", err)
	}

	utils.SafeInfo("🚀 Normalizing %d stored expenses...", len(entries))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		expense, changed, err := NormalizeRecord(entry.Value, loc)
		if err != nil {
			utils.SafeWarn("  ❌ %s: %v", entry.Key, err)
			result.Errors++
			continue
		}
		if !changed {
			result.Skipped++
			continue
		}

		if err := repo.Rewrite(ctx, entry.Key, expense); err != nil {
			utils.SafeWarn("  ❌ %s: %v", entry.Key, err)
			result.Errors++
			continue
		}
		result.Migrated++
	}

	utils.SafeInfo("📊 Result: %d migrated, %d skipped, %d errors", result.Migrated, result.Skipped, result.Errors)
	return result, nil
}
