package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ============================================================================
// EXPENSE MODEL
// ============================================================================

type Expense struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	UserID      string    `json:"userId"`
}

// ExpensePatch holds the replaceable fields of an expense.
type ExpensePatch struct {
	Description string
	Amount      float64
	Category    string
	Date        time.Time
}

// ============================================================================
// REQUESTS & RESPONSES
// ============================================================================

// ExpenseInput is the body of POST /expenses and PUT /expenses/:id.
type ExpenseInput struct {
	Description string      `json:"description"`
	Amount      AmountInput `json:"amount"`
	Category    string      `json:"category"`
	Date        string      `json:"date"`
}

// AmountInput keeps the textual form of an amount sent either as a JSON
// number or as a numeric string. Empty means the field was absent or null.
type AmountInput string

func (a *AmountInput) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountInput(strings.TrimSpace(s))
		return nil
	}
	*a = AmountInput(raw)
	return nil
}

type ExpenseSummary struct {
	TotalMonth     float64   `json:"totalMonth"`
	RecentExpenses []Expense `json:"recentExpenses"`
	UserName       string    `json:"userName"`
}

type CategorizeRequest struct {
	Description string `json:"description" binding:"required"`
}

// ============================================================================
// CATEGORIES
// ============================================================================

const (
	CategoryFood          = "Alimentos"
	CategoryTransport     = "Transporte"
	CategoryEntertainment = "Entretenimiento"
	CategoryHealth        = "Salud"
	CategoryUtilities     = "Servicios"
	CategoryOther         = "Otros"
)

// Categories is the closed set of labels, in display order.
var Categories = []string{
	CategoryFood,
	CategoryTransport,
	CategoryEntertainment,
	CategoryHealth,
	CategoryUtilities,
	CategoryOther,
}

var categoryAliases = map[string]string{
	"alimentos":       CategoryFood,
	"food":            CategoryFood,
	"transporte":      CategoryTransport,
	"transport":       CategoryTransport,
	"entretenimiento": CategoryEntertainment,
	"entertainment":   CategoryEntertainment,
	"salud":           CategoryHealth,
	"health":          CategoryHealth,
	"servicios":       CategoryUtilities,
	"utilities":       CategoryUtilities,
	"otros":           CategoryOther,
	"other":           CategoryOther,
}

// NormalizeCategory maps a label or alias to its canonical label.
func NormalizeCategory(category string) (string, bool) {
	canonical, ok := categoryAliases[strings.ToLower(strings.TrimSpace(category))]
	return canonical, ok
}
