package models

import "time"

const (
	EventExpenseCreated = "expense.created"
	EventExpenseUpdated = "expense.updated"
	EventExpenseDeleted = "expense.deleted"
)

// ExpenseEvent notifies listeners that one of a user's expenses changed.
type ExpenseEvent struct {
	Type      string    `json:"type"`
	UserID    string    `json:"userId"`
	ExpenseID string    `json:"expenseId"`
	At        time.Time `json:"at"`
}
