package services

import (
	"context"
	"errors"

	"github.com/LovationAdmin/gastos-api/models"
)

// EventPublisher receives expense change notifications.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, event models.ExpenseEvent) error
}

// MultiPublisher fans an event out to every publisher, collecting failures.
type MultiPublisher []EventPublisher

func (m MultiPublisher) PublishExpenseEvent(ctx context.Context, event models.ExpenseEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishExpenseEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
