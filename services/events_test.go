package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/services"

	"github.com/stretchr/testify/assert"
)

type recordingPublisher struct {
	events []models.ExpenseEvent
	err    error
}

func (p *recordingPublisher) PublishExpenseEvent(_ context.Context, event models.ExpenseEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func TestMultiPublisherReachesEveryPublisher(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("broker down")}
	ok := &recordingPublisher{}

	event := models.ExpenseEvent{Type: models.EventExpenseCreated, UserID: "u1", ExpenseID: "e1"}
	err := services.MultiPublisher{failing, ok}.PublishExpenseEvent(context.Background(), event)

	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, []models.ExpenseEvent{event}, failing.events)
	assert.Equal(t, []models.ExpenseEvent{event}, ok.events)
}
