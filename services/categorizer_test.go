package services_test

import (
	"context"
	"testing"

	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/services"
	"github.com/LovationAdmin/gastos-api/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizerStaticRules(t *testing.T) {
	categorizer := services.NewCategorizerService(store.NewMemoryStore())
	ctx := context.Background()

	tests := []struct {
		description string
		want        string
	}{
		{"Supermercado Walmart", models.CategoryFood},
		{"Uber al aeropuerto", models.CategoryTransport},
		{"Uber Eats pizza", models.CategoryFood},
		{"Farmacia del Ahorro", models.CategoryHealth},
		{"Medicina para la tos", models.CategoryHealth},
		{"Netflix", models.CategoryEntertainment},
		{"Recibo de luz", models.CategoryUtilities},
		{"Regalo de cumpleaños", models.CategoryOther},
		{"   ", models.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			got, err := categorizer.Suggest(ctx, "user-1", tt.description)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategorizerLearnsPerUser(t *testing.T) {
	categorizer := services.NewCategorizerService(store.NewMemoryStore())
	ctx := context.Background()

	categorizer.Learn(ctx, "user-1", "Uber  al trabajo", models.CategoryUtilities)

	got, err := categorizer.Suggest(ctx, "user-1", "uber al TRABAJO")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryUtilities, got)

	got, err = categorizer.Suggest(ctx, "user-2", "uber al trabajo")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryTransport, got)
}
