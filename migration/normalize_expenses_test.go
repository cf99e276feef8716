package migration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/services"
	"github.com/LovationAdmin/gastos-api/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, kv store.KV, key, value string) {
	t.Helper()
	require.NoError(t, kv.Set(context.Background(), key, json.RawMessage(value)))
}

func TestNormalizeRecord(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		changed  bool
		category string
	}{
		{
			name:     "canonical",
			raw:      `{"id":"e1","description":"Taxi","amount":10,"category":"Transporte","date":"2026-03-01T00:00:00Z","userId":"u1"}`,
			changed:  false,
			category: models.CategoryTransport,
		},
		{
			name:     "string amount",
			raw:      `{"id":"e1","description":"Taxi","amount":"10","category":"Transporte","date":"2026-03-01T00:00:00Z","userId":"u1"}`,
			changed:  true,
			category: models.CategoryTransport,
		},
		{
			name:     "date only",
			raw:      `{"id":"e1","description":"Taxi","amount":10,"category":"Transporte","date":"2026-03-01","userId":"u1"}`,
			changed:  true,
			category: models.CategoryTransport,
		},
		{
			name:     "alias category",
			raw:      `{"id":"e1","description":"Taxi","amount":10,"category":"transport","date":"2026-03-01T00:00:00Z","userId":"u1"}`,
			changed:  true,
			category: models.CategoryTransport,
		},
		{
			name:     "unknown category",
			raw:      `{"id":"e1","description":"Vuelo","amount":10,"category":"Viajes","date":"2026-03-01T00:00:00Z","userId":"u1"}`,
			changed:  true,
			category: models.CategoryOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expense, changed, err := NormalizeRecord(json.RawMessage(tt.raw), time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.category, expense.Category)
		})
	}
}

func TestNormalizeExpenses(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	repo := services.NewExpenseRepository(kv, time.UTC)

	seed(t, kv, "expense:u1:a", `{"id":"a","description":"Cafe","amount":"3.50","category":"food","date":"2026-03-02","userId":"u1"}`)
	seed(t, kv, "expense:u1:b", `{"id":"b","description":"Taxi","amount":10,"category":"Transporte","date":"2026-03-01T00:00:00Z","userId":"u1"}`)
	seed(t, kv, "expense:u1:c", `{"id":"c","amount":"oops","date":"2026-03-02","userId":"u1"}`)
	seed(t, kv, "expense:u2:d", `{"id":"d","description":"Cine","amount":"8","category":"Entretenimiento","date":"2026-03-03","userId":"u2"}`)

	result, err := NormalizeExpenses(ctx, repo, "u1", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, Result{Migrated: 1, Skipped: 1, Errors: 1}, result)

	raw, err := kv.Get(ctx, "expense:u1:a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","description":"Cafe","amount":3.5,"category":"Alimentos","date":"2026-03-02T00:00:00Z","userId":"u1"}`, string(raw))

	// Other users are untouched until the global run.
	raw, err = kv.Get(ctx, "expense:u2:d")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"amount":"8"`)

	result, err = NormalizeExpenses(ctx, repo, "", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, Result{Migrated: 1, Skipped: 2, Errors: 1}, result)

	result, err = NormalizeExpenses(ctx, repo, "", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Migrated, "migration is idempotent")
}
