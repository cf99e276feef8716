package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/store"
	"github.com/LovationAdmin/gastos-api/utils"
)

// CategorizerService suggests a category for an expense description.
// Choices the user made before win over the static keyword rules.
type CategorizerService struct {
	kv store.KV
}

func NewCategorizerService(kv store.KV) *CategorizerService {
	return &CategorizerService{kv: kv}
}

// --- STATIC DICTIONARY ---
var staticRules = []struct {
	keyword  string
	category string
}{
	// ALIMENTOS
	{"supermercado", models.CategoryFood}, {"restaurante", models.CategoryFood},
	{"comida", models.CategoryFood}, {"cena", models.CategoryFood}, {"desayuno", models.CategoryFood},
	{"almuerzo", models.CategoryFood}, {"cafe", models.CategoryFood}, {"café", models.CategoryFood},
	{"walmart", models.CategoryFood}, {"oxxo", models.CategoryFood}, {"soriana", models.CategoryFood},
	{"uber eats", models.CategoryFood}, {"rappi", models.CategoryFood}, {"grocer", models.CategoryFood},
	{"lunch", models.CategoryFood}, {"dinner", models.CategoryFood}, {"coffee", models.CategoryFood},

	// TRANSPORTE
	{"gasolina", models.CategoryTransport}, {"taxi", models.CategoryTransport}, {"uber", models.CategoryTransport},
	{"didi", models.CategoryTransport}, {"metro", models.CategoryTransport}, {"autobus", models.CategoryTransport},
	{"autobús", models.CategoryTransport}, {"estacionamiento", models.CategoryTransport},
	{"peaje", models.CategoryTransport}, {"caseta", models.CategoryTransport}, {"fuel", models.CategoryTransport},
	{"parking", models.CategoryTransport},

	// SALUD
	{"farmacia", models.CategoryHealth}, {"doctor", models.CategoryHealth}, {"médico", models.CategoryHealth},
	{"medico", models.CategoryHealth}, {"hospital", models.CategoryHealth}, {"dentista", models.CategoryHealth},
	{"gimnasio", models.CategoryHealth}, {"pharmacy", models.CategoryHealth}, {"gym", models.CategoryHealth},
	{"medicina", models.CategoryHealth}, {"medicine", models.CategoryHealth},

	// ENTRETENIMIENTO
	{"netflix", models.CategoryEntertainment}, {"spotify", models.CategoryEntertainment},
	{"cine", models.CategoryEntertainment}, {"cinema", models.CategoryEntertainment},
	{"concierto", models.CategoryEntertainment}, {"disney", models.CategoryEntertainment},
	{"prime video", models.CategoryEntertainment}, {"videojuego", models.CategoryEntertainment},
	{"steam", models.CategoryEntertainment},

	// SERVICIOS
	{"luz", models.CategoryUtilities}, {"cfe", models.CategoryUtilities}, {"recibo de agua", models.CategoryUtilities},
	{"internet", models.CategoryUtilities}, {"telmex", models.CategoryUtilities}, {"telcel", models.CategoryUtilities},
	{"renta", models.CategoryUtilities}, {"teléfono", models.CategoryUtilities}, {"telefono", models.CategoryUtilities},
	{"electricity", models.CategoryUtilities},
}

type categoryHint struct {
	Category string `json:"category"`
}

func categoryHintKey(userID, normalized string) string {
	return "category_hint:" + userID + ":" + normalized
}

func normalizeLabel(description string) string {
	return strings.Join(strings.Fields(strings.ToLower(description)), " ")
}

// Suggest determines the category for a description.
func (s *CategorizerService) Suggest(ctx context.Context, userID, description string) (string, error) {
	normalized := normalizeLabel(description)
	if normalized == "" {
		return models.CategoryOther, nil
	}

	// 1. What this user picked last time for the same description
	raw, err := s.kv.Get(ctx, categoryHintKey(userID, normalized))
	switch {
	case err == nil:
		var hint categoryHint
		if err := json.Unmarshal(raw, &hint); err == nil {
			if category, ok := models.NormalizeCategory(hint.Category); ok {
				return category, nil
			}
		}
	case !errors.Is(err, store.ErrNotFound):
		return "", err
	}

	// 2. Static rules
	for _, rule := range staticRules {
		if strings.Contains(normalized, rule.keyword) {
			return rule.category, nil
		}
	}

	return models.CategoryOther, nil
}

// Learn remembers the category the user chose for a description.
func (s *CategorizerService) Learn(ctx context.Context, userID, description, category string) {
	normalized := normalizeLabel(description)
	if normalized == "" {
		return
	}

	raw, err := json.Marshal(categoryHint{Category: category})
	if err != nil {
		return
	}
	if err := s.kv.Set(ctx, categoryHintKey(userID, normalized), raw); err != nil {
		utils.SafeWarn("[Categorizer] failed to remember category: %v", err)
	}
}
