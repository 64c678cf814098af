package service

import (
	"github.com/ruthikN/foodie-die/internal/types"
)

// Tracked nutrient keys. Values in a NutrientRecord and AggregatedNutrition
// are always keyed by these constants.
const (
	NutrientCalories    = "calories"
	NutrientProteinG    = "protein_g"
	NutrientCarbsG      = "carbohydrates_g"
	NutrientFatG        = "fat_g"
	NutrientCalciumDV   = "calcium_dv"
	NutrientIronDV      = "iron_dv"
	NutrientPotassiumMg = "potassium_mg"
	NutrientVitaminCDV  = "vitamin_c_dv"
)

// TrackedNutrients maps every tracked nutrient key to its display unit.
// Adding a nutrient here is all that is needed for it to flow through
// resolution, aggregation and persistence.
var TrackedNutrients = map[string]string{
	NutrientCalories:    "kcal",
	NutrientProteinG:    "g",
	NutrientCarbsG:      "g",
	NutrientFatG:        "g",
	NutrientCalciumDV:   "%DV",
	NutrientIronDV:      "%DV",
	NutrientPotassiumMg: "mg",
	NutrientVitaminCDV:  "%DV",
}

// ZeroNutrientRecord returns a record with every tracked nutrient set to 0.
// Failed lookups contribute this record so summation stays total-safe.
func ZeroNutrientRecord() types.NutrientRecord {
	record := make(types.NutrientRecord, len(TrackedNutrients))
	for key := range TrackedNutrients {
		record[key] = 0
	}
	return record
}

// AggregateNutrition sums each tracked nutrient across the given records.
// Missing keys contribute 0. The result does not depend on record order,
// and no records at all yields all-zero totals.
func AggregateNutrition(records []types.NutrientRecord) types.AggregatedNutrition {
	totals := make(types.AggregatedNutrition, len(TrackedNutrients))
	for key := range TrackedNutrients {
		totals[key] = 0
	}
	for _, record := range records {
		for key := range TrackedNutrients {
			totals[key] += record[key]
		}
	}
	return totals
}
