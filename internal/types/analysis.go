package types

import (
	"encoding/json"
	"time"
)

// FoodItem is a single food identified in a meal photo. Item order as
// returned by the vision model is preserved end to end.
type FoodItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// MealDescription is the canonical, validated description of one meal.
// It is produced once by the parser and never mutated afterwards.
type MealDescription struct {
	MainFood               string     `json:"main_food,omitempty"`
	Items                  []FoodItem `json:"items"`
	HealthRating           int        `json:"health_rating"`
	AlternativeSuggestions []string   `json:"alternative_suggestions"`
}

// NutrientRecord maps tracked nutrient keys to amounts for one food item.
// Unresolvable nutrients are 0, never absent, so summation is total-safe.
type NutrientRecord map[string]float64

// AggregatedNutrition holds per-nutrient totals across a whole meal.
type AggregatedNutrition map[string]float64

// AnalysisResult is what the pipeline returns to the caller.
type AnalysisResult struct {
	RecordID      string              `json:"record_id,omitempty"`
	ImageHash     string              `json:"image_hash"`
	ImageURL      string              `json:"image_url,omitempty"`
	Meal          *MealDescription    `json:"meal"`
	ItemNutrients []NutrientRecord    `json:"item_nutrients"`
	Totals        AggregatedNutrition `json:"totals"`
	Warnings      []string            `json:"warnings,omitempty"`
}

// AnalysisRecordResponse is the wire shape of one persisted analysis.
type AnalysisRecordResponse struct {
	ID                  string          `json:"id"`
	Timestamp           time.Time       `json:"timestamp"`
	ImageHash           string          `json:"image_hash"`
	MealDescription     json.RawMessage `json:"meal_description"`
	AggregatedNutrition json.RawMessage `json:"aggregated_nutrition"`
}
