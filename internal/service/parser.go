package service

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/ruthikN/foodie-die/internal/types"
)

// ParseMealAnalysis turns the raw vision model text into a validated
// MealDescription. The text may wrap the JSON object in code fences or
// prose; both the bare object and the {"analysis": {...}} envelope are
// accepted and normalized to the canonical shape.
//
// It is a pure function. Model output is decoded as data, never evaluated.
func ParseMealAnalysis(raw string) (*types.MealDescription, error) {
	payload, ok := extractJSON(raw)
	if !ok {
		return nil, types.NewAnalysisError(types.ErrKindParse, "no JSON object in model response")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, types.WrapAnalysisError(types.ErrKindParse, err, "model response is not a JSON object")
	}

	// Older prompt versions wrap the object in {"analysis": {...}}.
	if inner, present := fields["analysis"]; present {
		var unwrapped map[string]json.RawMessage
		if err := json.Unmarshal(inner, &unwrapped); err != nil {
			return nil, types.WrapAnalysisError(types.ErrKindSchemaValidation, err, "analysis must be an object")
		}
		fields = unwrapped
	}

	meal := &types.MealDescription{
		Items:                  []types.FoodItem{},
		AlternativeSuggestions: []string{},
	}

	if v, present := fields["main_food"]; present && !isJSONNull(v) {
		if err := json.Unmarshal(v, &meal.MainFood); err != nil {
			return nil, types.NewAnalysisError(types.ErrKindSchemaValidation, "main_food must be a string")
		}
	}

	itemsRaw, present := fields["items"]
	if !present || isJSONNull(itemsRaw) {
		return nil, types.NewAnalysisError(types.ErrKindSchemaValidation, "items is required")
	}
	items, err := parseItems(itemsRaw)
	if err != nil {
		return nil, err
	}
	meal.Items = items

	rating, err := parseHealthRating(fields["health_rating"])
	if err != nil {
		return nil, err
	}
	meal.HealthRating = rating

	if v, present := fields["alternative_suggestions"]; present && !isJSONNull(v) {
		if err := json.Unmarshal(v, &meal.AlternativeSuggestions); err != nil {
			return nil, types.NewAnalysisError(types.ErrKindSchemaValidation, "alternative_suggestions must be a list of strings")
		}
	}

	return meal, nil
}

func parseItems(raw json.RawMessage) ([]types.FoodItem, error) {
	var decoded []struct {
		Name     *string      `json:"name"`
		Quantity *json.Number `json:"quantity"`
		Unit     *string      `json:"unit"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, types.NewAnalysisError(types.ErrKindSchemaValidation, "items must be a list of food objects")
	}

	items := make([]types.FoodItem, 0, len(decoded))
	for i, d := range decoded {
		if d.Name == nil || *d.Name == "" {
			return nil, types.NewAnalysisError(types.ErrKindSchemaValidation, "items[%d].name is required", i)
		}
		if d.Quantity == nil {
			return nil, types.NewAnalysisError(types.ErrKindSchemaValidation, "items[%d].quantity must be numeric", i)
		}
		q, err := d.Quantity.Float64()
		if err != nil {
			return nil, types.NewAnalysisError(types.ErrKindSchemaValidation, "items[%d].quantity must be numeric", i)
		}
		item := types.FoodItem{Name: *d.Name, Quantity: q}
		if d.Unit != nil {
			item.Unit = *d.Unit
		}
		items = append(items, item)
	}
	return items, nil
}

// parseHealthRating enforces the 1-5 integer domain. Out-of-range values are
// rejected rather than clamped so a misbehaving model is visible upstream.
func parseHealthRating(raw json.RawMessage) (int, error) {
	if raw == nil || isJSONNull(raw) {
		return 0, types.NewAnalysisError(types.ErrKindSchemaValidation, "health_rating is required")
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, types.NewAnalysisError(types.ErrKindSchemaValidation, "health_rating must be an integer")
	}
	f, err := num.Float64()
	if err != nil || math.Trunc(f) != f {
		return 0, types.NewAnalysisError(types.ErrKindSchemaValidation, "health_rating must be an integer")
	}
	rating := int(f)
	if rating < 1 || rating > 5 {
		return 0, types.NewAnalysisError(types.ErrKindSchemaValidation, "health_rating %d outside the 1-5 range", rating)
	}
	return rating, nil
}

// extractJSON strips code fences and surrounding prose and returns the
// outermost JSON object candidate.
func extractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)

	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "JSON")
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		s = rest
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
