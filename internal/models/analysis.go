package models

import (
	"time"

	"github.com/google/uuid"
)

// MealAnalysis is one persisted meal analysis. Rows are append-only: the
// store exposes no update or delete, so history entries are never rewritten.
// Identical uploads produce identical ImageHash values and are simply stored
// as separate rows.
type MealAnalysis struct {
	ID                  uuid.UUID `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt           time.Time `json:"created_at"`
	ImageHash           string    `gorm:"type:varchar(64);index;not null" json:"image_hash"`
	ImageContentType    string    `gorm:"type:varchar(16)" json:"image_content_type"`
	MealDescription     string    `gorm:"type:text;not null" json:"meal_description"`
	AggregatedNutrition string    `gorm:"type:text;not null" json:"aggregated_nutrition"`
}

// TableName returns the table name for the MealAnalysis model
func (MealAnalysis) TableName() string {
	return "meal_analyses"
}
