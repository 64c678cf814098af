package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ruthikN/foodie-die/internal/models"
)

// Migrate brings the schema up to date. The analysis table is append-only,
// so auto-migration never has destructive work to do.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.MealAnalysis{}); err != nil {
		return fmt.Errorf("failed to migrate meal_analyses: %w", err)
	}
	return nil
}
