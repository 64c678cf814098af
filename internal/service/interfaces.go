package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ruthikN/foodie-die/internal/models"
	"github.com/ruthikN/foodie-die/internal/types"
)

// IVisionService describes the AI collaborator: it looks at a meal photo and
// returns the model's raw text response. The text is untrusted data for the
// parser, never anything more.
type IVisionService interface {
	DescribeMeal(ctx context.Context, image []byte, contentType string) (string, error)
}

// INutritionService resolves one food item against the external nutrition
// provider. On failure it returns an all-zero record together with the error
// so the caller can log without aborting.
type INutritionService interface {
	Resolve(ctx context.Context, item types.FoodItem) (types.NutrientRecord, error)
}

// IRecordStore is the append-only analysis history.
type IRecordStore interface {
	Persist(ctx context.Context, analysis *models.MealAnalysis) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*models.MealAnalysis, error)
	List(ctx context.Context, limit, offset int) ([]models.MealAnalysis, error)
}

// IImageArchive stores accepted meal images and returns a retrievable URL.
type IImageArchive interface {
	Archive(ctx context.Context, image []byte, contentType, hash string) (string, error)
}

// IAnalysisService runs the whole meal analysis pipeline for one image.
type IAnalysisService interface {
	AnalyzeMeal(ctx context.Context, image []byte, contentType string) (*types.AnalysisResult, error)
}
