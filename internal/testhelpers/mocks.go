package testhelpers

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ruthikN/foodie-die/internal/models"
	"github.com/ruthikN/foodie-die/internal/types"
)

// MockVisionService is a mock implementation of the IVisionService interface
type MockVisionService struct {
	mock.Mock
}

func (m *MockVisionService) DescribeMeal(ctx context.Context, image []byte, contentType string) (string, error) {
	args := m.Called(ctx, image, contentType)
	return args.String(0), args.Error(1)
}

// MockNutritionService is a mock implementation of the INutritionService interface
type MockNutritionService struct {
	mock.Mock
}

func (m *MockNutritionService) Resolve(ctx context.Context, item types.FoodItem) (types.NutrientRecord, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(types.NutrientRecord), args.Error(1)
}

// MockRecordStore is a mock implementation of the IRecordStore interface
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) Persist(ctx context.Context, analysis *models.MealAnalysis) (uuid.UUID, error) {
	args := m.Called(ctx, analysis)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockRecordStore) Get(ctx context.Context, id uuid.UUID) (*models.MealAnalysis, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MealAnalysis), args.Error(1)
}

func (m *MockRecordStore) List(ctx context.Context, limit, offset int) ([]models.MealAnalysis, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MealAnalysis), args.Error(1)
}

// MockAnalysisService is a mock implementation of the IAnalysisService interface
type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) AnalyzeMeal(ctx context.Context, image []byte, contentType string) (*types.AnalysisResult, error) {
	args := m.Called(ctx, image, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AnalysisResult), args.Error(1)
}

// MockImageArchive is a mock implementation of the IImageArchive interface
type MockImageArchive struct {
	mock.Mock
}

func (m *MockImageArchive) Archive(ctx context.Context, image []byte, contentType, hash string) (string, error) {
	args := m.Called(ctx, image, contentType, hash)
	return args.String(0), args.Error(1)
}
