package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ruthikN/foodie-die/internal/models"
	"github.com/ruthikN/foodie-die/internal/testhelpers"
	"github.com/ruthikN/foodie-die/internal/types"
)

var testImage = []byte("\xff\xd8\xff\xe0 not a real jpeg but stable bytes")

func newTestAnalysisService(vision *testhelpers.MockVisionService, nutrition *testhelpers.MockNutritionService, store *testhelpers.MockRecordStore) *AnalysisService {
	return NewAnalysisService(vision, nutrition, store, nil, 3, 5*time.Second)
}

func TestAnalyzeMeal_Success(t *testing.T) {
	vision := new(testhelpers.MockVisionService)
	nutrition := new(testhelpers.MockNutritionService)
	store := new(testhelpers.MockRecordStore)

	vision.On("DescribeMeal", mock.Anything, testImage, "jpeg").
		Return("```json\n"+canonicalAnalysis+"\n```", nil)

	appleRecord := ZeroNutrientRecord()
	appleRecord[NutrientCalories] = 95
	appleRecord[NutrientPotassiumMg] = 195
	nutrition.On("Resolve", mock.Anything, types.FoodItem{Name: "apple", Quantity: 1, Unit: "medium"}).
		Return(appleRecord, nil)

	recordID := uuid.New()
	store.On("Persist", mock.Anything, mock.AnythingOfType("*models.MealAnalysis")).
		Return(recordID, nil)

	service := newTestAnalysisService(vision, nutrition, store)
	result, err := service.AnalyzeMeal(context.Background(), testImage, "jpeg")

	require.NoError(t, err)
	assert.Equal(t, recordID.String(), result.RecordID)
	assert.Equal(t, "Apple", result.Meal.MainFood)
	require.Len(t, result.ItemNutrients, 1)
	assert.InDelta(t, 95, result.Totals[NutrientCalories], 1e-9)
	assert.Empty(t, result.Warnings)
	assert.Len(t, result.ImageHash, 64)

	store.AssertExpectations(t)

	// The persisted payload carries the meal description and totals.
	persisted := store.Calls[0].Arguments.Get(1).(*models.MealAnalysis)
	assert.Equal(t, result.ImageHash, persisted.ImageHash)
	assert.Contains(t, persisted.MealDescription, `"apple"`)
	assert.Contains(t, persisted.AggregatedNutrition, `"calories":95`)
}

func TestAnalyzeMeal_PartialNutritionFailure(t *testing.T) {
	vision := new(testhelpers.MockVisionService)
	nutrition := new(testhelpers.MockNutritionService)
	store := new(testhelpers.MockRecordStore)

	vision.On("DescribeMeal", mock.Anything, testImage, "jpg").Return(`{
		"items": [
			{"name": "rice", "quantity": 150, "unit": "g"},
			{"name": "mystery stew", "quantity": 1, "unit": "bowl"}
		],
		"health_rating": 3
	}`, nil)

	riceRecord := ZeroNutrientRecord()
	riceRecord[NutrientCalories] = 195
	riceRecord[NutrientCarbsG] = 41
	nutrition.On("Resolve", mock.Anything, types.FoodItem{Name: "rice", Quantity: 150, Unit: "g"}).
		Return(riceRecord, nil)
	nutrition.On("Resolve", mock.Anything, types.FoodItem{Name: "mystery stew", Quantity: 1, Unit: "bowl"}).
		Return(ZeroNutrientRecord(), types.NewAnalysisError(types.ErrKindNutrientProvider, "provider returned no foods"))

	store.On("Persist", mock.Anything, mock.Anything).Return(uuid.New(), nil)

	service := newTestAnalysisService(vision, nutrition, store)
	result, err := service.AnalyzeMeal(context.Background(), testImage, "jpg")

	require.NoError(t, err)
	// Totals equal exactly the first item's record: the failed item
	// contributes zeros, not an error.
	assert.InDelta(t, 195, result.Totals[NutrientCalories], 1e-9)
	assert.InDelta(t, 41, result.Totals[NutrientCarbsG], 1e-9)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "mystery stew")
}

func TestAnalyzeMeal_UnparsableResponse(t *testing.T) {
	vision := new(testhelpers.MockVisionService)
	nutrition := new(testhelpers.MockNutritionService)
	store := new(testhelpers.MockRecordStore)

	vision.On("DescribeMeal", mock.Anything, testImage, "png").
		Return("I couldn't analyze this image", nil)

	service := newTestAnalysisService(vision, nutrition, store)
	result, err := service.AnalyzeMeal(context.Background(), testImage, "png")

	assert.Nil(t, result)
	assert.Equal(t, types.ErrKindParse, types.KindOf(err))
	// A failed analysis leaves no record behind.
	store.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything)
	nutrition.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestAnalyzeMeal_OutOfRangeHealthRating(t *testing.T) {
	vision := new(testhelpers.MockVisionService)
	nutrition := new(testhelpers.MockNutritionService)
	store := new(testhelpers.MockRecordStore)

	vision.On("DescribeMeal", mock.Anything, testImage, "png").
		Return(`{"items":[{"name":"apple","quantity":1,"unit":"medium"}],"health_rating":7}`, nil)

	service := newTestAnalysisService(vision, nutrition, store)
	result, err := service.AnalyzeMeal(context.Background(), testImage, "png")

	assert.Nil(t, result)
	assert.Equal(t, types.ErrKindSchemaValidation, types.KindOf(err))
	store.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything)
}

func TestAnalyzeMeal_VisionFailure(t *testing.T) {
	vision := new(testhelpers.MockVisionService)
	nutrition := new(testhelpers.MockNutritionService)
	store := new(testhelpers.MockRecordStore)

	vision.On("DescribeMeal", mock.Anything, testImage, "jpeg").
		Return("", types.NewAnalysisError(types.ErrKindAIInvocation, "vision API request failed with status 503"))

	service := newTestAnalysisService(vision, nutrition, store)
	result, err := service.AnalyzeMeal(context.Background(), testImage, "jpeg")

	assert.Nil(t, result)
	assert.Equal(t, types.ErrKindAIInvocation, types.KindOf(err))
}

func TestAnalyzeMeal_PersistenceFailureDoesNotFailAnalysis(t *testing.T) {
	vision := new(testhelpers.MockVisionService)
	nutrition := new(testhelpers.MockNutritionService)
	store := new(testhelpers.MockRecordStore)

	vision.On("DescribeMeal", mock.Anything, testImage, "jpeg").Return(canonicalAnalysis, nil)
	nutrition.On("Resolve", mock.Anything, mock.Anything).Return(ZeroNutrientRecord(), nil)
	store.On("Persist", mock.Anything, mock.Anything).
		Return(uuid.Nil, types.NewAnalysisError(types.ErrKindPersistence, "database unavailable"))

	service := newTestAnalysisService(vision, nutrition, store)
	result, err := service.AnalyzeMeal(context.Background(), testImage, "jpeg")

	require.NoError(t, err)
	assert.Empty(t, result.RecordID)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[len(result.Warnings)-1], "could not be persisted")
}

func TestAnalyzeMeal_UnsupportedContentType(t *testing.T) {
	service := newTestAnalysisService(new(testhelpers.MockVisionService), new(testhelpers.MockNutritionService), new(testhelpers.MockRecordStore))

	for _, ct := range []string{"gif", "bmp", "pdf", ""} {
		result, err := service.AnalyzeMeal(context.Background(), testImage, ct)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, ErrUnsupportedContentType))
	}

	// MIME-style names normalize to the bare extension.
	vision := new(testhelpers.MockVisionService)
	vision.On("DescribeMeal", mock.Anything, testImage, "png").Return(canonicalAnalysis, nil)
	nutrition := new(testhelpers.MockNutritionService)
	nutrition.On("Resolve", mock.Anything, mock.Anything).Return(ZeroNutrientRecord(), nil)
	store := new(testhelpers.MockRecordStore)
	store.On("Persist", mock.Anything, mock.Anything).Return(uuid.New(), nil)

	service = newTestAnalysisService(vision, nutrition, store)
	_, err := service.AnalyzeMeal(context.Background(), testImage, "image/png")
	assert.NoError(t, err)
}

func TestAnalyzeMeal_PreservesItemOrderUnderConcurrency(t *testing.T) {
	vision := new(testhelpers.MockVisionService)
	nutrition := new(testhelpers.MockNutritionService)
	store := new(testhelpers.MockRecordStore)

	const itemCount = 6
	items := "["
	for i := 0; i < itemCount; i++ {
		if i > 0 {
			items += ","
		}
		items += fmt.Sprintf(`{"name":"food-%d","quantity":1,"unit":"g"}`, i)
	}
	items += "]"
	vision.On("DescribeMeal", mock.Anything, testImage, "jpeg").
		Return(`{"items":`+items+`,"health_rating":3}`, nil)

	// Earlier items resolve slower than later ones, so arrival order is
	// the reverse of display order.
	for i := 0; i < itemCount; i++ {
		record := ZeroNutrientRecord()
		record[NutrientCalories] = float64(i + 1)
		delay := time.Duration(itemCount-i) * 20 * time.Millisecond
		nutrition.On("Resolve", mock.Anything, types.FoodItem{Name: fmt.Sprintf("food-%d", i), Quantity: 1, Unit: "g"}).
			Return(record, nil).
			Run(func(mock.Arguments) { time.Sleep(delay) })
	}

	store.On("Persist", mock.Anything, mock.Anything).Return(uuid.New(), nil)

	service := newTestAnalysisService(vision, nutrition, store)
	result, err := service.AnalyzeMeal(context.Background(), testImage, "jpeg")

	require.NoError(t, err)
	require.Len(t, result.ItemNutrients, itemCount)
	for i := 0; i < itemCount; i++ {
		assert.InDeltaf(t, float64(i+1), result.ItemNutrients[i][NutrientCalories], 1e-9,
			"slot %d must hold item %d's record regardless of arrival order", i, i)
	}
}

func TestAnalyzeMeal_ResolveTimeoutYieldsZeroRecords(t *testing.T) {
	vision := new(testhelpers.MockVisionService)
	nutrition := new(testhelpers.MockNutritionService)
	store := new(testhelpers.MockRecordStore)

	vision.On("DescribeMeal", mock.Anything, testImage, "jpeg").Return(`{
		"items": [
			{"name": "apple", "quantity": 1, "unit": "medium"},
			{"name": "slow soup", "quantity": 1, "unit": "bowl"}
		],
		"health_rating": 3
	}`, nil)

	appleRecord := ZeroNutrientRecord()
	appleRecord[NutrientCalories] = 95
	nutrition.On("Resolve", mock.Anything, types.FoodItem{Name: "apple", Quantity: 1, Unit: "medium"}).
		Return(appleRecord, nil)
	// The soup lookup honors its context and only gives up at the phase
	// deadline, well before the mock's stand-in error matters.
	nutrition.On("Resolve", mock.Anything, types.FoodItem{Name: "slow soup", Quantity: 1, Unit: "bowl"}).
		Return(nil, types.NewAnalysisError(types.ErrKindNutrientProvider, "context deadline exceeded")).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		})

	store.On("Persist", mock.Anything, mock.Anything).Return(uuid.New(), nil)

	service := NewAnalysisService(vision, nutrition, store, nil, 3, 150*time.Millisecond)
	start := time.Now()
	result, err := service.AnalyzeMeal(context.Background(), testImage, "jpeg")

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	// The timed-out item occupies its slot as an all-zero record and the
	// totals are exactly the resolved item's.
	require.Len(t, result.ItemNutrients, 2)
	assert.Equal(t, ZeroNutrientRecord(), result.ItemNutrients[1])
	assert.InDelta(t, 95, result.Totals[NutrientCalories], 1e-9)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "slow soup")
	store.AssertExpectations(t)
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := fingerprint([]byte("same bytes"))
	b := fingerprint([]byte("same bytes"))
	c := fingerprint([]byte("different bytes"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
