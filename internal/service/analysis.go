package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"golang.org/x/crypto/blake2b"

	"github.com/ruthikN/foodie-die/internal/models"
	"github.com/ruthikN/foodie-die/internal/types"
)

// ErrUnsupportedContentType rejects uploads that are not jpg, jpeg or png.
var ErrUnsupportedContentType = errors.New("unsupported image content type")

// analysisState tracks pipeline progress for one request, for logging only.
type analysisState string

const (
	stateReceived    analysisState = "received"
	stateAnalyzing   analysisState = "analyzing"
	stateParsed      analysisState = "parsed"
	stateParseFailed analysisState = "parse_failed"
	stateResolving   analysisState = "resolving"
	stateAggregated  analysisState = "aggregated"
	statePersisted   analysisState = "persisted"
	stateComplete    analysisState = "complete"
)

// AnalysisService sequences vision, parsing, nutrient resolution,
// aggregation and persistence for one meal photo. It owns the meal
// description and its derived records for the duration of a request; only
// the finished MealAnalysis crosses into the record store.
type AnalysisService struct {
	vision    IVisionService
	nutrition INutritionService
	store     IRecordStore
	archive   IImageArchive // nil disables image archival

	maxInFlight    int
	resolveTimeout time.Duration
}

// NewAnalysisService creates a new AnalysisService instance
func NewAnalysisService(vision IVisionService, nutrition INutritionService, store IRecordStore, archive IImageArchive, maxInFlight int, resolveTimeout time.Duration) *AnalysisService {
	if maxInFlight < 1 {
		maxInFlight = 4
	}
	if resolveTimeout <= 0 {
		resolveTimeout = 20 * time.Second
	}
	return &AnalysisService{
		vision:         vision,
		nutrition:      nutrition,
		store:          store,
		archive:        archive,
		maxInFlight:    maxInFlight,
		resolveTimeout: resolveTimeout,
	}
}

// AnalyzeMeal runs the full pipeline for one image. Parse and AI failures
// abort the analysis; nutrient lookup and persistence failures degrade it
// (zero records, missing record id) and are reported as warnings instead.
func (s *AnalysisService) AnalyzeMeal(ctx context.Context, image []byte, contentType string) (*types.AnalysisResult, error) {
	contentType, err := normalizeContentType(contentType)
	if err != nil {
		return nil, err
	}

	hash := fingerprint(image)
	logger := log.WithFields(log.Fields{
		"image_hash": hash,
		"state":      stateReceived,
	})
	logger.Info("analysis accepted")

	logger = logger.WithField("state", stateAnalyzing)
	rawText, err := s.vision.DescribeMeal(ctx, image, contentType)
	if err != nil {
		logger.WithError(err).Error("vision collaborator failed")
		return nil, err
	}

	meal, err := ParseMealAnalysis(rawText)
	if err != nil {
		log.WithFields(log.Fields{
			"image_hash": hash,
			"state":      stateParseFailed,
		}).WithError(err).Warn("model response rejected")
		return nil, err
	}
	logger = logger.WithField("state", stateParsed)
	logger.WithField("items", len(meal.Items)).Info("meal description parsed")

	result := &types.AnalysisResult{
		ImageHash: hash,
		Meal:      meal,
	}

	logger = logger.WithField("state", stateResolving)
	records, warnings := s.resolveItems(ctx, meal.Items)
	result.ItemNutrients = records
	result.Warnings = warnings

	result.Totals = AggregateNutrition(records)
	logger = logger.WithField("state", stateAggregated)
	logger.Info("nutrition aggregated")

	if url := s.archiveImage(ctx, image, contentType, hash); url != "" {
		result.ImageURL = url
	}

	if id, err := s.persist(ctx, result, contentType); err != nil {
		// Best-effort: the computed result stands even if history is down.
		logger.WithError(err).Warn("failed to persist analysis record")
		result.Warnings = append(result.Warnings, "analysis record could not be persisted")
	} else {
		result.RecordID = id
		logger.WithField("state", statePersisted).WithField("record_id", id).Info("analysis persisted")
	}

	logger.WithField("state", stateComplete).Info("analysis complete")
	return result, nil
}

// resolveItems fans out nutrient resolution with bounded concurrency and
// reassembles results into index-addressed slots: display order is part of
// the contract and must not depend on arrival order. Items still unresolved
// when the phase timeout elapses contribute zero records.
func (s *AnalysisService) resolveItems(ctx context.Context, items []types.FoodItem) ([]types.NutrientRecord, []string) {
	records := make([]types.NutrientRecord, len(items))
	warnings := make([]string, 0)

	if len(items) == 0 {
		return records, warnings
	}

	resolveCtx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()

	var (
		wg         sync.WaitGroup
		warningsMu sync.Mutex
	)
	sem := make(chan struct{}, s.maxInFlight)

	for i := range items {
		wg.Add(1)
		go func(i int, item types.FoodItem) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-resolveCtx.Done():
				records[i] = ZeroNutrientRecord()
				warningsMu.Lock()
				warnings = append(warnings, fmt.Sprintf("nutrition lookup for %q timed out", item.Name))
				warningsMu.Unlock()
				return
			}

			record, err := s.nutrition.Resolve(resolveCtx, item)
			if record == nil {
				record = ZeroNutrientRecord()
			}
			records[i] = record
			if err != nil {
				log.WithError(err).WithField("item", item.Name).Warn("nutrition lookup failed")
				warningsMu.Lock()
				warnings = append(warnings, fmt.Sprintf("nutrition data unavailable for %q", item.Name))
				warningsMu.Unlock()
			}
		}(i, items[i])
	}
	wg.Wait()

	return records, warnings
}

func (s *AnalysisService) persist(ctx context.Context, result *types.AnalysisResult, contentType string) (string, error) {
	mealJSON, err := json.Marshal(result.Meal)
	if err != nil {
		return "", types.WrapAnalysisError(types.ErrKindPersistence, err, "marshal meal description")
	}
	totalsJSON, err := json.Marshal(result.Totals)
	if err != nil {
		return "", types.WrapAnalysisError(types.ErrKindPersistence, err, "marshal nutrition totals")
	}

	analysis := &models.MealAnalysis{
		ImageHash:           result.ImageHash,
		ImageContentType:    contentType,
		MealDescription:     string(mealJSON),
		AggregatedNutrition: string(totalsJSON),
	}
	id, err := s.store.Persist(ctx, analysis)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *AnalysisService) archiveImage(ctx context.Context, image []byte, contentType, hash string) string {
	if s.archive == nil {
		return ""
	}
	url, err := s.archive.Archive(ctx, image, contentType, hash)
	if err != nil {
		log.WithError(err).WithField("image_hash", hash).Warn("failed to archive meal image")
		return ""
	}
	return url
}

// fingerprint returns the hex BLAKE2b-256 digest of the image bytes.
// Identical uploads always map to the identical fingerprint; the store
// records duplicates as separate history entries.
func fingerprint(image []byte) string {
	sum := blake2b.Sum256(image)
	return hex.EncodeToString(sum[:])
}

func normalizeContentType(contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(contentType), "image/"))
	switch ct {
	case "jpg", "jpeg", "png":
		return ct, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
}
