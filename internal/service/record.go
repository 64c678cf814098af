package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ruthikN/foodie-die/internal/models"
	"github.com/ruthikN/foodie-die/internal/types"
)

// RecordStore is the append-only home of finished analyses. It only ever
// inserts and reads; records are never updated or deleted.
type RecordStore struct {
	db *gorm.DB
}

// NewRecordStore creates a new RecordStore instance
func NewRecordStore(db *gorm.DB) *RecordStore {
	return &RecordStore{db: db}
}

// Persist appends a new analysis record and returns its id. Ids are random
// UUIDs, so concurrent analyses never collide.
func (s *RecordStore) Persist(ctx context.Context, analysis *models.MealAnalysis) (uuid.UUID, error) {
	if analysis.ID == uuid.Nil {
		analysis.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(analysis).Error; err != nil {
		return uuid.Nil, types.WrapAnalysisError(types.ErrKindPersistence, err, "failed to persist analysis")
	}
	return analysis.ID, nil
}

// Get retrieves one analysis record by id.
func (s *RecordStore) Get(ctx context.Context, id uuid.UUID) (*models.MealAnalysis, error) {
	var analysis models.MealAnalysis
	if err := s.db.WithContext(ctx).First(&analysis, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &analysis, nil
}

// List returns history entries, newest first.
func (s *RecordStore) List(ctx context.Context, limit, offset int) ([]models.MealAnalysis, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var analyses []models.MealAnalysis
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&analyses).Error
	return analyses, err
}
