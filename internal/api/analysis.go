package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ruthikN/foodie-die/internal/models"
	"github.com/ruthikN/foodie-die/internal/service"
	"github.com/ruthikN/foodie-die/internal/types"
)

// maxImageBytes caps uploads at 10 MiB.
const maxImageBytes = 10 << 20

// AnalysisHandler exposes the meal analysis pipeline over HTTP.
type AnalysisHandler struct {
	analysis service.IAnalysisService
	store    service.IRecordStore
}

// NewAnalysisHandler creates a new AnalysisHandler instance
func NewAnalysisHandler(analysis service.IAnalysisService, store service.IRecordStore) *AnalysisHandler {
	return &AnalysisHandler{
		analysis: analysis,
		store:    store,
	}
}

// RegisterRoutes registers the meal analysis routes
func (h *AnalysisHandler) RegisterRoutes(router *gin.RouterGroup) {
	meals := router.Group("/meals")
	{
		meals.POST("/analyze", h.Analyze)
		meals.GET("", h.ListAnalyses)
		meals.GET("/:id", h.GetAnalysis)
	}
}

// Analyze accepts a multipart image upload and runs the pipeline.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if fileHeader.Size > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the 10MB limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded image"})
		return
	}
	defer func() { _ = file.Close() }()

	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded image"})
		return
	}
	if len(image) > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the 10MB limit"})
		return
	}

	contentType := strings.TrimPrefix(filepath.Ext(fileHeader.Filename), ".")

	result, err := h.analysis.AnalyzeMeal(c.Request.Context(), image, contentType)
	if err != nil {
		h.writeAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListAnalyses returns persisted analyses, newest first.
func (h *AnalysisHandler) ListAnalyses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	analyses, err := h.store.List(c.Request.Context(), limit, offset)
	if err != nil {
		log.WithError(err).Error("failed to list analyses")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list analyses"})
		return
	}

	records := make([]types.AnalysisRecordResponse, 0, len(analyses))
	for i := range analyses {
		records = append(records, toRecordResponse(&analyses[i]))
	}
	c.JSON(http.StatusOK, gin.H{"analyses": records})
}

// GetAnalysis returns one persisted analysis by id.
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis id"})
		return
	}

	analysis, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
			return
		}
		log.WithError(err).Error("failed to load analysis")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load analysis"})
		return
	}

	c.JSON(http.StatusOK, toRecordResponse(analysis))
}

// writeAnalysisError maps typed pipeline errors onto HTTP statuses. The
// error kind is always included so callers get a stable reason code.
func (h *AnalysisHandler) writeAnalysisError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrUnsupportedContentType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := types.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case types.ErrKindAIInvocation:
		status = http.StatusBadGateway
	case types.ErrKindParse, types.ErrKindSchemaValidation:
		status = http.StatusUnprocessableEntity
	}

	log.WithError(err).WithField("kind", string(kind)).Warn("analysis failed")
	c.JSON(status, gin.H{"error": err.Error(), "kind": string(kind)})
}

func toRecordResponse(analysis *models.MealAnalysis) types.AnalysisRecordResponse {
	return types.AnalysisRecordResponse{
		ID:                  analysis.ID.String(),
		Timestamp:           analysis.CreatedAt,
		ImageHash:           analysis.ImageHash,
		MealDescription:     json.RawMessage(analysis.MealDescription),
		AggregatedNutrition: json.RawMessage(analysis.AggregatedNutrition),
	}
}
