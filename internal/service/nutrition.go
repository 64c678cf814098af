package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/ruthikN/foodie-die/config"
	"github.com/ruthikN/foodie-die/internal/types"
)

const nutritionCacheTTL = 24 * time.Hour

// NutritionService resolves food items against the Nutritionix natural
// language endpoint. Lookups are rate limited and cached in Redis; a nil
// Redis client disables caching.
type NutritionService struct {
	appID   string
	appKey  string
	apiURL  string
	client  *http.Client
	limiter *rate.Limiter
	redis   *redis.Client
}

// NewNutritionService creates a new NutritionService instance
func NewNutritionService(cfg *config.Config, redisClient *redis.Client) *NutritionService {
	return &NutritionService{
		appID:  cfg.NutritionixAppID,
		appKey: cfg.NutritionixAppKey,
		apiURL: cfg.NutritionixAPIURL,
		client: &http.Client{Timeout: 10 * time.Second},
		// Nutritionix free tier allows a couple of requests per second.
		limiter: rate.NewLimiter(rate.Limit(2.0), 5),
		redis:   redisClient,
	}
}

// nutritionixResponse mirrors the provider's natural/nutrients payload.
type nutritionixResponse struct {
	Foods []struct {
		Calories     float64 `json:"nf_calories"`
		Protein      float64 `json:"nf_protein"`
		Carbohydrate float64 `json:"nf_total_carbohydrate"`
		Fat          float64 `json:"nf_total_fat"`
		CalciumDV    float64 `json:"nf_calcium_dv"`
		IronDV       float64 `json:"nf_iron_dv"`
		Potassium    float64 `json:"nf_potassium"`
		VitaminCDV   float64 `json:"nf_vitamin_c_dv"`
	} `json:"foods"`
}

// Resolve queries the provider for one food item. It always returns a usable
// record: on any failure the record is all zeros and the error describes the
// failure for logging. Transient failures (timeouts, 5xx) are retried once;
// 4xx and malformed responses are not.
func (s *NutritionService) Resolve(ctx context.Context, item types.FoodItem) (types.NutrientRecord, error) {
	query := buildNutritionQuery(item)

	if record, ok := s.cacheGet(ctx, query); ok {
		return record, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return ZeroNutrientRecord(), types.WrapAnalysisError(types.ErrKindNutrientProvider, err, "rate limit wait for %q", query)
	}

	record, err := s.lookup(ctx, query)
	if err != nil {
		return ZeroNutrientRecord(), err
	}

	s.cacheSet(ctx, query, record)
	return record, nil
}

func (s *NutritionService) lookup(ctx context.Context, query string) (types.NutrientRecord, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			log.WithField("query", query).Warn("retrying nutrition lookup")
			select {
			case <-ctx.Done():
				return nil, types.WrapAnalysisError(types.ErrKindNutrientProvider, ctx.Err(), "lookup for %q", query)
			case <-time.After(500 * time.Millisecond):
			}
		}

		record, retryable, err := s.attempt(ctx, query)
		if err == nil {
			return record, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

// attempt performs a single provider call. The bool reports whether the
// failure is transient and worth one retry.
func (s *NutritionService) attempt(ctx context.Context, query string) (types.NutrientRecord, bool, error) {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, false, types.WrapAnalysisError(types.ErrKindNutrientProvider, err, "marshal query %q", query)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, false, types.WrapAnalysisError(types.ErrKindNutrientProvider, err, "create request for %q", query)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-app-id", s.appID)
	req.Header.Set("x-app-key", s.appKey)

	resp, err := s.client.Do(req)
	if err != nil {
		// Network errors and client timeouts are worth one retry.
		return nil, true, types.WrapAnalysisError(types.ErrKindNutrientProvider, err, "call provider for %q", query)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, types.WrapAnalysisError(types.ErrKindNutrientProvider, err, "read provider response for %q", query)
	}

	if resp.StatusCode >= 500 {
		return nil, true, types.NewAnalysisError(types.ErrKindNutrientProvider,
			"provider error %d for %q: %s", resp.StatusCode, query, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, types.NewAnalysisError(types.ErrKindNutrientProvider,
			"provider rejected %q with status %d: %s", query, resp.StatusCode, string(body))
	}

	var parsed nutritionixResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, false, types.WrapAnalysisError(types.ErrKindNutrientProvider, err, "malformed provider response for %q", query)
	}
	if len(parsed.Foods) == 0 {
		return nil, false, types.NewAnalysisError(types.ErrKindNutrientProvider, "provider returned no foods for %q", query)
	}

	record := ZeroNutrientRecord()
	for _, food := range parsed.Foods {
		record[NutrientCalories] += food.Calories
		record[NutrientProteinG] += food.Protein
		record[NutrientCarbsG] += food.Carbohydrate
		record[NutrientFatG] += food.Fat
		record[NutrientCalciumDV] += food.CalciumDV
		record[NutrientIronDV] += food.IronDV
		record[NutrientPotassiumMg] += food.Potassium
		record[NutrientVitaminCDV] += food.VitaminCDV
	}
	return record, false, nil
}

func (s *NutritionService) cacheGet(ctx context.Context, query string) (types.NutrientRecord, bool) {
	if s.redis == nil {
		return nil, false
	}
	data, err := s.redis.Get(ctx, nutritionCacheKey(query)).Bytes()
	if err != nil {
		return nil, false
	}
	var record types.NutrientRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false
	}
	return record, true
}

func (s *NutritionService) cacheSet(ctx context.Context, query string, record types.NutrientRecord) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, nutritionCacheKey(query), data, nutritionCacheTTL).Err(); err != nil {
		log.WithError(err).WithField("query", query).Warn("failed to cache nutrition lookup")
	}
}

func nutritionCacheKey(query string) string {
	return "nutrition:query:" + query
}

// buildNutritionQuery renders a food item as the provider's natural
// language query, e.g. "1 medium apple" or "150 g rice".
func buildNutritionQuery(item types.FoodItem) string {
	quantity := strconv.FormatFloat(item.Quantity, 'f', -1, 64)
	parts := []string{quantity}
	if item.Unit != "" {
		parts = append(parts, item.Unit)
	}
	parts = append(parts, item.Name)
	return strings.ToLower(strings.Join(parts, " "))
}
