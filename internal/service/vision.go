package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/apex/log"

	"github.com/ruthikN/foodie-die/config"
	"github.com/ruthikN/foodie-die/internal/types"
)

// mealPrompt is the fixed instruction sent with every photo. The model is
// told to answer with the canonical analysis object and nothing else; the
// parser still treats whatever comes back as untrusted text.
const mealPrompt = `You are a nutritionist. Look at this meal photo and respond with a single JSON object, no other text, shaped exactly like:
{
    "analysis": {
        "main_food": "name of the main dish, if one stands out",
        "items": [
            {"name": "apple", "quantity": 1, "unit": "medium"}
        ],
        "health_rating": 3,
        "alternative_suggestions": ["a healthier swap, if any"]
    }
}

Rules:
- items lists every identifiable food with an estimated quantity and unit.
- quantity must be a number, unit a short string like "g", "cup" or "medium".
- health_rating is an integer from 1 (unhealthy) to 5 (very healthy).
- If nothing in the photo is food, return an empty items list.`

// VisionService calls the vision-capable chat completions API.
type VisionService struct {
	apiKey string
	apiURL string
	model  string
	client *http.Client
}

// NewVisionService creates a new VisionService instance
func NewVisionService(cfg *config.Config) (*VisionService, error) {
	if cfg.VisionAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY or OPENAI_API_KEY_FILE must be set")
	}

	return &VisionService{
		apiKey: cfg.VisionAPIKey,
		apiURL: cfg.VisionAPIURL,
		model:  cfg.VisionModel,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type visionContentPart struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	ImageURL *visionImagePart `json:"image_url,omitempty"`
}

type visionImagePart struct {
	URL string `json:"url"`
}

type visionMessage struct {
	Role    string              `json:"role"`
	Content []visionContentPart `json:"content"`
}

type visionRequest struct {
	Model       string          `json:"model"`
	Messages    []visionMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

// DescribeMeal sends the image with the fixed instruction prompt and returns
// the model's raw text. Transport and status failures surface as
// AIInvocationError.
func (s *VisionService) DescribeMeal(ctx context.Context, image []byte, contentType string) (string, error) {
	// image/jpg is not a registered MIME subtype.
	if contentType == "jpg" {
		contentType = "jpeg"
	}
	dataURL := fmt.Sprintf("data:image/%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image))

	reqBody := visionRequest{
		Model: s.model,
		Messages: []visionMessage{
			{
				Role: "user",
				Content: []visionContentPart{
					{Type: "text", Text: mealPrompt},
					{Type: "image_url", ImageURL: &visionImagePart{URL: dataURL}},
				},
			},
		},
		MaxTokens:   1024,
		Temperature: 0.2,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", types.WrapAnalysisError(types.ErrKindAIInvocation, err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", types.WrapAnalysisError(types.ErrKindAIInvocation, err, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))

	resp, err := s.client.Do(req)
	if err != nil {
		return "", types.WrapAnalysisError(types.ErrKindAIInvocation, err, "failed to send request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.WrapAnalysisError(types.ErrKindAIInvocation, err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Error("vision API request failed")
		return "", types.NewAnalysisError(types.ErrKindAIInvocation,
			"vision API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return "", types.WrapAnalysisError(types.ErrKindAIInvocation, err, "failed to decode response")
	}

	if len(result.Choices) == 0 {
		return "", types.NewAnalysisError(types.ErrKindAIInvocation, "no response from vision API")
	}

	return result.Choices[0].Message.Content, nil
}
