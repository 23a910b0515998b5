package gemini_ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"golang-task-automation-engine/internal/config"
	"golang-task-automation-engine/internal/models"
)

// NonTextPlaceholder stands in for completion payloads that carry no text
// part (images, function calls). Surfaced as a result, not an error.
const NonTextPlaceholder = "[non-text response]"

type Client struct {
	config  *config.GeminiConfig
	log     *logrus.Logger
	client  *genai.Client
	limiter *rate.Limiter
}

func NewClient(cfg *config.GeminiConfig, log *logrus.Logger, genClient *genai.Client) *Client {
	var limiter *rate.Limiter
	if cfg.MaxRequestPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.MaxRequestPerMinute)), 1)
	}
	return &Client{
		config:  cfg,
		log:     log,
		client:  genClient,
		limiter: limiter,
	}
}

// Complete sends one prompt and returns the completion text with usage
// metadata. An empty model falls back to the configured default.
func (c *Client) Complete(ctx context.Context, prompt string, model string) (*models.CompletionResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait aborted: %w", err)
		}
	}

	if model == "" {
		model = c.config.Model
	}

	genConfig := &genai.GenerateContentConfig{}
	if c.config.RequestTemperature > 0 {
		genConfig.Temperature = genai.Ptr(float32(c.config.RequestTemperature))
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), genConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to get completion from Gemini: %w", err)
	}

	text := resp.Text()
	if text == "" {
		c.log.WithField("model", model).Warn("Gemini returned a non-text completion")
		text = NonTextPlaceholder
	}

	result := &models.CompletionResult{
		Response: text,
		Model:    model,
	}
	if resp.UsageMetadata != nil {
		result.Usage = map[string]interface{}{
			"prompt_tokens":     resp.UsageMetadata.PromptTokenCount,
			"completion_tokens": resp.UsageMetadata.CandidatesTokenCount,
			"total_tokens":      resp.UsageMetadata.TotalTokenCount,
		}
	}
	return result, nil
}
