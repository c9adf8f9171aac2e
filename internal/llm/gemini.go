package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/fudbot/internal/config"
	"github.com/edgard/fudbot/internal/errs"
)

// Gemini completes prompts with Google's Gemini API.
type Gemini struct {
	models     generator
	log        *slog.Logger
	model      string
	config     *genai.GenerateContentConfig
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
}

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewGemini creates a Gemini-backed Completer.
func NewGemini(ctx context.Context, cfg config.LLMConfig, log *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	gi, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	temperature := cfg.Temperature
	baseCfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(cfg.MaxTokens),
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
		},
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.Model)
	return newGemini(gi.Models, logger, cfg, baseCfg), nil
}

func newGemini(models generator, log *slog.Logger, cfg config.LLMConfig, base *genai.GenerateContentConfig) *Gemini {
	return &Gemini{
		models:     models,
		log:        log,
		model:      cfg.Model,
		config:     base,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		timeout:    cfg.Timeout,
	}
}

// Complete implements Completer.
func (g *Gemini) Complete(ctx context.Context, system, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cfg := *g.config
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := g.generateContentWithRetries(ctx, contents, &cfg)
	if err != nil {
		return "", err
	}
	return g.extractText(ctx, resp)
}

func (g *Gemini) generateContentWithRetries(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var err error
	for i := 0; i <= g.maxRetries; i++ {
		var resp *genai.GenerateContentResponse
		resp, err = g.models.GenerateContent(ctx, g.model, contents, cfg)
		if err == nil {
			return resp, nil
		}

		var apiErr *genai.APIError
		if !errors.As(err, &apiErr) {
			g.log.WarnContext(ctx, "Gemini API call failed", "error", err)
			return nil, errs.Transient("gemini", fmt.Errorf("gemini API call failed: %w", err))
		}

		if apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED" {
			g.log.WarnContext(ctx, "Gemini API rate limited", "error", err)
			return nil, errs.RateLimited("gemini", fmt.Errorf("gemini API call failed: %w", err), 0)
		}
		if !retryable(apiErr.Code) || i == g.maxRetries {
			g.log.ErrorContext(ctx, "Gemini API call failed", "attempt", i+1, "code", apiErr.Code, "error", err)
			return nil, classifyStatus("gemini", apiErr.Code, fmt.Errorf("gemini API call failed: %w", err))
		}

		g.log.InfoContext(ctx, "Retrying Gemini API call due to retriable APIError", "delay", g.retryDelay, "code", apiErr.Code)
		if werr := wait(ctx, g.retryDelay); werr != nil {
			return nil, errs.Transient("gemini", werr)
		}
	}
	return nil, errs.Transient("gemini", err)
}

func (g *Gemini) extractText(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errs.Transient("gemini", ErrEmptyResponse)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		g.log.WarnContext(ctx, "Gemini request blocked", "reason", reason)
		return "", errs.Transient("gemini", fmt.Errorf("blocked by safety filter: %s", reason))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		g.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", errs.Transient("gemini", fmt.Errorf("%w, finish reason: %s", ErrEmptyResponse, finishReason))
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errs.Transient("gemini", ErrEmptyResponse)
	}
	return text, nil
}
