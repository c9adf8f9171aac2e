package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/edgard/fudbot/internal/config"
	"github.com/edgard/fudbot/internal/errs"
)

// OpenAI completes prompts against any OpenAI-compatible chat endpoint.
type OpenAI struct {
	client      *openai.Client
	log         *slog.Logger
	model       string
	temperature float32
	maxTokens   int
	maxRetries  int
	retryDelay  time.Duration
}

// NewOpenAI creates an OpenAI-compatible Completer.
func NewOpenAI(cfg config.LLMConfig, log *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}

	openAICfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openAICfg.BaseURL = cfg.BaseURL
	}
	openAICfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	logger := log.With("component", "openai_client")
	logger.Info("OpenAI client initialized successfully", "model", cfg.Model, "base_url", openAICfg.BaseURL)
	return &OpenAI{
		client:      openai.NewClientWithConfig(openAICfg),
		log:         logger,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
	}, nil
}

// Complete implements Completer.
func (o *OpenAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}

	var err error
	for i := 0; i <= o.maxRetries; i++ {
		var resp openai.ChatCompletionResponse
		resp, err = o.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", errs.Transient("openai", ErrEmptyResponse)
			}
			text := strings.TrimSpace(resp.Choices[0].Message.Content)
			if text == "" {
				return "", errs.Transient("openai", ErrEmptyResponse)
			}
			return text, nil
		}

		status := statusOf(err)
		if !retryable(status) || i == o.maxRetries {
			o.log.WarnContext(ctx, "Chat completion failed", "attempt", i+1, "status", status, "error", err)
			return "", classifyStatus("openai", status, fmt.Errorf("chat completion failed: %w", err))
		}

		o.log.InfoContext(ctx, "Retrying chat completion", "delay", o.retryDelay, "status", status)
		if werr := wait(ctx, o.retryDelay); werr != nil {
			return "", errs.Transient("openai", werr)
		}
	}
	return "", errs.Transient("openai", err)
}

// statusOf extracts the HTTP status from go-openai errors, or 0.
func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
