// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inference wraps the prose backend used when rendering a pick.
// Generation is best-effort: any failure falls back to an extractive
// summary of the source text and never blocks the pipeline.
package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	"github.com/pdiddy/hidden-gems/pkg/types"
)

// Summarizer turns a prompt into text.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// AnthropicSummarizer calls the Anthropic Messages API, paced by a token
// bucket limiter.
type AnthropicSummarizer struct {
	client  *anthropic.Client
	model   string
	limiter *rate.Limiter
	timeout time.Duration
}

// NewAnthropic returns a summarizer for model. rpm <= 0 disables pacing.
func NewAnthropic(apiKey, model string, rpm int, timeout time.Duration, opts ...option.RequestOption) *AnthropicSummarizer {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := anthropic.NewClient(opts...)

	limit := rate.Inf
	if rpm > 0 {
		limit = rate.Every(time.Minute / time.Duration(rpm))
	}
	return &AnthropicSummarizer{
		client:  &client,
		model:   model,
		limiter: rate.NewLimiter(limit, 1),
		timeout: timeout,
	}
}

// Summarize sends prompt as a single user message and returns the first
// text block of the reply.
func (a *AnthropicSummarizer) Summarize(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if maxTokens <= 0 {
		maxTokens = 400
	}

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("calling Anthropic API: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			if text := strings.TrimSpace(block.Text); text != "" {
				return text, nil
			}
		}
	}
	return "", errors.New("empty response")
}

// FromConfig returns the configured summarizer, or nil when prose
// generation is disabled or no API key is available.
func FromConfig(cfg types.InferenceConfig, apiKey string) (Summarizer, error) {
	switch cfg.Provider {
	case types.ProviderNone, "":
		return nil, nil
	case types.ProviderAnthropic:
		if apiKey == "" {
			return nil, errors.New("anthropic provider requires an API key")
		}
		return NewAnthropic(apiKey, cfg.Model, cfg.RequestsPerMinute, cfg.Timeout), nil
	}
	return nil, fmt.Errorf("unknown inference provider %q", cfg.Provider)
}

// BestEffort asks s for text and falls back to an extractive summary of
// source when s is nil, fails, or returns nothing. generated is true only
// when the text came from s. It never returns an error.
func BestEffort(ctx context.Context, s Summarizer, prompt, source string, maxTokens int) (text string, generated bool) {
	if s != nil {
		if out, err := s.Summarize(ctx, prompt, maxTokens); err == nil && strings.TrimSpace(out) != "" {
			return strings.TrimSpace(out), true
		}
	}
	// Roughly four characters per token.
	return Extract(source, maxTokens*4), false
}
