// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"fmt"
	"strings"

	"audiorelay/internal/config"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 1024

// AnthropicTranslator translates with the Anthropic Messages API.
type AnthropicTranslator struct {
	client anthropic.Client
	model  string
}

// NewAnthropicTranslator creates a translator from the engine configuration.
// Extra request options are appended after the API key.
func NewAnthropicTranslator(cfg config.EngineConfig, opts ...option.RequestOption) *AnthropicTranslator {
	model := cfg.AnthropicModel
	if model == "" {
		model = config.DefaultAnthropicModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(cfg.AnthropicAPIKey)}, opts...)
	return &AnthropicTranslator{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// Translate asks the model for a translation of text into targetLanguage.
func (a *AnthropicTranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: translationPrompt(targetLanguage)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic chat: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

var _ Translator = (*AnthropicTranslator)(nil)
