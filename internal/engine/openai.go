// SPDX-License-Identifier: MIT
package engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"audiorelay/internal/config"

	openai "github.com/sashabaranov/go-openai"
)

// windowFileName is the file name reported in the multipart upload; the API
// uses its extension to detect the container.
const windowFileName = "window.wav"

func newOpenAIClient(cfg config.EngineConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

// WhisperTranscriber sends windows to the OpenAI transcription endpoint.
type WhisperTranscriber struct {
	client   *openai.Client
	model    string
	language string
}

// NewWhisperTranscriber creates a transcriber from the engine configuration.
func NewWhisperTranscriber(cfg config.EngineConfig) *WhisperTranscriber {
	model := cfg.TranscriptionModel
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{
		client:   newOpenAIClient(cfg),
		model:    model,
		language: cfg.TranscriptionLanguage,
	}
}

// Transcribe uploads wav and returns the trimmed transcript.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: windowFileName,
		Reader:   bytes.NewReader(wav),
		Language: w.language,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// OpenAITranslator translates with a chat completion model.
type OpenAITranslator struct {
	client *openai.Client
	model  string
}

// NewOpenAITranslator creates a translator from the engine configuration.
func NewOpenAITranslator(cfg config.EngineConfig) *OpenAITranslator {
	model := cfg.TranslationModel
	if model == "" {
		model = config.DefaultTranslationModel
	}
	return &OpenAITranslator{
		client: newOpenAIClient(cfg),
		model:  model,
	}
}

// Translate asks the model for a translation of text into targetLanguage.
func (o *OpenAITranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translationPrompt(targetLanguage)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var (
	_ Transcriber = (*WhisperTranscriber)(nil)
	_ Translator  = (*OpenAITranslator)(nil)
)
