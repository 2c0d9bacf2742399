// SPDX-License-Identifier: MIT
/*
Package engine defines the speech-to-text and translation seams used by the
processing pipeline, with backends for OpenAI, Anthropic and a deterministic
stub.

Every call takes a context; callers bound it with a deadline and treat any
error as "no result for this window".
*/
package engine

import (
	"context"
	"fmt"

	"audiorelay/internal/config"
)

// Transcriber turns a mono 16-bit PCM WAV file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// Translator renders text in the target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// New builds the transcriber and translator selected by cfg.
func New(cfg config.EngineConfig) (Transcriber, Translator, error) {
	tr, err := NewTranscriber(cfg)
	if err != nil {
		return nil, nil, err
	}
	tl, err := NewTranslator(cfg)
	if err != nil {
		return nil, nil, err
	}
	return tr, tl, nil
}

// NewTranscriber builds the transcriber named by cfg.Transcriber.
func NewTranscriber(cfg config.EngineConfig) (Transcriber, error) {
	switch cfg.Transcriber {
	case config.EngineOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai transcriber requires an API key")
		}
		return NewWhisperTranscriber(cfg), nil
	case config.EngineStub, "":
		return NewStubTranscriber(nil), nil
	default:
		return nil, fmt.Errorf("unknown transcriber %q", cfg.Transcriber)
	}
}

// NewTranslator builds the translator named by cfg.Translator.
func NewTranslator(cfg config.EngineConfig) (Translator, error) {
	switch cfg.Translator {
	case config.EngineOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai translator requires an API key")
		}
		return NewOpenAITranslator(cfg), nil
	case config.EngineAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic translator requires an API key")
		}
		return NewAnthropicTranslator(cfg), nil
	case config.EngineStub, "":
		return NewStubTranslator(nil), nil
	default:
		return nil, fmt.Errorf("unknown translator %q", cfg.Translator)
	}
}

// translationPrompt is the system instruction shared by the chat backends.
func translationPrompt(targetLanguage string) string {
	return fmt.Sprintf("You are a translator. Translate the user's text into %s. "+
		"Reply with the translation only, without quotes or commentary.", targetLanguage)
}
