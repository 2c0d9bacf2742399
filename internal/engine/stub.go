// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// StubTranscriberConfig configures the stub transcriber behavior.
type StubTranscriberConfig struct {
	// ProcessingDelay simulates transcription time per window.
	ProcessingDelay time.Duration
	// Transcripts are returned in order, wrapping around.
	// If empty, returns "Window N".
	Transcripts []string
}

// DefaultStubTranscriberConfig returns deterministic defaults for local runs.
func DefaultStubTranscriberConfig() *StubTranscriberConfig {
	return &StubTranscriberConfig{
		ProcessingDelay: 50 * time.Millisecond,
		Transcripts: []string{
			"Hello world.",
			"This is a test.",
			"Thank you for listening.",
		},
	}
}

// StubTranscriber returns canned transcripts without calling any service.
type StubTranscriber struct {
	config *StubTranscriberConfig
	calls  atomic.Uint64
}

// NewStubTranscriber creates a stub transcriber; nil uses the defaults.
func NewStubTranscriber(config *StubTranscriberConfig) *StubTranscriber {
	if config == nil {
		config = DefaultStubTranscriberConfig()
	}
	return &StubTranscriber{config: config}
}

// Transcribe returns the next canned transcript.
func (s *StubTranscriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if err := sleepCtx(ctx, s.config.ProcessingDelay); err != nil {
		return "", err
	}
	n := s.calls.Add(1) - 1
	if len(s.config.Transcripts) == 0 {
		return fmt.Sprintf("Window %d", n), nil
	}
	return s.config.Transcripts[int(n%uint64(len(s.config.Transcripts)))], nil
}

// StubTranslatorConfig configures the stub translator behavior.
type StubTranslatorConfig struct {
	// ProcessingDelay simulates translation time.
	ProcessingDelay time.Duration
	// Dictionary maps target language then source text to a translation.
	// Misses return "[Language] " + text.
	Dictionary map[string]map[string]string
}

// DefaultStubTranslatorConfig returns deterministic defaults for local runs.
func DefaultStubTranslatorConfig() *StubTranslatorConfig {
	return &StubTranslatorConfig{
		ProcessingDelay: 20 * time.Millisecond,
		Dictionary: map[string]map[string]string{
			"spanish": {
				"Hello world.":             "Hola mundo.",
				"This is a test.":          "Esto es una prueba.",
				"Thank you for listening.": "Gracias por escuchar.",
			},
			"french": {
				"Hello world.":             "Bonjour le monde.",
				"This is a test.":          "Ceci est un test.",
				"Thank you for listening.": "Merci de votre écoute.",
			},
		},
	}
}

// StubTranslator returns dictionary or tagged translations.
type StubTranslator struct {
	config *StubTranslatorConfig
}

// NewStubTranslator creates a stub translator; nil uses the defaults.
func NewStubTranslator(config *StubTranslatorConfig) *StubTranslator {
	if config == nil {
		config = DefaultStubTranslatorConfig()
	}
	return &StubTranslator{config: config}
}

// Translate looks text up for targetLanguage, case-insensitively on the
// language name.
func (s *StubTranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if err := sleepCtx(ctx, s.config.ProcessingDelay); err != nil {
		return "", err
	}
	if byText, ok := s.config.Dictionary[strings.ToLower(targetLanguage)]; ok {
		if translated, ok := byText[text]; ok {
			return translated, nil
		}
	}
	return fmt.Sprintf("[%s] %s", targetLanguage, text), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	_ Transcriber = (*StubTranscriber)(nil)
	_ Translator  = (*StubTranslator)(nil)
)
