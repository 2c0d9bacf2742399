// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStubTranscriberCycles(t *testing.T) {
	s := NewStubTranscriber(&StubTranscriberConfig{Transcripts: []string{"a", "b"}})
	ctx := context.Background()

	for i, want := range []string{"a", "b", "a"} {
		got, err := s.Transcribe(ctx, nil)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got != want {
			t.Errorf("call %d = %q, want %q", i, got, want)
		}
	}
}

func TestStubTranscriberGenerated(t *testing.T) {
	s := NewStubTranscriber(&StubTranscriberConfig{})
	got, err := s.Transcribe(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Window 0" {
		t.Errorf("got %q, want %q", got, "Window 0")
	}
}

func TestStubTranslator(t *testing.T) {
	s := NewStubTranslator(&StubTranslatorConfig{
		Dictionary: map[string]map[string]string{
			"spanish": {"Hello world.": "Hola mundo."},
		},
	})

	tests := []struct {
		name   string
		text   string
		target string
		want   string
	}{
		{"Dictionary hit", "Hello world.", "Spanish", "Hola mundo."},
		{"Dictionary miss", "Good night.", "Spanish", "[Spanish] Good night."},
		{"Unknown language", "Hello world.", "German", "[German] Hello world."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Translate(context.Background(), tt.text, tt.target)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStubHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	s := NewStubTranscriber(&StubTranscriberConfig{ProcessingDelay: time.Second})
	start := time.Now()
	_, err := s.Transcribe(ctx, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("stub did not return on context deadline")
	}
}
