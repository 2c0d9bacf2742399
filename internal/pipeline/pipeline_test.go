// SPDX-License-Identifier: MIT
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"audiorelay/internal/audio"
)

type fakeTranscriber struct {
	text  string
	err   error
	delay time.Duration
	calls atomic.Int32
	last  []byte
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	f.calls.Add(1)
	f.last = wav
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

type fakeTranslator struct {
	err    error
	calls  atomic.Int32
	target string
}

func (f *fakeTranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	f.calls.Add(1)
	f.target = targetLanguage
	if f.err != nil {
		return "", f.err
	}
	return "<" + targetLanguage + "> " + text, nil
}

func window(samples ...float32) []byte {
	return audio.EncodeFloat32LE(samples)
}

func newTestPipeline(tr *fakeTranscriber, tl *fakeTranslator, opts Options) *Pipeline {
	if opts.SampleRate == 0 {
		opts.SampleRate = 16000
	}
	if opts.TargetLanguage == "" {
		opts.TargetLanguage = "Spanish"
	}
	p := New(tr, tl, opts)
	p.now = func() time.Time { return time.Unix(1700000000, 500_000_000) }
	return p
}

func TestRunProducesResult(t *testing.T) {
	tr := &fakeTranscriber{text: "hello"}
	tl := &fakeTranslator{}
	p := newTestPipeline(tr, tl, Options{})

	res, ok := p.Run(context.Background(), window(0.1, -0.2, 0.3))
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Original != "hello" || res.Translation != "<Spanish> hello" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Timestamp != 1700000000.5 {
		t.Errorf("timestamp = %v, want 1700000000.5", res.Timestamp)
	}
	if tl.target != "Spanish" {
		t.Errorf("target = %q", tl.target)
	}

	samples, rate, err := audio.DecodeWAV(tr.last)
	if err != nil {
		t.Fatalf("transcriber did not receive a WAV: %v", err)
	}
	if rate != 16000 || len(samples) != 3 {
		t.Errorf("WAV rate=%d samples=%d", rate, len(samples))
	}
}

func TestRunNoResult(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name            string
		raw             []byte
		tr              *fakeTranscriber
		tl              *fakeTranslator
		opts            Options
		wantTranscribed int32
		wantTranslated  int32
	}{
		{"Empty input", []byte{}, &fakeTranscriber{text: "x"}, &fakeTranslator{}, Options{}, 0, 0},
		{"Nil input", nil, &fakeTranscriber{text: "x"}, &fakeTranslator{}, Options{}, 0, 0},
		{"Misaligned", []byte{1, 2, 3}, &fakeTranscriber{text: "x"}, &fakeTranslator{}, Options{}, 0, 0},
		{"Transcriber error", window(0.5), &fakeTranscriber{err: boom}, &fakeTranslator{}, Options{}, 1, 0},
		{"Empty transcription", window(0.5), &fakeTranscriber{}, &fakeTranslator{}, Options{}, 1, 0},
		{"Translator error", window(0.5), &fakeTranscriber{text: "x"}, &fakeTranslator{err: boom}, Options{}, 1, 1},
		{"Gate closed", window(0.01, -0.01), &fakeTranscriber{text: "x"}, &fakeTranslator{}, Options{Gate: audio.NewGate(0.2)}, 0, 0},
		{"Engine timeout", window(0.5), &fakeTranscriber{text: "x", delay: time.Second}, &fakeTranslator{}, Options{Timeout: 10 * time.Millisecond}, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(tt.tr, tt.tl, tt.opts)
			if res, ok := p.Run(context.Background(), tt.raw); ok {
				t.Fatalf("expected no result, got %+v", res)
			}
			if got := tt.tr.calls.Load(); got != tt.wantTranscribed {
				t.Errorf("transcriber calls = %d, want %d", got, tt.wantTranscribed)
			}
			if got := tt.tl.calls.Load(); got != tt.wantTranslated {
				t.Errorf("translator calls = %d, want %d", got, tt.wantTranslated)
			}
		})
	}
}

func TestRunGateOpen(t *testing.T) {
	p := newTestPipeline(&fakeTranscriber{text: "loud"}, &fakeTranslator{}, Options{Gate: audio.NewGate(0.2)})
	if _, ok := p.Run(context.Background(), window(0.01, 0.9)); !ok {
		t.Error("loud window should pass the gate")
	}
}

func TestRunWindowUsesDrainTime(t *testing.T) {
	p := newTestPipeline(&fakeTranscriber{text: "x"}, &fakeTranslator{}, Options{})
	drained := time.Unix(42, 250_000_000)

	res, ok := p.RunWindow(context.Background(), Window{Data: window(0.1), DrainedAt: drained})
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Timestamp != 42.25 {
		t.Errorf("timestamp = %v, want 42.25", res.Timestamp)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := &fakeTranscriber{text: "x", delay: time.Second}
	p := newTestPipeline(tr, &fakeTranslator{}, Options{})
	if _, ok := p.Run(ctx, window(0.1)); ok {
		t.Error("cancelled context should yield no result")
	}
}

func TestResultJSON(t *testing.T) {
	data, err := json.Marshal(Result{Original: "hi", Translation: "hola", Timestamp: 1.5})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"original":"hi","translation":"hola","timestamp":1.5}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
