// SPDX-License-Identifier: MIT
/*
Package pipeline turns one drained audio window into a transcription and
translation result.

Stages:
- Decode the raw window as little-endian float32 samples
- Optionally skip the window when the silence gate is closed
- Encode a mono 16-bit PCM WAV file
- Transcribe, then translate non-empty text

Any failure yields no result. Failures are logged and never surface to the
session that produced the window.
*/
package pipeline

import (
	"context"
	"errors"
	"time"

	"audiorelay/internal/audio"
	"audiorelay/internal/engine"
	applog "audiorelay/internal/log"
)

// Result is the message sent back to a client for one window.
type Result struct {
	Original    string  `json:"original"`
	Translation string  `json:"translation"`
	Timestamp   float64 `json:"timestamp"`
}

// Window is a drained buffer together with the moment it was drained.
type Window struct {
	Data      []byte
	DrainedAt time.Time
}

// Options configures a Pipeline.
type Options struct {
	SampleRate     int
	TargetLanguage string
	// Timeout bounds each engine call. Zero disables the deadline.
	Timeout time.Duration
	// Gate skips quiet windows. Nil or a zero threshold lets every window through.
	Gate *audio.Gate
}

// Pipeline runs windows through the configured engines. It holds no
// per-session state and is safe for concurrent use.
type Pipeline struct {
	transcriber engine.Transcriber
	translator  engine.Translator
	opts        Options
	now         func() time.Time
}

// New creates a pipeline over the given engines.
func New(transcriber engine.Transcriber, translator engine.Translator, opts Options) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		translator:  translator,
		opts:        opts,
		now:         time.Now,
	}
}

// Run processes raw stamped with the current time.
func (p *Pipeline) Run(ctx context.Context, raw []byte) (Result, bool) {
	return p.RunWindow(ctx, Window{Data: raw, DrainedAt: p.now()})
}

// RunWindow processes one window. The boolean is false when the window
// produced no result.
func (p *Pipeline) RunWindow(ctx context.Context, w Window) (Result, bool) {
	samples, err := audio.DecodeFloat32LE(w.Data)
	if err != nil {
		if errors.Is(err, audio.ErrEmptyInput) {
			applog.Debugf("Pipeline: skipping empty window")
		} else {
			applog.Warnf("Pipeline: dropping window: %v", err)
		}
		return Result{}, false
	}

	if !p.opts.Gate.Open(samples) {
		applog.Debugf("Pipeline: window below gate (peak %.4f < %.4f)", audio.Peak(samples), p.opts.Gate.Threshold())
		return Result{}, false
	}

	wav, err := audio.EncodeWAV(samples, p.opts.SampleRate)
	if err != nil {
		applog.Warnf("Pipeline: failed to encode window: %v", err)
		return Result{}, false
	}

	text, err := p.transcribe(ctx, wav)
	if err != nil {
		applog.Warnf("Pipeline: transcription failed: %v", err)
		return Result{}, false
	}
	if text == "" {
		applog.Debugf("Pipeline: empty transcription for %d samples", len(samples))
		return Result{}, false
	}

	translation, err := p.translate(ctx, text)
	if err != nil {
		applog.Warnf("Pipeline: translation failed: %v", err)
		return Result{}, false
	}

	return Result{
		Original:    text,
		Translation: translation,
		Timestamp:   unixSeconds(w.DrainedAt),
	}, true
}

func (p *Pipeline) transcribe(ctx context.Context, wav []byte) (string, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.transcriber.Transcribe(ctx, wav)
}

func (p *Pipeline) translate(ctx context.Context, text string) (string, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.translator.Translate(ctx, text, p.opts.TargetLanguage)
}

func (p *Pipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.opts.Timeout)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}
