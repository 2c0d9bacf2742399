// SPDX-License-Identifier: MIT
package audio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"audiorelay/pkg/utils"
)

const testSampleRate = 16000

func TestRecordingStartStop(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test_recording.wav")
	rec := NewRecorder(testSampleRate)

	if err := rec.StartRecording(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}
	if !rec.IsRecording() {
		t.Error("Recorder should be in recording state")
	}
	if rec.outputFile == nil {
		t.Error("Output file should be initialized")
	}
	if rec.wavEncoder == nil {
		t.Error("WAV encoder should be initialized")
	}

	chunk := utils.GenerateSineWave(160, testSampleRate, 440, 1)
	for range 3 {
		if err := rec.Write(chunk); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	outputFile := rec.outputFile

	if err := rec.StopRecording(); err != nil {
		t.Fatalf("Failed to stop recording: %v", err)
	}
	if rec.IsRecording() {
		t.Error("Recorder should not be in recording state after stopping")
	}
	if rec.outputFile != nil {
		t.Error("Output file should be nil after stopping")
	}
	if err := outputFile.Close(); err == nil {
		t.Error("File should already be closed")
	}
	if got := rec.SamplesWritten(); got != 3*len(chunk) {
		t.Errorf("SamplesWritten = %d, want %d", got, 3*len(chunk))
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("Recording file was not created: %v", err)
	}
	samples, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if rate != testSampleRate {
		t.Errorf("sample rate = %d, want %d", rate, testSampleRate)
	}
	if len(samples) != 3*len(chunk) {
		t.Errorf("decoded %d samples, want %d", len(samples), 3*len(chunk))
	}
}

func TestRecordingErrorCases(t *testing.T) {
	tests := []struct {
		desc          string
		filename      string
		sampleRate    int
		startTwice    bool
		expectError   bool
		errorContains string
	}{
		{"Already recording", "valid.wav", testSampleRate, true, true, "already recording"},
		{"Invalid path", "/nonexistent/path/file.wav", testSampleRate, false, true, ""},
		{"Invalid sample rate", "rate.wav", 0, false, true, "invalid sample rate"},
		{"Valid path", "test.wav", testSampleRate, false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			rec := NewRecorder(tt.sampleRate)
			filename := tt.filename
			if !filepath.IsAbs(filename) {
				filename = filepath.Join(t.TempDir(), tt.filename)
			}

			err := rec.StartRecording(filename)
			if tt.startTwice && err == nil {
				err = rec.StartRecording(filename)
			}
			defer rec.StopRecording()

			if tt.expectError && err == nil {
				t.Errorf("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if tt.errorContains != "" && err != nil {
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Error %q does not contain %q", err.Error(), tt.errorContains)
				}
			}
		})
	}
}

func TestRecordingIdle(t *testing.T) {
	rec := NewRecorder(testSampleRate)

	if err := rec.Write([]float32{0.1, 0.2}); err != nil {
		t.Errorf("Write while idle returned %v", err)
	}
	if err := rec.StopRecording(); err != nil {
		t.Errorf("StopRecording while idle returned %v", err)
	}
	if rec.SamplesWritten() != 0 {
		t.Errorf("SamplesWritten = %d, want 0", rec.SamplesWritten())
	}
}

func BenchmarkRecordingWrite(b *testing.B) {
	rec := NewRecorder(testSampleRate)
	if err := rec.StartRecording(filepath.Join(b.TempDir(), "bench.wav")); err != nil {
		b.Fatalf("Failed to start recording: %v", err)
	}
	defer rec.StopRecording()

	chunk := make([]float32, 1024)

	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		_ = rec.Write(chunk)
	}
}
