package audio

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder writes captured mono float samples to a 16-bit WAV file on disk.
type Recorder struct {
	mu          sync.Mutex
	isRecording int32

	sampleRate int
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *audio.IntBuffer
	written    int
}

// NewRecorder creates a recorder for samples at sampleRate.
func NewRecorder(sampleRate int) *Recorder {
	return &Recorder{sampleRate: sampleRate}
}

// StartRecording creates filename and begins accepting samples.
func (r *Recorder) StartRecording(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if atomic.LoadInt32(&r.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}
	if r.sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", r.sampleRate)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	r.outputFile = file

	r.wavEncoder = wav.NewEncoder(file, r.sampleRate, wavBitDepth, wavChannels, wavFormatPCM)

	r.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: wavChannels,
			SampleRate:  r.sampleRate,
		},
		SourceBitDepth: wavBitDepth,
	}
	r.written = 0

	atomic.StoreInt32(&r.isRecording, 1)

	return nil
}

// Write appends samples to the open file. It is a no-op when not recording.
func (r *Recorder) Write(samples []float32) error {
	if atomic.LoadInt32(&r.isRecording) == 0 || len(samples) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.wavEncoder == nil {
		return nil
	}
	if cap(r.sampleBuf.Data) < len(samples) {
		r.sampleBuf.Data = make([]int, len(samples))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(samples)]
	for i, s := range samples {
		r.sampleBuf.Data[i] = int(FloatToPCM16(s))
	}
	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("failed to write recording: %w", err)
	}
	r.written += len(samples)
	return nil
}

// StopRecording finalises the WAV header and closes the file.
func (r *Recorder) StopRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if atomic.LoadInt32(&r.isRecording) == 0 {
		return nil
	}

	atomic.StoreInt32(&r.isRecording, 0)

	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			return err
		}
		r.wavEncoder = nil
	}

	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			return err
		}
		r.outputFile = nil
	}

	return nil
}

// IsRecording reports whether a file is open.
func (r *Recorder) IsRecording() bool {
	return atomic.LoadInt32(&r.isRecording) == 1
}

// SamplesWritten returns the number of samples written to the current or
// last recording.
func (r *Recorder) SamplesWritten() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}
