// SPDX-License-Identifier: MIT
package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"audiorelay/internal/audio"
	"audiorelay/internal/config"
	applog "audiorelay/internal/log"
	"audiorelay/internal/pipeline"
	"audiorelay/internal/transport"
)

// Run captures from the configured device and streams to the server until
// ctx is cancelled or the connection ends. PortAudio must be initialized.
func Run(ctx context.Context, cfg *config.Config, sink ResultSink) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, err := transport.Dial(dialCtx, cfg.Client.ServerURL)
	cancel()
	if err != nil {
		return err
	}
	applog.Infof("Client: connected to %s", cfg.Client.ServerURL)

	queue := audio.NewChunkQueue(cfg.Client.QueueSize)
	capture, err := audio.NewCapture(cfg.Client.InputDevice, cfg.EffectiveCaptureRate(),
		cfg.Audio.ChunkSize, cfg.Client.LowLatency, queue)
	if err != nil {
		conn.Close()
		return err
	}

	var recorder *audio.Recorder
	if cfg.Client.Record {
		recorder = audio.NewRecorder(int(cfg.EffectiveCaptureRate()))
		filename := cfg.Client.RecordingFile(time.Now())
		if err := recorder.StartRecording(filename); err != nil {
			conn.Close()
			return fmt.Errorf("failed to start recording: %w", err)
		}
		capture.SetRecorder(recorder)
		applog.Infof("Client: recording to %s", filename)
	}

	if err := capture.Start(); err != nil {
		conn.Close()
		stopRecording(recorder)
		return err
	}
	applog.Infof("Client: capturing from %q at %.0f Hz", capture.DeviceName(), cfg.EffectiveCaptureRate())

	streamer := NewStreamer(conn, queue, sink, StreamerOptions{
		SampleRate:   cfg.Audio.SampleRate,
		CaptureRate:  cfg.EffectiveCaptureRate(),
		PollInterval: cfg.Client.PollInterval,
	})
	runErr := streamer.Run(ctx)

	if err := capture.Stop(); err != nil {
		applog.Warnf("Client: failed to stop capture: %v", err)
	}
	stopRecording(recorder)

	stats := streamer.Stats()
	applog.Infof("Client: sent %d chunks (%d bytes), received %d results, dropped %d chunks",
		stats.ChunksSent, stats.BytesSent, stats.Results, stats.Dropped)
	return runErr
}

func stopRecording(r *audio.Recorder) {
	if r == nil {
		return
	}
	if err := r.StopRecording(); err != nil {
		applog.Warnf("Client: failed to stop recording: %v", err)
	}
}

// NewPrinter returns a sink that writes one line per result to w.
func NewPrinter(w io.Writer) ResultSink {
	return SinkFunc(func(r pipeline.Result) {
		fmt.Fprintf(w, "[%s] %s\n    -> %s\n", FormatTimestamp(r.Timestamp), r.Original, r.Translation)
	})
}

// FormatTimestamp renders fractional Unix seconds as local wall-clock time.
func FormatTimestamp(ts float64) string {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).Format("15:04:05")
}
