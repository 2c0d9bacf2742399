package config

import (
	"net"
	"strconv"
	"time"
)

// Core configuration constants that define the boundaries and defaults
// for the relay server and the streaming client.
const (
	// Server defaults
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8000
	DefaultRelayAudio      = false // Fan raw chunks out to every client
	DefaultReadBufferSize  = 4096
	DefaultWriteBufferSize = 1024
	DefaultShutdownTimeout = 5 * time.Second

	// Audio defaults
	DefaultSampleRate            = 16000 // Speech models expect 16kHz
	DefaultChunkSize             = 1024  // Frames per capture buffer
	DefaultBufferDurationSeconds = 3.0   // Seconds of audio per window
	DefaultBytesPerSample        = 4     // float32 on the wire
	DefaultChannels              = 1     // Mono capture
	DefaultGateThreshold         = 0.0   // Gate disabled

	// Engine defaults
	DefaultTranscriber           = EngineStub
	DefaultTranslator            = EngineStub
	DefaultTargetLanguage        = "Spanish"
	DefaultTranscriptionLanguage = "en"
	DefaultEngineTimeout         = 30 * time.Second
	DefaultTranscriptionModel    = "whisper-1"
	DefaultTranslationModel      = "gpt-4o-mini"
	DefaultAnthropicModel        = "claude-3-5-haiku-latest"

	// Client defaults
	DefaultServerURL    = "ws://localhost:8000/audio"
	DefaultInputDevice  = MinDeviceID
	DefaultQueueSize    = 64
	DefaultPollInterval = 100 * time.Millisecond
	DefaultLowLatency   = false
	DefaultRecordFormat = "wav"

	// Hardware and processing limits
	MinDeviceID   = -1     // -1 represents system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
)

// Engine backend names accepted by engine.transcriber and engine.translator.
const (
	EngineStub      = "stub"
	EngineOpenAI    = "openai"
	EngineAnthropic = "anthropic"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug    bool         `yaml:"debug"`     // Development logging (stack traces on errors).
	LogLevel string       `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Server   ServerConfig `yaml:"server"`    // Listener and WebSocket settings.
	Audio    AudioConfig  `yaml:"audio"`     // Sample format and windowing.
	Engine   EngineConfig `yaml:"engine"`    // Transcription and translation backends.
	Client   ClientConfig `yaml:"client"`    // Streaming client settings.
}

// ServerConfig holds settings for the HTTP/WebSocket listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`              // Interface to bind.
	Port            int           `yaml:"port"`              // TCP port to bind.
	RelayAudio      bool          `yaml:"relay_audio"`       // Broadcast every inbound chunk to all clients.
	ReadBufferSize  int           `yaml:"read_buffer_size"`  // WebSocket read buffer in bytes.
	WriteBufferSize int           `yaml:"write_buffer_size"` // WebSocket write buffer in bytes.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`  // Grace period for http.Server.Shutdown.
}

// AudioConfig holds the wire format and windowing settings.
type AudioConfig struct {
	SampleRate            int     `yaml:"sample_rate"`             // Sample rate in Hz of the mono float32 stream.
	ChunkSize             int     `yaml:"chunk_size"`              // Frames per capture callback on the client.
	BufferDurationSeconds float64 `yaml:"buffer_duration_seconds"` // Window length in seconds.
	BytesPerSample        int     `yaml:"bytes_per_sample"`        // Bytes per wire sample (4 for float32).
	GateThreshold         float64 `yaml:"gate_threshold"`          // Skip windows whose peak is below this (0 disables).
}

// EngineConfig selects and configures the external engines.
type EngineConfig struct {
	Transcriber           string        `yaml:"transcriber"`            // "openai" or "stub".
	Translator            string        `yaml:"translator"`             // "openai", "anthropic" or "stub".
	TargetLanguage        string        `yaml:"target_language"`        // Language results are translated into.
	TranscriptionLanguage string        `yaml:"transcription_language"` // Language hint for the transcriber.
	Timeout               time.Duration `yaml:"timeout"`                // Per-call deadline (0 disables).
	OpenAIAPIKey          string        `yaml:"openai_api_key"`
	OpenAIBaseURL         string        `yaml:"openai_base_url"`
	TranscriptionModel    string        `yaml:"transcription_model"`
	TranslationModel      string        `yaml:"translation_model"`
	AnthropicAPIKey       string        `yaml:"anthropic_api_key"`
	AnthropicModel        string        `yaml:"anthropic_model"`
}

// ClientConfig holds settings for the capture-and-stream client.
type ClientConfig struct {
	ServerURL    string        `yaml:"server_url"`    // WebSocket endpoint to stream to.
	InputDevice  int           `yaml:"input_device"`  // PortAudio device index (-1 for default).
	CaptureRate  float64       `yaml:"capture_rate"`  // Device rate; resampled to audio.sample_rate (0 uses sample_rate).
	QueueSize    int           `yaml:"queue_size"`    // Bounded capture queue length in chunks.
	PollInterval time.Duration `yaml:"poll_interval"` // Sender wake-up interval when the queue is idle.
	TUI          bool          `yaml:"tui"`           // Render results in the terminal UI.
	LowLatency   bool          `yaml:"low_latency"`   // Use the device's low input latency.
	Record       bool          `yaml:"record"`        // Also write captured audio to a WAV file.
	OutputFile   string        `yaml:"output_file"`   // Recording path (generated when empty).
}

// NewConfig creates a new Config instance with default values.
// This is the base configuration before a config file or the
// environment is applied.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			RelayAudio:      DefaultRelayAudio,
			ReadBufferSize:  DefaultReadBufferSize,
			WriteBufferSize: DefaultWriteBufferSize,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Audio: AudioConfig{
			SampleRate:            DefaultSampleRate,
			ChunkSize:             DefaultChunkSize,
			BufferDurationSeconds: DefaultBufferDurationSeconds,
			BytesPerSample:        DefaultBytesPerSample,
			GateThreshold:         DefaultGateThreshold,
		},
		Engine: EngineConfig{
			Transcriber:           DefaultTranscriber,
			Translator:            DefaultTranslator,
			TargetLanguage:        DefaultTargetLanguage,
			TranscriptionLanguage: DefaultTranscriptionLanguage,
			Timeout:               DefaultEngineTimeout,
			TranscriptionModel:    DefaultTranscriptionModel,
			TranslationModel:      DefaultTranslationModel,
			AnthropicModel:        DefaultAnthropicModel,
		},
		Client: ClientConfig{
			ServerURL:    DefaultServerURL,
			InputDevice:  DefaultInputDevice,
			QueueSize:    DefaultQueueSize,
			PollInterval: DefaultPollInterval,
			LowLatency:   DefaultLowLatency,
		},
	}
}

// ThresholdBytes is the buffered byte count that makes a window ready:
// sample_rate × buffer_duration_seconds × bytes_per_sample.
func (a AudioConfig) ThresholdBytes() int {
	return int(float64(a.SampleRate) * a.BufferDurationSeconds * float64(a.BytesPerSample))
}

// ListenAddr returns the host:port pair for the HTTP listener.
func (s ServerConfig) ListenAddr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// EffectiveCaptureRate returns the device capture rate, falling back to the
// stream sample rate when none is configured.
func (c *Config) EffectiveCaptureRate() float64 {
	if c.Client.CaptureRate > 0 {
		return c.Client.CaptureRate
	}
	return float64(c.Audio.SampleRate)
}

// RecordingFile returns the configured recording path or a timestamped
// default such as recording-02-01-2006-150405.wav.
func (c ClientConfig) RecordingFile(now time.Time) string {
	if c.OutputFile != "" {
		return c.OutputFile
	}
	return "recording-" + now.UTC().Format("02-01-2006-150405") + "." + DefaultRecordFormat
}
