// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	applog "audiorelay/internal/log"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"audiorelay.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the invariants the rest of the program relies on, most
// importantly that the derived window threshold is positive.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d outside [%d, %d]",
			c.Audio.SampleRate, MinSampleRate, MaxSampleRate))
	}
	if c.Audio.BufferDurationSeconds <= 0 {
		errs = append(errs, fmt.Errorf("audio.buffer_duration_seconds must be positive"))
	}
	if c.Audio.BytesPerSample <= 0 {
		errs = append(errs, fmt.Errorf("audio.bytes_per_sample must be positive"))
	}
	if c.Audio.ThresholdBytes() <= 0 {
		errs = append(errs, fmt.Errorf("derived buffer threshold must be positive, got %d", c.Audio.ThresholdBytes()))
	}
	if c.Audio.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.chunk_size must be positive"))
	}
	if c.Audio.GateThreshold < 0 || c.Audio.GateThreshold > 1 {
		errs = append(errs, fmt.Errorf("audio.gate_threshold %.3f outside [0, 1]", c.Audio.GateThreshold))
	}
	if c.Engine.Timeout < 0 {
		errs = append(errs, fmt.Errorf("engine.timeout must not be negative"))
	}
	switch c.Engine.Transcriber {
	case EngineStub, EngineOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown engine.transcriber %q", c.Engine.Transcriber))
	}
	switch c.Engine.Translator {
	case EngineStub, EngineOpenAI, EngineAnthropic:
	default:
		errs = append(errs, fmt.Errorf("unknown engine.translator %q", c.Engine.Translator))
	}
	if strings.TrimSpace(c.Engine.TargetLanguage) == "" {
		errs = append(errs, fmt.Errorf("engine.target_language must be set"))
	}
	if c.Client.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("client.queue_size must be positive"))
	}
	if c.Client.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("client.poll_interval must be positive"))
	}

	return errors.Join(errs...)
}

// applyEnvOverrides layers the environment on top of the file/default
// values. Unparseable values are ignored with a warning.
func (cfg *Config) applyEnvOverrides() {
	// General overrides.
	if val, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	envBool("DEBUG", &cfg.Debug)

	// Server overrides.
	envString("HOST", &cfg.Server.Host)
	envInt("PORT", &cfg.Server.Port)
	envBool("RELAY_AUDIO", &cfg.Server.RelayAudio)

	// Audio overrides.
	envInt("SAMPLE_RATE", &cfg.Audio.SampleRate)
	envInt("CHUNK_SIZE", &cfg.Audio.ChunkSize)
	envFloat("BUFFER_DURATION_SECONDS", &cfg.Audio.BufferDurationSeconds)
	envFloat("GATE_THRESHOLD", &cfg.Audio.GateThreshold)

	// Engine overrides.
	envString("TRANSCRIBER", &cfg.Engine.Transcriber)
	envString("TRANSLATOR", &cfg.Engine.Translator)
	envString("TARGET_LANGUAGE", &cfg.Engine.TargetLanguage)
	envString("TRANSCRIPTION_LANGUAGE", &cfg.Engine.TranscriptionLanguage)
	envDuration("ENGINE_TIMEOUT", &cfg.Engine.Timeout)
	envString("OPENAI_API_KEY", &cfg.Engine.OpenAIAPIKey)
	envString("OPENAI_BASE_URL", &cfg.Engine.OpenAIBaseURL)
	envString("ANTHROPIC_API_KEY", &cfg.Engine.AnthropicAPIKey)

	// Client overrides.
	envString("SERVER_URL", &cfg.Client.ServerURL)
}

func envString(key string, dst *string) {
	if val, ok := os.LookupEnv(key); ok {
		*dst = val
		applog.Debugf("configuration: overriding %s from env", key)
	}
}

func envInt(key string, dst *int) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		applog.Warnf("configuration: ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = n
	applog.Debugf("configuration: overriding %s from env: %d", key, n)
}

func envFloat(key string, dst *float64) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		applog.Warnf("configuration: ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = f
	applog.Debugf("configuration: overriding %s from env: %g", key, f)
}

func envBool(key string, dst *bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		applog.Warnf("configuration: ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = b
	applog.Debugf("configuration: overriding %s from env: %v", key, b)
}

func envDuration(key string, dst *time.Duration) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		applog.Warnf("configuration: ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = d
	applog.Debugf("configuration: overriding %s from env: %s", key, d)
}
