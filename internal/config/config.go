// Package config provides the process settings for the TTS studio.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/tts/ttsutils"
)

// Defaults applied before the configurator overlays the project settings.
const (
	defaultBaseURL              = "https://ttsapi.fineshare.com"
	defaultVoicesTimeoutSeconds = 10
	defaultPingTimeoutSeconds   = 5
	defaultStateFileName        = "tts_config.json"
	defaultLogsDirName          = "logs"
	defaultOutputDirName        = "output"
	defaultNATSURL              = "nats://127.0.0.1:4222"
	defaultTextSubject          = "text.processed"
	defaultAudioSubject         = "audio.chunk.created"
	defaultAudioBucket          = "AUDIO_FILES"
)

// APIConfig holds the settings for the remote TTS API.
type APIConfig struct {
	BaseURL              string `toml:"base_url"`
	VoicesTimeoutSeconds int    `toml:"voices_timeout_seconds"`
	PingTimeoutSeconds   int    `toml:"ping_timeout_seconds"`
}

// VoicesTimeout bounds the voice listing call.
func (a APIConfig) VoicesTimeout() time.Duration {
	return secondsOr(a.VoicesTimeoutSeconds, defaultVoicesTimeoutSeconds)
}

// PingTimeout bounds the connectivity check.
func (a APIConfig) PingTimeout() time.Duration {
	return secondsOr(a.PingTimeoutSeconds, defaultPingTimeoutSeconds)
}

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                      string `toml:"url"`
	TextProcessedSubject     string `toml:"text_processed_subject"`
	AudioChunkCreatedSubject string `toml:"audio_chunk_created_subject"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir      string `toml:"base_logs_dir"`
	StateFile        string `toml:"state_file"`
	DefaultOutputDir string `toml:"default_output_dir"`
}

// Config is the root configuration structure.
type Config struct {
	API   APIConfig   `toml:"tts_api"`
	NATS  NATSConfig  `toml:"nats"`
	Paths PathsConfig `toml:"paths"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	stateDir := ttsutils.GetStateDir()

	return &Config{
		API: APIConfig{
			BaseURL:              defaultBaseURL,
			VoicesTimeoutSeconds: defaultVoicesTimeoutSeconds,
			PingTimeoutSeconds:   defaultPingTimeoutSeconds,
		},
		NATS: NATSConfig{
			URL:                      defaultNATSURL,
			TextProcessedSubject:     defaultTextSubject,
			AudioChunkCreatedSubject: defaultAudioSubject,
			AudioObjectStoreBucket:   defaultAudioBucket,
		},
		Paths: PathsConfig{
			BaseLogsDir:      filepath.Join(stateDir, defaultLogsDirName),
			StateFile:        filepath.Join(stateDir, defaultStateFileName),
			DefaultOutputDir: filepath.Join(stateDir, defaultOutputDirName),
		},
	}
}

// Load loads the settings through the central configurator. Keys the project
// file leaves out keep their Default values.
func Load(log *logger.Logger) (*Config, error) {
	cfg := Default()

	err := configurator.Load(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault is Load, degrading to Default with a warning when the
// configurator is unavailable.
func LoadOrDefault(log *logger.Logger) *Config {
	cfg, err := Load(log)
	if err != nil {
		log.Warn("Using default settings: %v", err)

		return Default()
	}

	return cfg
}

func secondsOr(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}

	return time.Duration(seconds) * time.Second
}
