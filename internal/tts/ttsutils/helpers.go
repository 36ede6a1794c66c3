// Package ttsutils provides file and path utility functions for the TTS studio.
//
// It resolves the application's state directory, creates output directories,
// and derives audio filenames from the text being spoken.
package ttsutils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Environment variable names used for path resolution.
const (
	envStateDir = "TTS_STUDIO_HOME"
)

// Common application directory and path constants.
const (
	appName               = "tts-studio"
	dotConfig             = ".config"
	tmpDir                = "/tmp"
	defaultDirPermissions = 0o750
	dot                   = "."
)

// Filename derivation constants.
const (
	stemMaxRunes     = 20
	fallbackStem     = "tts_audio"
	stemReplacement  = "_"
	timestampLayout  = "20060102150405"
	fileNameTemplate = "%s_%s.%s"
)

// Data size constants.
const (
	byteUnit = 1
	kilobyte = byteUnit * 1024
	megabyte = kilobyte * 1024
	gigabyte = megabyte * 1024
)

// Size formatting constants.
const (
	formatGB    = "%.1f GB"
	formatMB    = "%.1f MB"
	formatKB    = "%.1f KB"
	formatBytes = "%d B"
)

const errFmtFailedToCreateDir = "failed to create directory %s: %w"

// stemDisallowed matches every character that is neither ASCII alphanumeric
// nor a CJK unified ideograph.
var stemDisallowed = regexp.MustCompile(`[^a-zA-Z0-9\x{4e00}-\x{9fa5}]`)

// supportedAudioFormats lists the extensions the provider can produce.
var supportedAudioFormats = []string{"mp3", "wav", "ogg"}

// GetStateDir returns the directory holding the studio's state, respecting an
// environment variable override and falling back to a user config directory.
func GetStateDir() string {
	if stateDir := os.Getenv(envStateDir); stateDir != "" {
		return stateDir
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(tmpDir, appName)
	}

	return filepath.Join(homeDir, dotConfig, appName)
}

// EnsureDir ensures a directory exists at the given path, creating it if it doesn't.
func EnsureDir(path string) error {
	info, statErr := os.Stat(path)
	if statErr == nil && info.IsDir() {
		return nil
	}

	mkdirErr := os.MkdirAll(path, defaultDirPermissions)
	if mkdirErr != nil {
		return fmt.Errorf(errFmtFailedToCreateDir, path, mkdirErr)
	}

	return nil
}

// SanitizeStem keeps the first 20 characters of text and replaces each one that
// is not an ASCII letter, digit or CJK ideograph with an underscore. Empty input
// yields "tts_audio".
func SanitizeStem(text string) string {
	runes := []rune(text)
	if len(runes) > stemMaxRunes {
		runes = runes[:stemMaxRunes]
	}

	stem := stemDisallowed.ReplaceAllString(string(runes), stemReplacement)
	if stem == "" {
		return fallbackStem
	}

	return stem
}

// DeriveFilename builds "<stem>_<YYYYMMDDHHMMSS>.<format>" for text spoken at the
// given instant. Two calls in the same second for texts sharing their first 20
// characters produce the same name.
func DeriveFilename(text, format string, at time.Time) string {
	return fmt.Sprintf(fileNameTemplate, SanitizeStem(text), at.Format(timestampLayout), format)
}

// SupportedAudioFormats returns the audio formats the provider produces.
func SupportedAudioFormats() []string {
	return slices.Clone(supportedAudioFormats)
}

// GetFileExtension returns the file extension without the leading dot.
func GetFileExtension(filename string) string {
	return strings.TrimPrefix(filepath.Ext(filename), dot)
}

// FormatFileSize formats a file size in a human-readable string (e.g., "1.2 GB", "500.5
// MB").
func FormatFileSize(bytes int64) string {
	switch {
	case bytes >= gigabyte:
		return fmt.Sprintf(formatGB, float64(bytes)/gigabyte)
	case bytes >= megabyte:
		return fmt.Sprintf(formatMB, float64(bytes)/megabyte)
	case bytes >= kilobyte:
		return fmt.Sprintf(formatKB, float64(bytes)/kilobyte)
	default:
		return fmt.Sprintf(formatBytes, bytes)
	}
}
