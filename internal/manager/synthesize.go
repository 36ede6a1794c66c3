package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/tts-studio/internal/core"
	"github.com/book-expert/tts-studio/internal/tts/ttsutils"
)

const (
	audioFilePermissions = 0o644
	partialAudioPattern  = ".tts-audio-*.part"
)

// Synthesize converts text to speech with the named profile (or the session's
// profile when profileName is empty), saves the audio in the active output
// directory and records it in the history.
//
// The profile and output directory are captured when the call starts. The
// synthesis and download calls run without the manager lock and are not
// bounded by any timeout of their own; ctx is the only way to abandon them.
// A failure at any step leaves no history record and no partial audio file.
func (m *Manager) Synthesize(ctx context.Context, text, profileName string) (*core.SynthesisResult, error) {
	name, profile, apiKey, outputDir, err := m.resolveSynthesis(profileName)
	if err != nil {
		return nil, err
	}

	format := profile.EffectiveFormat()
	request := core.SpeechRequest{
		Voice:   profile.Voice,
		Emotion: profile.Emotion,
		Format:  format,
		Speech:  text,
	}

	downloadURL, err := m.api.Synthesize(ctx, apiKey, request)
	if err != nil {
		m.log.Error("Synthesis with profile %q failed: %v", name, err)

		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	now := m.opts.Clock()
	outputPath := filepath.Join(outputDir, ttsutils.DeriveFilename(text, format, now))

	audio, err := m.api.Download(ctx, downloadURL)
	if err != nil {
		m.log.Error("Download for profile %q failed: %v", name, err)

		return nil, fmt.Errorf("failed to download audio: %w", err)
	}

	err = writeAudio(outputPath, audio)
	if err != nil {
		m.log.Error("Failed to save audio to %s: %v", outputPath, err)

		return nil, fmt.Errorf("%w: %w", ErrFilesystem, err)
	}

	record := core.HistoryRecord{
		Text:        text,
		ProfileName: name,
		Emotion:     profile.Emotion,
		Timestamp:   now.Format(time.RFC3339),
		Filename:    outputPath,
	}

	err = m.AppendHistory(record)
	if err != nil {
		return nil, err
	}

	m.log.Info("Generated audio: %s (%d bytes, profile %q)", outputPath, len(audio), name)

	return &core.SynthesisResult{
		Path:        outputPath,
		ProfileName: name,
		Format:      format,
		Size:        len(audio),
		Record:      record,
	}, nil
}

// resolveSynthesis copies out everything a synthesis needs from the document.
// A profile with no fields set counts as missing.
func (m *Manager) resolveSynthesis(profileName string) (string, core.VoiceProfile, string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := profileName
	if name == "" {
		name = m.session.Profile
	}

	profile, ok := m.doc.VoiceProfiles[name]
	if !ok || profile == (core.VoiceProfile{}) {
		return "", core.VoiceProfile{}, "", "", fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}

	return name, profile, m.doc.APIKey, m.outputDirLocked(), nil
}

// PreviewFilename returns the name Synthesize would give the file for text if
// it were called now.
func (m *Manager) PreviewFilename(text, format string) string {
	if format == "" {
		format = core.DefaultFormat
	}

	return ttsutils.DeriveFilename(text, format, m.opts.Clock())
}

// writeAudio writes data beside path and renames it into place, so an
// interrupted write never leaves a truncated audio file under the final name.
func writeAudio(path string, data []byte) error {
	dir := filepath.Dir(path)

	err := ttsutils.EnsureDir(dir)
	if err != nil {
		return err
	}

	partial, err := os.CreateTemp(dir, partialAudioPattern)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}

	partialName := partial.Name()

	_, writeErr := partial.Write(data)
	closeErr := partial.Close()

	err = errors.Join(writeErr, closeErr)
	if err == nil {
		err = os.Chmod(partialName, audioFilePermissions)
	}

	if err == nil {
		err = os.Rename(partialName, path)
	}

	if err != nil {
		_ = os.Remove(partialName)

		return fmt.Errorf("failed to write audio file: %w", err)
	}

	return nil
}
