// Package core defines the domain types and collaborator interfaces for the TTS studio.
package core

import (
	"context"
	"encoding/json"
)

// DefaultName is the reserved entry present in every voice profile and output path registry.
const DefaultName = "default"

// DefaultFormat is used whenever a profile does not name an audio format.
const DefaultFormat = "mp3"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// Synthesizer turns text into a saved audio file using a named voice profile.
// An empty profile name selects the session's current profile.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, profileName string) (*SynthesisResult, error)
}

// VoiceProfile is a named bundle of provider voice id, emotion tag and audio format.
type VoiceProfile struct {
	Voice   string `json:"voice"`
	Emotion string `json:"emotion,omitempty"`
	Format  string `json:"format"`
}

// EffectiveFormat returns the profile's format, or DefaultFormat when unset.
func (p VoiceProfile) EffectiveFormat() string {
	if p.Format == "" {
		return DefaultFormat
	}

	return p.Format
}

// UnmarshalJSON accepts the legacy "amotion" key written by older versions.
func (p *VoiceProfile) UnmarshalJSON(data []byte) error {
	var raw struct {
		Voice   string  `json:"voice"`
		Emotion *string `json:"emotion"`
		Amotion *string `json:"amotion"`
		Format  string  `json:"format"`
	}

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	p.Voice = raw.Voice
	p.Format = raw.Format
	p.Emotion = firstSet(raw.Emotion, raw.Amotion)

	return nil
}

// HistoryRecord describes one completed synthesis. Records are never modified once appended.
type HistoryRecord struct {
	Text        string `json:"text"`
	ProfileName string `json:"profile_name"`
	Emotion     string `json:"emotion,omitempty"`
	Timestamp   string `json:"timestamp"`
	Filename    string `json:"filename"`
}

// UnmarshalJSON accepts the legacy "amotion" key written by older versions.
func (r *HistoryRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text        string  `json:"text"`
		ProfileName string  `json:"profile_name"`
		Emotion     *string `json:"emotion"`
		Amotion     *string `json:"amotion"`
		Timestamp   string  `json:"timestamp"`
		Filename    string  `json:"filename"`
	}

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	*r = HistoryRecord{
		Text:        raw.Text,
		ProfileName: raw.ProfileName,
		Emotion:     firstSet(raw.Emotion, raw.Amotion),
		Timestamp:   raw.Timestamp,
		Filename:    raw.Filename,
	}

	return nil
}

// Document is the durable configuration aggregate, persisted as a single JSON file.
type Document struct {
	APIKey         string                  `json:"api_key"`
	VoiceProfiles  map[string]VoiceProfile `json:"voices"`
	OutputPaths    map[string]string       `json:"output_paths"`
	EmotionMapping map[string]string       `json:"emotion_mapping"`
	FormatOptions  []string                `json:"format_options"`
	History        []HistoryRecord         `json:"history"`
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	clone := &Document{
		APIKey:         d.APIKey,
		VoiceProfiles:  make(map[string]VoiceProfile, len(d.VoiceProfiles)),
		OutputPaths:    make(map[string]string, len(d.OutputPaths)),
		EmotionMapping: make(map[string]string, len(d.EmotionMapping)),
		FormatOptions:  append([]string(nil), d.FormatOptions...),
		History:        append([]HistoryRecord{}, d.History...),
	}

	for name, profile := range d.VoiceProfiles {
		clone.VoiceProfiles[name] = profile
	}

	for name, dir := range d.OutputPaths {
		clone.OutputPaths[name] = dir
	}

	for tag, label := range d.EmotionMapping {
		clone.EmotionMapping[tag] = label
	}

	return clone
}

// SpeechRequest is the payload sent to the remote synthesis endpoint.
type SpeechRequest struct {
	Voice   string `json:"voice"`
	Emotion string `json:"emotion,omitempty"`
	Format  string `json:"format"`
	Speech  string `json:"speech"`
}

// SynthesisResult reports a completed synthesis.
type SynthesisResult struct {
	Path        string
	ProfileName string
	Format      string
	Size        int
	Record      HistoryRecord
}

func firstSet(values ...*string) string {
	for _, value := range values {
		if value != nil {
			return *value
		}
	}

	return ""
}
