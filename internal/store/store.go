// Package store persists the studio's configuration document as a single JSON file.
//
// Loading never fails: an absent, unreadable or corrupt file degrades to the
// default document, and a document written by an older version has its
// missing sections filled from the defaults. Saving replaces the whole file
// through a temporary sibling so a failed write never leaves it truncated.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/core"
	"github.com/book-expert/tts-studio/internal/emotion"
	"github.com/book-expert/tts-studio/internal/tts/ttsutils"
)

// Outcome tells how Load produced its document.
type Outcome int

const (
	// Loaded means the persisted document was used as is.
	Loaded Outcome = iota
	// LoadedWithDefaults means missing sections were filled from the defaults.
	LoadedWithDefaults
	// DefaultedMissing means no document was persisted yet.
	DefaultedMissing
	// DefaultedFromError means the persisted document was unreadable and was ignored.
	DefaultedFromError
)

// Default document values.
const (
	defaultVoiceID = "12c9881d-54cc-4e5d-93b6-eb30aed94d9d-54660"
	defaultEmotion = "friendly"
	filePermission = 0o600
	tempPattern    = ".tts-config-*.tmp"
	jsonIndent     = "  "
)

// Section keys checked during migration.
const (
	keyVoices         = "voices"
	keyOutputPaths    = "output_paths"
	keyEmotionMapping = "emotion_mapping"
	keyFormatOptions  = "format_options"
	keyHistory        = "history"
)

func (o Outcome) String() string {
	switch o {
	case Loaded:
		return "loaded"
	case LoadedWithDefaults:
		return "loaded with defaults"
	case DefaultedMissing:
		return "defaulted (no file)"
	case DefaultedFromError:
		return "defaulted (unreadable file)"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// DefaultDocument returns a fresh default document whose "default" output
// path points at outputDir.
func DefaultDocument(outputDir string) *core.Document {
	return &core.Document{
		APIKey: "",
		VoiceProfiles: map[string]core.VoiceProfile{
			core.DefaultName: DefaultProfile(),
		},
		OutputPaths: map[string]string{
			core.DefaultName: outputDir,
		},
		EmotionMapping: emotion.DefaultMapping(),
		FormatOptions:  ttsutils.SupportedAudioFormats(),
		History:        []core.HistoryRecord{},
	}
}

// DefaultProfile is the profile seeded under the "default" name.
func DefaultProfile() core.VoiceProfile {
	return core.VoiceProfile{
		Voice:   defaultVoiceID,
		Emotion: defaultEmotion,
		Format:  core.DefaultFormat,
	}
}

// JSONStore reads and writes the configuration document at a fixed path.
type JSONStore struct {
	path     string
	defaults func() *core.Document
	log      *logger.Logger
}

// NewJSONStore creates a store for the document at path. defaults supplies a
// fresh default document on every call.
func NewJSONStore(path string, defaults func() *core.Document, log *logger.Logger) *JSONStore {
	return &JSONStore{
		path:     path,
		defaults: defaults,
		log:      log,
	}
}

// Path returns the location of the persisted document.
func (s *JSONStore) Path() string {
	return s.path
}

// Load returns the persisted document, or a default one. It never fails.
func (s *JSONStore) Load() (*core.Document, Outcome) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.defaults(), DefaultedMissing
	}

	if err != nil {
		s.log.Warn("Config %s unreadable, using defaults: %v", s.path, err)

		return s.defaults(), DefaultedFromError
	}

	doc, filled, err := s.decode(data)
	if err != nil {
		s.log.Warn("Config %s corrupt, using defaults: %v", s.path, err)

		return s.defaults(), DefaultedFromError
	}

	if filled {
		s.log.Info("Config %s migrated: missing sections filled from defaults", s.path)

		return doc, LoadedWithDefaults
	}

	return doc, Loaded
}

// Save creates every output directory the document names, then replaces the
// persisted document.
func (s *JSONStore) Save(doc *core.Document) error {
	for name, dir := range doc.OutputPaths {
		err := ttsutils.EnsureDir(dir)
		if err != nil {
			return fmt.Errorf("output path %q: %w", name, err)
		}
	}

	data, err := json.MarshalIndent(doc, "", jsonIndent)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return writeFileAtomic(s.path, data)
}

// decode parses data and fills the sections an older version did not write.
func (s *JSONStore) decode(data []byte) (*core.Document, bool, error) {
	var sections map[string]json.RawMessage

	err := json.Unmarshal(data, &sections)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var doc core.Document

	err = json.Unmarshal(data, &doc)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	defaults := s.defaults()
	filled := false

	missing := func(key string) bool {
		raw, ok := sections[key]

		return !ok || string(raw) == "null"
	}

	if missing(keyVoices) {
		doc.VoiceProfiles = defaults.VoiceProfiles
		filled = true
	}

	if missing(keyOutputPaths) {
		doc.OutputPaths = defaults.OutputPaths
		filled = true
	}

	if missing(keyEmotionMapping) {
		doc.EmotionMapping = defaults.EmotionMapping
		filled = true
	}

	if missing(keyFormatOptions) {
		doc.FormatOptions = defaults.FormatOptions
		filled = true
	}

	if missing(keyHistory) {
		doc.History = []core.HistoryRecord{}
		filled = true
	}

	if _, ok := doc.VoiceProfiles[core.DefaultName]; !ok {
		doc.VoiceProfiles[core.DefaultName] = defaults.VoiceProfiles[core.DefaultName]
		filled = true
	}

	if _, ok := doc.OutputPaths[core.DefaultName]; !ok {
		doc.OutputPaths[core.DefaultName] = defaults.OutputPaths[core.DefaultName]
		filled = true
	}

	return &doc, filled, nil
}

// writeFileAtomic writes data to a temporary file beside path and renames it
// over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	err := ttsutils.EnsureDir(dir)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}

	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()

	err = errors.Join(writeErr, closeErr)
	if err == nil {
		err = os.Chmod(tmpName, filePermission)
	}

	if err == nil {
		err = os.Rename(tmpName, path)
	}

	if err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("failed to write config %s: %w", path, err)
	}

	return nil
}
