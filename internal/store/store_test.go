package store_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/core"
	"github.com/book-expert/tts-studio/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*store.JSONStore, string, string) {
	t.Helper()

	dir := t.TempDir()
	outputDir := filepath.Join(dir, "output")
	statePath := filepath.Join(dir, "state", "tts_config.json")

	testLogger, err := logger.New(dir, "store-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = testLogger.Close() })

	defaults := func() *core.Document { return store.DefaultDocument(outputDir) }

	return store.NewJSONStore(statePath, defaults, testLogger), statePath, outputDir
}

func writeState(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	jsonStore, _, outputDir := newTestStore(t)

	doc, outcome := jsonStore.Load()

	assert.Equal(t, store.DefaultedMissing, outcome)
	assert.Empty(t, doc.APIKey)
	assert.Equal(t, store.DefaultProfile(), doc.VoiceProfiles[core.DefaultName])
	assert.Equal(t, outputDir, doc.OutputPaths[core.DefaultName])
	assert.Len(t, doc.EmotionMapping, 40)
	assert.Equal(t, []string{"mp3", "wav", "ogg"}, doc.FormatOptions)
	assert.Empty(t, doc.History)
}

func TestLoad_CorruptFileDegradesToDefaults(t *testing.T) {
	t.Parallel()

	jsonStore, statePath, _ := newTestStore(t)
	writeState(t, statePath, "{not json")

	doc, outcome := jsonStore.Load()

	assert.Equal(t, store.DefaultedFromError, outcome)
	assert.Contains(t, doc.VoiceProfiles, core.DefaultName)
}

func TestLoad_WrongShapeDegradesToDefaults(t *testing.T) {
	t.Parallel()

	jsonStore, statePath, _ := newTestStore(t)
	writeState(t, statePath, `{"voices": ["not", "a", "map"]}`)

	_, outcome := jsonStore.Load()

	assert.Equal(t, store.DefaultedFromError, outcome)
}

func TestLoad_MissingHistoryIsMigrated(t *testing.T) {
	t.Parallel()

	jsonStore, statePath, _ := newTestStore(t)
	writeState(t, statePath, `{
  "api_key": "secret",
  "voices": {"default": {"voice": "v-1", "emotion": "sad", "format": "wav"}},
  "output_paths": {"default": "/tmp/out"},
  "emotion_mapping": {"sad": "悲伤"},
  "format_options": ["wav"]
}`)

	doc, outcome := jsonStore.Load()

	assert.Equal(t, store.LoadedWithDefaults, outcome)
	require.NotNil(t, doc.History)
	assert.Empty(t, doc.History)
	assert.Equal(t, "secret", doc.APIKey)
	assert.Equal(t, map[string]string{"sad": "悲伤"}, doc.EmotionMapping, "existing sections are never overwritten")
	assert.Equal(t, []string{"wav"}, doc.FormatOptions)
}

func TestLoad_OldDocumentGetsEverySection(t *testing.T) {
	t.Parallel()

	jsonStore, statePath, outputDir := newTestStore(t)
	writeState(t, statePath, `{
  "api_key": "k",
  "voices": {
    "default": {"voice": "v-1", "amotion": "calm", "format": "mp3"},
    "narrator": {"voice": "v-2", "amotion": null, "format": "ogg"}
  }
}`)

	doc, outcome := jsonStore.Load()

	assert.Equal(t, store.LoadedWithDefaults, outcome)
	assert.Equal(t, outputDir, doc.OutputPaths[core.DefaultName])
	assert.Len(t, doc.EmotionMapping, 40)
	assert.Equal(t, []string{"mp3", "wav", "ogg"}, doc.FormatOptions)
	assert.Equal(t, "calm", doc.VoiceProfiles[core.DefaultName].Emotion, "legacy emotion key is read")
	assert.Empty(t, doc.VoiceProfiles["narrator"].Emotion)
}

func TestLoad_DefaultEntriesRestored(t *testing.T) {
	t.Parallel()

	jsonStore, statePath, _ := newTestStore(t)
	writeState(t, statePath, `{
  "api_key": "",
  "voices": {"other": {"voice": "v", "format": "mp3"}},
  "output_paths": {"music": "/tmp/music"},
  "emotion_mapping": {},
  "format_options": [],
  "history": []
}`)

	doc, outcome := jsonStore.Load()

	assert.Equal(t, store.LoadedWithDefaults, outcome)
	assert.Contains(t, doc.VoiceProfiles, core.DefaultName)
	assert.Contains(t, doc.VoiceProfiles, "other")
	assert.Contains(t, doc.OutputPaths, core.DefaultName)
	assert.Equal(t, "/tmp/music", doc.OutputPaths["music"])
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	jsonStore, statePath, outputDir := newTestStore(t)

	doc, _ := jsonStore.Load()
	doc.APIKey = "abc"
	doc.VoiceProfiles["narrator"] = core.VoiceProfile{Voice: "voice-123", Emotion: "cheerful", Format: "wav"}
	doc.OutputPaths["podcasts"] = filepath.Join(outputDir, "podcasts")
	doc.History = append(doc.History, core.HistoryRecord{
		Text:        "你好",
		ProfileName: "narrator",
		Emotion:     "cheerful",
		Timestamp:   "2024-01-01T12:00:00",
		Filename:    "/x/你好_20240101120000.wav",
	})

	require.NoError(t, jsonStore.Save(doc))

	reloaded, outcome := jsonStore.Load()
	assert.Equal(t, store.Loaded, outcome)
	assert.Equal(t, doc, reloaded)

	info, err := os.Stat(filepath.Join(outputDir, "podcasts"))
	require.NoError(t, err, "save creates every output directory")
	assert.True(t, info.IsDir())

	entries, err := os.ReadDir(filepath.Dir(statePath))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left beside the document")
}

func TestSave_WritesDocumentKeys(t *testing.T) {
	t.Parallel()

	jsonStore, statePath, _ := newTestStore(t)

	doc, _ := jsonStore.Load()
	require.NoError(t, jsonStore.Save(doc))

	data, err := os.ReadFile(statePath)
	require.NoError(t, err)

	var sections map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &sections))

	for _, key := range []string{"api_key", "voices", "output_paths", "emotion_mapping", "format_options", "history"} {
		assert.Contains(t, sections, key)
	}

	assert.JSONEq(t, `[]`, string(sections["history"]))
}

func TestSave_FailureLeavesPreviousDocument(t *testing.T) {
	t.Parallel()

	jsonStore, statePath, outputDir := newTestStore(t)

	doc, _ := jsonStore.Load()
	require.NoError(t, jsonStore.Save(doc))

	before, err := os.ReadFile(statePath)
	require.NoError(t, err)

	blocker := filepath.Join(outputDir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0o600))

	doc.OutputPaths["bad"] = filepath.Join(blocker, "child")
	doc.APIKey = "changed"

	require.Error(t, jsonStore.Save(doc))

	after, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "loaded", store.Loaded.String())
	assert.Equal(t, "loaded with defaults", store.LoadedWithDefaults.String())
	assert.Equal(t, "defaulted (no file)", store.DefaultedMissing.String())
	assert.Equal(t, "defaulted (unreadable file)", store.DefaultedFromError.String())
}
