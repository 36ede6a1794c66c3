package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/core"
	"github.com/book-expert/tts-studio/internal/manager"
	"github.com/book-expert/tts-studio/internal/store"
	"github.com/book-expert/tts-studio/internal/tts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// harness runs commands against a state file and a fake TTS API that outlive
// single invocations, the way separate runs of the binary share them.
type harness struct {
	dir       string
	statePath string
	outputDir string
	serverURL string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/v1/voices", func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("x-api-key") != "secret" {
			writer.WriteHeader(http.StatusUnauthorized)

			return
		}

		_, _ = writer.Write([]byte(`{"data":{"voices":[{"id":"v-1","name":"Alice"},{"voice_id":"v-2","name":"Bob"}]}}`))
	})
	mux.HandleFunc("/v1/text-to-speech", func(writer http.ResponseWriter, _ *http.Request) {
		_, _ = writer.Write([]byte(`{"downloadUrl":"` + server.URL + `/files/out"}`))
	})
	mux.HandleFunc("/files/out", func(writer http.ResponseWriter, _ *http.Request) {
		_, _ = writer.Write([]byte("audio-bytes"))
	})

	dir := t.TempDir()

	return &harness{
		dir:       dir,
		statePath: filepath.Join(dir, "tts_config.json"),
		outputDir: filepath.Join(dir, "output"),
		serverURL: server.URL,
	}
}

func (h *harness) open() (*studio, error) {
	log, err := logger.New(h.dir, "cli-test.log")
	if err != nil {
		return nil, err
	}

	docStore := store.NewJSONStore(h.statePath, func() *core.Document {
		return store.DefaultDocument(h.outputDir)
	}, log)

	studioManager := manager.New(docStore, tts.NewClient(h.serverURL, log), manager.Options{
		Clock: func() time.Time { return fixedNow },
	}, log)

	return &studio{
		manager: studioManager,
		close:   func() { _ = log.Close() },
	}, nil
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	c := newCLI(h.open)
	c.root.SetOut(&out)
	c.root.SetErr(&out)

	err := c.execute(args)

	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()

	out, err := h.run(t, args...)
	require.NoError(t, err, "tts-studio %v", args)

	return out
}

func TestProfileCommands_PersistAcrossInvocations(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	h.mustRun(t, "profile", "create", "narrator", "--voice", "v-1", "--emotion", "开心", "--format", "wav")

	out := h.mustRun(t, "profile", "list")
	assert.Contains(t, out, "* default")
	assert.Contains(t, out, "narrator: v-1")
	assert.Contains(t, out, "开心")
	assert.Contains(t, out, "wav")

	state, err := os.ReadFile(h.statePath)
	require.NoError(t, err)
	assert.Contains(t, string(state), `"emotion": "cheerful"`, "labels are stored as tags")

	h.mustRun(t, "profile", "edit", "narrator", "--emotion", "sad")
	h.mustRun(t, "profile", "rename", "narrator", "storyteller")

	out = h.mustRun(t, "profile", "use", "storyteller")
	assert.Contains(t, out, "悲伤")
	assert.Contains(t, out, "v-1")

	h.mustRun(t, "profile", "delete", "storyteller")

	out = h.mustRun(t, "profile", "list")
	assert.NotContains(t, out, "storyteller")
}

func TestProfileCommands_Errors(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := h.run(t, "profile", "create", "narrator")
	require.Error(t, err, "voice is required")
	assert.Contains(t, err.Error(), flagVoice)

	h.mustRun(t, "profile", "create", "narrator", "--voice", "v-1")

	_, err = h.run(t, "profile", "create", "narrator", "--voice", "v-2")
	require.ErrorIs(t, err, manager.ErrDuplicateName)

	_, err = h.run(t, "profile", "delete", core.DefaultName)
	require.ErrorIs(t, err, manager.ErrProtectedName)

	_, err = h.run(t, "profile", "use", "ghost")
	require.ErrorIs(t, err, manager.ErrNotFound)
}

func TestSpeak_WritesAudioAndHistory(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	h.mustRun(t, "key", "set", "secret")
	h.mustRun(t, "profile", "create", "narrator", "--voice", "v-1", "--format", "wav")

	out := h.mustRun(t, "speak", "--profile", "narrator", "Hello", "world")
	assert.Contains(t, out, "Audio saved")

	expected := filepath.Join(h.outputDir, "Hello_world_20240101120000.wav")
	written, err := os.ReadFile(expected)
	require.NoError(t, err)
	assert.Equal(t, []byte("audio-bytes"), written)

	out = h.mustRun(t, "history")
	assert.Contains(t, out, "Hello world")
	assert.Contains(t, out, "narrator")
	assert.Contains(t, out, expected)
	assert.Contains(t, out, noEmotion)

	h.mustRun(t, "history", "clear")

	out = h.mustRun(t, "history")
	assert.Contains(t, out, msgNoHistory)

	_, err = os.Stat(expected)
	assert.NoError(t, err, "clearing history keeps audio files")
}

func TestSpeak_UnknownSessionFlags(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := h.run(t, "speak", "--profile", "ghost", "text")
	require.ErrorIs(t, err, manager.ErrNotFound)

	_, err = h.run(t, "speak", "--path", "ghost", "text")
	require.ErrorIs(t, err, manager.ErrNotFound)

	entries, err := os.ReadDir(h.outputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPathCommands(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	speeches := filepath.Join(h.dir, "speeches")

	h.mustRun(t, "path", "add", "speeches", speeches)

	info, err := os.Stat(speeches)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	out := h.mustRun(t, "path", "list")
	assert.Contains(t, out, "* default: "+h.outputDir)
	assert.Contains(t, out, "speeches: "+speeches)

	out = h.mustRun(t, "path", "use", "speeches")
	assert.Contains(t, out, speeches)

	h.mustRun(t, "speak", "--path", "speeches", "hi")
	_, err = os.Stat(filepath.Join(speeches, "hi_20240101120000.mp3"))
	require.NoError(t, err)

	_, err = h.run(t, "path", "delete", core.DefaultName)
	require.ErrorIs(t, err, manager.ErrProtectedName)

	h.mustRun(t, "path", "delete", "speeches")

	_, err = os.Stat(speeches)
	assert.NoError(t, err, "deleting a path keeps the directory")
}

func TestHistory_LastLimitsOutput(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	h.mustRun(t, "speak", "first")
	h.mustRun(t, "speak", "second")

	out := h.mustRun(t, "history", "--last", "1")
	assert.NotContains(t, out, "first")
	assert.Contains(t, out, "second")
}

func TestVoicesAndPing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := h.run(t, "ping")
	require.Error(t, err, "the fake API rejects a missing key")

	h.mustRun(t, "key", "set", "secret")

	out := h.mustRun(t, "ping")
	assert.Contains(t, out, "reachable")

	out = h.mustRun(t, "voices")
	assert.Contains(t, out, "2 voices")
	assert.Contains(t, out, "v-1")
	assert.Contains(t, out, "v-2")
	assert.Contains(t, out, "Bob")

	out = h.mustRun(t, "key", "show")
	assert.Contains(t, out, "**cret")
}

func TestEmotionsAndFilename(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	out := h.mustRun(t, "emotions")
	assert.Contains(t, out, "开心")
	assert.Contains(t, out, "advertisement-upbeat")

	out = h.mustRun(t, "filename", "--format", "ogg")
	assert.Contains(t, out, "tts_audio_20240101120000.ogg")

	out = h.mustRun(t, "filename", "Hello,", "世界!!!")
	assert.Contains(t, out, "Hello__世界____20240101120000.mp3")
}

func TestMaskKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
		want string
	}{
		{name: "unset", key: "", want: "(not set)"},
		{name: "short", key: "abc", want: "***"},
		{name: "long", key: "sk-123456", want: "*****3456"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.want, maskKey(testCase.key))
		})
	}
}
