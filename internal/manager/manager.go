// Package manager owns the studio's durable state and drives synthesis.
//
// A Manager holds the configuration document loaded from a DocumentStore and
// the non-persisted Session choosing the active voice profile and output
// path. Every mutation rewrites the whole document through the store; when
// that save fails the in-memory change is undone, so a rejected operation
// leaves state exactly as it was.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/core"
	"github.com/book-expert/tts-studio/internal/emotion"
	"github.com/book-expert/tts-studio/internal/store"
	"github.com/book-expert/tts-studio/internal/tts"
	"github.com/book-expert/tts-studio/internal/tts/ttsutils"
)

// Default bounds for the calls that have one.
const (
	DefaultVoicesTimeout = 10 * time.Second
	DefaultPingTimeout   = 5 * time.Second
)

var (
	// ErrDuplicateName is returned when a name is already taken.
	ErrDuplicateName = errors.New("name already exists")
	// ErrNotFound is returned when a named profile or path does not exist.
	ErrNotFound = errors.New("not found")
	// ErrProtectedName is returned for operations that would remove the "default" entry.
	ErrProtectedName = errors.New("the default entry cannot be removed")
	// ErrLastOutputPath is returned when deleting would leave no output path.
	ErrLastOutputPath = errors.New("at least one output path must remain")
	// ErrEmptyName is returned when a profile or path name is empty.
	ErrEmptyName = errors.New("name cannot be empty")
	// ErrProfileNotFound is returned when synthesis names a profile that does not exist.
	ErrProfileNotFound = errors.New("voice profile not found")
	// ErrFilesystem wraps directory, file and document write failures.
	ErrFilesystem = errors.New("filesystem error")
)

// DocumentStore loads and persists the configuration document.
type DocumentStore interface {
	Load() (*core.Document, store.Outcome)
	Save(doc *core.Document) error
}

// SpeechAPI is the remote TTS service.
type SpeechAPI interface {
	ListVoices(ctx context.Context, apiKey string) ([]tts.Voice, error)
	Ping(ctx context.Context, apiKey string) error
	Synthesize(ctx context.Context, apiKey string, req core.SpeechRequest) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// Session is the process-lifetime choice of active profile and output path.
type Session struct {
	Profile    string
	OutputPath string
}

// NewSession returns a session pointing at the default entries.
func NewSession() Session {
	return Session{
		Profile:    core.DefaultName,
		OutputPath: core.DefaultName,
	}
}

// Options tunes a Manager. Zero values select the defaults.
type Options struct {
	VoicesTimeout time.Duration
	PingTimeout   time.Duration
	Clock         func() time.Time
}

// Manager is the single entry point for every core operation.
type Manager struct {
	mu      sync.Mutex
	store   DocumentStore
	api     SpeechAPI
	log     *logger.Logger
	doc     *core.Document
	outcome store.Outcome
	session Session
	opts    Options
}

// New loads the document from docStore and prepares every output directory it names.
func New(docStore DocumentStore, api SpeechAPI, opts Options, log *logger.Logger) *Manager {
	if opts.VoicesTimeout <= 0 {
		opts.VoicesTimeout = DefaultVoicesTimeout
	}

	if opts.PingTimeout <= 0 {
		opts.PingTimeout = DefaultPingTimeout
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	doc, outcome := docStore.Load()

	for name, dir := range doc.OutputPaths {
		err := ttsutils.EnsureDir(dir)
		if err != nil {
			log.Warn("Output path %q unavailable: %v", name, err)
		}
	}

	log.Info("Configuration %s: %d profiles, %d output paths, %d history records",
		outcome, len(doc.VoiceProfiles), len(doc.OutputPaths), len(doc.History))

	return &Manager{
		store:   docStore,
		api:     api,
		log:     log,
		doc:     doc,
		outcome: outcome,
		session: NewSession(),
		opts:    opts,
	}
}

// LoadOutcome reports how the document was obtained at construction.
func (m *Manager) LoadOutcome() store.Outcome {
	return m.outcome
}

// Snapshot returns a deep copy of the current document.
func (m *Manager) Snapshot() *core.Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.doc.Clone()
}

// Session returns the current session.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.session
}

// CurrentProfile returns the name of the active voice profile.
func (m *Manager) CurrentProfile() string {
	return m.Session().Profile
}

// CurrentOutputPath returns the name of the active output path.
func (m *Manager) CurrentOutputPath() string {
	return m.Session().OutputPath
}

// APIKey returns the stored API key; empty means unset.
func (m *Manager) APIKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.doc.APIKey
}

// SetAPIKey stores key and persists it.
func (m *Manager) SetAPIKey(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.doc.APIKey
	m.doc.APIKey = key

	err := m.commit(func() { m.doc.APIKey = previous })
	if err != nil {
		return err
	}

	m.log.Info("API key updated")

	return nil
}

// FormatOptions returns the supported audio formats.
func (m *Manager) FormatOptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.doc.FormatOptions...)
}

// Catalog returns the emotion catalog built from the document's mapping.
func (m *Manager) Catalog() *emotion.Catalog {
	m.mu.Lock()
	defer m.mu.Unlock()

	return emotion.New(m.doc.EmotionMapping)
}

// ListVoices returns the provider's voice catalogue, bounded by the voices timeout.
func (m *Manager) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.VoicesTimeout)
	defer cancel()

	voices, err := m.api.ListVoices(ctx, m.APIKey())
	if err != nil {
		m.log.Error("Failed to list voices: %v", err)

		return nil, fmt.Errorf("failed to list voices: %w", err)
	}

	return voices, nil
}

// TestConnection checks the API is reachable, bounded by the ping timeout.
func (m *Manager) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.PingTimeout)
	defer cancel()

	err := m.api.Ping(ctx, m.APIKey())
	if err != nil {
		m.log.Error("Connectivity check failed: %v", err)

		return fmt.Errorf("failed to reach TTS API: %w", err)
	}

	return nil
}

// commit persists the document. On failure it runs undo and reports ErrFilesystem.
// Callers hold m.mu.
func (m *Manager) commit(undo func()) error {
	err := m.store.Save(m.doc)
	if err != nil {
		undo()
		m.log.Error("Failed to save configuration: %v", err)

		return fmt.Errorf("%w: %w", ErrFilesystem, err)
	}

	return nil
}
