package manager

import (
	"fmt"
	"sort"

	"github.com/book-expert/tts-studio/internal/core"
)

// ProfileUpdate carries the fields to change in EditProfile. Empty fields keep
// the profile's current value.
type ProfileUpdate struct {
	Voice   string
	Emotion string
	Format  string
}

// Profiles returns a copy of every voice profile.
func (m *Manager) Profiles() map[string]core.VoiceProfile {
	m.mu.Lock()
	defer m.mu.Unlock()

	profiles := make(map[string]core.VoiceProfile, len(m.doc.VoiceProfiles))
	for name, profile := range m.doc.VoiceProfiles {
		profiles[name] = profile
	}

	return profiles
}

// Profile returns the named profile.
func (m *Manager) Profile(name string) (core.VoiceProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.doc.VoiceProfiles[name]
	if !ok {
		return core.VoiceProfile{}, fmt.Errorf("profile %q: %w", name, ErrNotFound)
	}

	return profile, nil
}

// ProfileNames returns the profile names, "default" first and the rest sorted.
func (m *Manager) ProfileNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return sortedNames(m.doc.VoiceProfiles)
}

// CreateProfile adds a profile. An empty format means "mp3".
func (m *Manager) CreateProfile(name, voice, emotion, format string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" {
		return ErrEmptyName
	}

	if _, exists := m.doc.VoiceProfiles[name]; exists {
		return fmt.Errorf("profile %q: %w", name, ErrDuplicateName)
	}

	if format == "" {
		format = core.DefaultFormat
	}

	m.doc.VoiceProfiles[name] = core.VoiceProfile{
		Voice:   voice,
		Emotion: emotion,
		Format:  format,
	}

	err := m.commit(func() { delete(m.doc.VoiceProfiles, name) })
	if err != nil {
		return err
	}

	m.log.Info("Created voice profile %q", name)

	return nil
}

// EditProfile replaces the non-empty fields of update on the named profile.
func (m *Manager) EditProfile(name string, update ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous, ok := m.doc.VoiceProfiles[name]
	if !ok {
		return fmt.Errorf("profile %q: %w", name, ErrNotFound)
	}

	edited := previous
	if update.Voice != "" {
		edited.Voice = update.Voice
	}

	if update.Emotion != "" {
		edited.Emotion = update.Emotion
	}

	if update.Format != "" {
		edited.Format = update.Format
	}

	m.doc.VoiceProfiles[name] = edited

	err := m.commit(func() { m.doc.VoiceProfiles[name] = previous })
	if err != nil {
		return err
	}

	m.log.Info("Updated voice profile %q", name)

	return nil
}

// DeleteProfile removes a profile. Deleting the active profile makes "default" active.
func (m *Manager) DeleteProfile(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == core.DefaultName {
		return fmt.Errorf("profile %q: %w", name, ErrProtectedName)
	}

	previous, ok := m.doc.VoiceProfiles[name]
	if !ok {
		return fmt.Errorf("profile %q: %w", name, ErrNotFound)
	}

	delete(m.doc.VoiceProfiles, name)

	err := m.commit(func() { m.doc.VoiceProfiles[name] = previous })
	if err != nil {
		return err
	}

	if m.session.Profile == name {
		m.session.Profile = core.DefaultName
	}

	m.log.Info("Deleted voice profile %q", name)

	return nil
}

// RenameProfile moves a profile to a new name. The session follows the rename.
// "default" cannot be renamed since the registry must always hold it.
func (m *Manager) RenameProfile(oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.doc.VoiceProfiles[oldName]
	if !ok {
		return fmt.Errorf("profile %q: %w", oldName, ErrNotFound)
	}

	if newName == "" {
		return ErrEmptyName
	}

	if _, exists := m.doc.VoiceProfiles[newName]; exists {
		return fmt.Errorf("profile %q: %w", newName, ErrDuplicateName)
	}

	if oldName == core.DefaultName {
		return fmt.Errorf("profile %q: %w", oldName, ErrProtectedName)
	}

	m.doc.VoiceProfiles[newName] = profile
	delete(m.doc.VoiceProfiles, oldName)

	err := m.commit(func() {
		delete(m.doc.VoiceProfiles, newName)
		m.doc.VoiceProfiles[oldName] = profile
	})
	if err != nil {
		return err
	}

	if m.session.Profile == oldName {
		m.session.Profile = newName
	}

	m.log.Info("Renamed voice profile %q to %q", oldName, newName)

	return nil
}

// SelectProfile makes name the active profile for this session.
func (m *Manager) SelectProfile(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.doc.VoiceProfiles[name]; !ok {
		return fmt.Errorf("profile %q: %w", name, ErrNotFound)
	}

	m.session.Profile = name

	return nil
}

func sortedNames[V any](entries map[string]V) []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		if names[i] == core.DefaultName || names[j] == core.DefaultName {
			return names[i] == core.DefaultName
		}

		return names[i] < names[j]
	})

	return names
}
