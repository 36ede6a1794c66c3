package manager

import (
	"fmt"

	"github.com/book-expert/tts-studio/internal/core"
	"github.com/book-expert/tts-studio/internal/tts/ttsutils"
)

// fallbackOutputDir is used when the active output path has no entry.
const fallbackOutputDir = "."

// OutputPaths returns a copy of the named output directories.
func (m *Manager) OutputPaths() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make(map[string]string, len(m.doc.OutputPaths))
	for name, dir := range m.doc.OutputPaths {
		paths[name] = dir
	}

	return paths
}

// OutputPathNames returns the output path names, "default" first and the rest sorted.
func (m *Manager) OutputPathNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return sortedNames(m.doc.OutputPaths)
}

// OutputDir returns the directory of the active output path, or the working
// directory when that name has no entry.
func (m *Manager) OutputDir() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.outputDirLocked()
}

// AddOutputPath registers dir under name, creating the directory first.
func (m *Manager) AddOutputPath(name, dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" {
		return ErrEmptyName
	}

	if _, exists := m.doc.OutputPaths[name]; exists {
		return fmt.Errorf("output path %q: %w", name, ErrDuplicateName)
	}

	err := ttsutils.EnsureDir(dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFilesystem, err)
	}

	m.doc.OutputPaths[name] = dir

	err = m.commit(func() { delete(m.doc.OutputPaths, name) })
	if err != nil {
		return err
	}

	m.log.Info("Added output path %q -> %s", name, dir)

	return nil
}

// DeleteOutputPath removes a named output path. Deleting the active path makes
// "default" active.
func (m *Manager) DeleteOutputPath(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == core.DefaultName {
		return fmt.Errorf("output path %q: %w", name, ErrProtectedName)
	}

	previous, ok := m.doc.OutputPaths[name]
	if !ok {
		return fmt.Errorf("output path %q: %w", name, ErrNotFound)
	}

	if len(m.doc.OutputPaths) <= 1 {
		return ErrLastOutputPath
	}

	delete(m.doc.OutputPaths, name)

	err := m.commit(func() { m.doc.OutputPaths[name] = previous })
	if err != nil {
		return err
	}

	if m.session.OutputPath == name {
		m.session.OutputPath = core.DefaultName
	}

	m.log.Info("Deleted output path %q", name)

	return nil
}

// SelectOutputPath makes name the active output path for this session.
func (m *Manager) SelectOutputPath(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.doc.OutputPaths[name]; !ok {
		return fmt.Errorf("output path %q: %w", name, ErrNotFound)
	}

	m.session.OutputPath = name

	return nil
}

func (m *Manager) outputDirLocked() string {
	dir, ok := m.doc.OutputPaths[m.session.OutputPath]
	if !ok {
		return fallbackOutputDir
	}

	return dir
}
