package manager

import "github.com/book-expert/tts-studio/internal/core"

// History returns every record, oldest first.
func (m *Manager) History() []core.HistoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]core.HistoryRecord{}, m.doc.History...)
}

// RecentHistory returns the last n records, oldest first. Storage is never
// truncated; n <= 0 returns everything.
func (m *Manager) RecentHistory(n int) []core.HistoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.doc.History
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}

	return append([]core.HistoryRecord{}, records...)
}

// AppendHistory adds record to the end of the log and persists it.
func (m *Manager) AppendHistory(record core.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.doc.History
	m.doc.History = append(m.doc.History, record)

	return m.commit(func() { m.doc.History = previous })
}

// ClearHistory empties the log and persists it.
func (m *Manager) ClearHistory() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.doc.History
	m.doc.History = []core.HistoryRecord{}

	err := m.commit(func() { m.doc.History = previous })
	if err != nil {
		return err
	}

	m.log.Info("Cleared %d history records", len(previous))

	return nil
}
