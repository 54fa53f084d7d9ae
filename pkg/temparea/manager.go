// Package temparea owns the scratch directory that clipboard-bound downloads are written into.
// The directory is purged when the service starts and when it shuts down cleanly; anything
// found there at startup is either an undelivered artifact or garbage from a crash.
package temparea

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/stashdrop/stashdrop/pkg/domain"
	"github.com/stashdrop/stashdrop/pkg/logging"
	"github.com/stashdrop/stashdrop/pkg/messages"
)

// DirName is the well-known directory name under the OS temp root.
const DirName = "stashdrop-clipboard"

// DefaultDir returns <os temp root>/stashdrop-clipboard.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), DirName)
}

// Manager purges the temp area and names files inside it. Purge must not run while a transfer
// is writing into the directory; the launcher sequences that.
type Manager struct {
	fs     afero.Fs
	dir    string
	logger *logging.Logger
	tokens *tokenSource
}

// NewManager creates a manager for dir. An empty dir selects DefaultDir.
func NewManager(fs afero.Fs, dir string, logger *logging.Logger) *Manager {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Manager{
		fs:     fs,
		dir:    dir,
		logger: logger,
		tokens: &tokenSource{now: time.Now},
	}
}

// Dir is the managed directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Purge empties the directory, creating it when it does not exist. Entries that cannot be
// removed are logged and skipped; only a directory that cannot be created or listed is an error.
func (m *Manager) Purge() error {
	exists, err := afero.DirExists(m.fs, m.dir)
	if err != nil {
		return fmt.Errorf("failed to stat temp area %s: %w", m.dir, err)
	}
	if !exists {
		if err := m.fs.MkdirAll(m.dir, 0o700); err != nil {
			return fmt.Errorf("failed to create temp area %s: %w", m.dir, err)
		}
		m.logger.Debug(messages.MsgTempAreaCreated, "dir", m.dir)
		return nil
	}

	entries, err := afero.ReadDir(m.fs, m.dir)
	if err != nil {
		return fmt.Errorf("failed to list temp area %s: %w", m.dir, err)
	}

	removed := 0
	for _, entry := range entries {
		p := filepath.Join(m.dir, entry.Name())
		if err := m.fs.RemoveAll(p); err != nil {
			m.logger.Warn(messages.MsgTempEntryPurgeError, "path", p, "error", err)
			continue
		}
		removed++
	}
	m.logger.Debug(messages.MsgTempAreaPurged, "dir", m.dir, "removed", removed, "failed", len(entries)-removed)
	return nil
}

// SanitizedDestination returns a collision-free path inside the temp area for filename.
func (m *Manager) SanitizedDestination(filename string) string {
	return filepath.Join(m.dir, uniqueName(filename, m.tokens.next()))
}

// Destination wraps SanitizedDestination as a managed-temp destination.
func (m *Manager) Destination(filename string) domain.Destination {
	return domain.ManagedTempPath(m.SanitizedDestination(filename))
}
