package settings

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileSource persists settings as YAML. Snapshot re-reads the file when its
// modification time changes.
type FileSource struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	current Settings
	modTime time.Time
}

// OpenFile loads path, writing defaults when the file does not exist.
func OpenFile(path string, logger *zap.Logger) (*FileSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fs := &FileSource{path: path, logger: logger, current: Defaults()}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := fs.write(fs.current); err != nil {
			return nil, err
		}
	}
	if err := fs.Reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (f *FileSource) Path() string {
	return f.path
}

// Reload reads the file unconditionally.
func (f *FileSource) Reload() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reloadLocked(true)
}

func (f *FileSource) reloadLocked(force bool) error {
	info, err := os.Stat(f.path)
	if err != nil {
		return errors.Wrap(err, "stat settings file")
	}
	if !force && info.ModTime().Equal(f.modTime) {
		return nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return errors.Wrap(err, "read settings file")
	}

	s := Defaults()
	s.WorkApps = nil
	if err := yaml.Unmarshal(data, &s); err != nil {
		return errors.Wrapf(err, "parse settings file %s", f.path)
	}
	if s.WorkApps == nil {
		s.WorkApps = Defaults().WorkApps
	}

	f.current = normalize(s)
	f.modTime = info.ModTime()
	return nil
}

// Snapshot returns the current settings. A file that fails to parse keeps
// the last good snapshot.
func (f *FileSource) Snapshot() Settings {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.reloadLocked(false); err != nil {
		f.logger.Warn("settings reload failed, keeping previous values", zap.Error(err))
	}
	return clone(f.current)
}

// Update applies fn to the current settings and writes the result.
func (f *FileSource) Update(fn func(*Settings)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.reloadLocked(false); err != nil {
		return err
	}

	next := clone(f.current)
	fn(&next)
	next = normalize(next)

	if err := f.write(next); err != nil {
		return err
	}
	f.current = next
	if info, err := os.Stat(f.path); err == nil {
		f.modTime = info.ModTime()
	}
	return nil
}

func (f *FileSource) write(s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "create settings directory")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "write settings file")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrap(err, "replace settings file")
	}
	return nil
}

func clone(s Settings) Settings {
	s.WorkApps = append([]string(nil), s.WorkApps...)
	return s
}

// MemorySource is an in-memory Source.
type MemorySource struct {
	mu sync.Mutex
	s  Settings
}

// NewMemorySource creates an in-memory Source seeded with s.
func NewMemorySource(s Settings) *MemorySource {
	return &MemorySource{s: normalize(s)}
}

func (m *MemorySource) Snapshot() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.s)
}

func (m *MemorySource) Update(fn func(*Settings)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := clone(m.s)
	fn(&next)
	m.s = normalize(next)
	return nil
}
