package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"gogvault/internal/fileutil"
	"gogvault/internal/logging"
	"gogvault/internal/services"
)

var (
	// ErrNotFound is returned when the manifest or resume file does not exist.
	ErrNotFound = errors.New("manifest: not found")
	// ErrVersionMismatch is returned when a loaded manifest carries an
	// unsupported schema version.
	ErrVersionMismatch = errors.New("manifest: schema version mismatch")
	// ErrLocked is returned when another process holds the manifest lock.
	ErrLocked = errors.New("manifest: locked by another process")
)

// Store persists the manifest snapshot and the resume checkpoint. Both writes
// are atomic: a temporary file is written and renamed over the target, so a
// crash mid-write never corrupts the previously committed file.
type Store struct {
	path       string
	resumePath string
	lock       *flock.Flock
	logger     *slog.Logger
}

// NewStore creates a store for the given manifest path. The resume checkpoint
// and the lock file live next to the manifest.
func NewStore(manifestPath string, logger *slog.Logger) *Store {
	return &Store{
		path:       manifestPath,
		resumePath: resumePathFor(manifestPath),
		lock:       flock.New(manifestPath + ".lock"),
		logger:     logging.NewComponentLogger(logger, "manifest"),
	}
}

func resumePathFor(manifestPath string) string {
	ext := filepath.Ext(manifestPath)
	base := strings.TrimSuffix(manifestPath, ext)
	if ext == "" {
		ext = ".json"
	}
	return base + ".resume" + ext
}

// Path returns the manifest file location.
func (s *Store) Path() string { return s.path }

// ResumePath returns the resume checkpoint location.
func (s *Store) ResumePath() string { return s.resumePath }

// Acquire takes the single-writer lock. The engine itself assumes one writer
// per manifest; this guard protects against operator error.
func (s *Store) Acquire() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire manifest lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, s.lock.Path())
	}
	return nil
}

// Release drops the single-writer lock.
func (s *Store) Release() {
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release manifest lock", logging.Error(err))
	}
}

// Load reads the manifest snapshot. Returns ErrNotFound when no manifest has
// been saved yet and ErrVersionMismatch when the schema version differs.
func (s *Store) Load() (*Manifest, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, services.Wrap(services.ErrValidation, "manifest", "load", "parse "+s.path, err)
	}
	if m.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: file has version %d, engine expects %d", ErrVersionMismatch, m.Version, SchemaVersion)
	}
	s.logger.Debug("manifest loaded", logging.Int("items", m.Len()))
	return &m, nil
}

// Save writes the manifest snapshot atomically. Persistence failures are
// fatal to a run: the previous committed file stays intact, but progress
// since the last checkpoint cannot be recorded.
func (s *Store) Save(m *Manifest) error {
	m.Version = SchemaVersion
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrFatal, "manifest", "save", "encode", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return services.Wrap(services.ErrFatal, "manifest", "save", s.path, err)
	}
	s.logger.Debug("manifest saved", logging.Int("items", m.Len()))
	return nil
}

// LoadResume reads the resume checkpoint. Version validation is left to the
// resume controller so mismatches can go through the confirmation path.
func (s *Store) LoadResume() (*ResumeState, error) {
	data, err := os.ReadFile(s.resumePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read resume checkpoint: %w", err)
	}
	var state ResumeState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, services.Wrap(services.ErrValidation, "manifest", "load resume", "parse "+s.resumePath, err)
	}
	return &state, nil
}

// SaveResume writes the resume checkpoint atomically.
func (s *Store) SaveResume(state *ResumeState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrFatal, "manifest", "save resume", "encode", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(s.resumePath, data, 0o644); err != nil {
		return services.Wrap(services.ErrFatal, "manifest", "save resume", s.resumePath, err)
	}
	return nil
}

// DeleteResume removes the resume checkpoint. Missing files are not an error.
func (s *Store) DeleteResume() error {
	if err := os.Remove(s.resumePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete resume checkpoint: %w", err)
	}
	return nil
}
