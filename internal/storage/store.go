package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diewo77/energy-bills/internal/errs"
)

// retention is how long an orphaned temp file may linger before a sweep
// removes it. Anything younger is assumed to belong to an in-flight attempt.
const retention = time.Hour

// sanitizer strips path-hostile characters out of the reference month before
// it becomes part of an archive filename.
var sanitizer = strings.NewReplacer(
	`\`, "-", "/", "-", ":", "-", "*", "-",
	"?", "-", `"`, "-", "<", "-", ">", "-", "|", "-",
)

// FileStore owns the filesystem namespace under a single root directory:
// a temp/ staging area for not-yet-validated uploads and one archive
// subdirectory per client for committed bills.
type FileStore struct {
	root   string
	logger *slog.Logger
}

func NewFileStore(root string, logger *slog.Logger) *FileStore {
	return &FileStore{root: root, logger: logger}
}

// Root returns the storage root directory.
func (s *FileStore) Root() string {
	return s.root
}

// StagingDir returns the temp area for uploads awaiting commit.
func (s *FileStore) StagingDir() string {
	return filepath.Join(s.root, "temp")
}

// EnsureStagingArea guarantees the staging directory exists.
func (s *FileStore) EnsureStagingArea() error {
	dir := s.StagingDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.FileOperation(errs.OpSave, dir, err)
	}
	return nil
}

// Stage writes content to a uniquely named file under the staging area and
// returns its path. The timestamp plus random suffix keeps concurrent
// uploads of the same original name from colliding.
func (s *FileStore) Stage(content []byte, originalName string) (string, error) {
	if err := s.EnsureStagingArea(); err != nil {
		return "", err
	}
	name := fmt.Sprintf("temp-%d-%s-%s",
		time.Now().UnixMilli(), uuid.NewString()[:8], filepath.Base(originalName))
	path := filepath.Join(s.StagingDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", errs.FileOperation(errs.OpSave, path, err)
	}
	return path, nil
}

// Commit moves a staged file into the client's archive directory under its
// durable name `<base>-<sanitizedReferenceMonth><ext>` and returns that
// name. This is the single transition from temporary to durable, so it must
// only run after extraction and validation have passed.
func (s *FileStore) Commit(stagedPath, clientNumber, referenceMonth, originalName string) (string, error) {
	if _, err := os.Stat(stagedPath); err != nil {
		return "", errs.FileOperation(errs.OpMove, stagedPath, err)
	}

	ext := filepath.Ext(originalName)
	base := strings.TrimSuffix(filepath.Base(originalName), ext)
	storedName := base + "-" + sanitizer.Replace(referenceMonth) + ext

	clientDir := filepath.Join(s.root, clientNumber)
	if err := os.MkdirAll(clientDir, 0o755); err != nil {
		return "", errs.FileOperation(errs.OpMove, clientDir, err)
	}
	if err := os.Rename(stagedPath, filepath.Join(clientDir, storedName)); err != nil {
		return "", errs.FileOperation(errs.OpMove, clientDir, err)
	}
	return storedName, nil
}

// Discard removes one staged file. It is the per-attempt cleanup an
// ingestion runs on its own staged path when the attempt does not commit.
func (s *FileStore) Discard(stagedPath string) {
	if stagedPath == "" {
		return
	}
	if err := os.Remove(stagedPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to discard staged file", "path", stagedPath, "error", err)
	}
}

// SweepExpired deletes staging entries older than the retention window,
// left behind by crashed or interrupted runs. A failure to delete one entry
// is logged and the sweep continues with the rest.
func (s *FileStore) SweepExpired() error {
	dir := s.StagingDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.FileOperation(errs.OpDelete, dir, err)
	}

	now := time.Now()
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= retention {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("failed to sweep stale temp file", "path", path, "error", err)
		}
	}
	return nil
}

// Resolve maps a stored relative path (`clientNumber/storedName`) back to
// an absolute path under the storage root.
func (s *FileStore) Resolve(relPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(relPath))
}
