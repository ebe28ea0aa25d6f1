// Package backup implements the apply/undo machinery behind `clean` and
// `annotate`: before any file on disk is touched, the previous content (or
// the fact that the file did not previously exist) is recorded in a
// timestamped backup directory under .index-chan/backups, so the change can
// be rolled back exactly.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	cherrors "indexchan/internal/core/errors"
)

// ChangeType records what happened to a file under a single operation.
type ChangeType string

const (
	Modified ChangeType = "modified"
	Created  ChangeType = "created"
	Deleted  ChangeType = "deleted"
)

// FileChange is one entry in a Manifest.
type FileChange struct {
	ChangeType ChangeType `json:"change_type"`
	Path       string     `json:"path"`
	BackupPath string     `json:"backup_path,omitempty"`
}

// Manifest records every file change made by a single operation (a `clean`
// or `annotate` run), so Manager.Restore can undo it as a unit.
type Manifest struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Operation string       `json:"operation"`
	Changes   []FileChange `json:"changes"`
}

func newManifest(operation string) *Manifest {
	return &Manifest{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Operation: operation,
	}
}

// AddChange appends a change record. backupPath is empty for a Created
// change, since there is nothing to restore to on undo beyond deleting it.
func (m *Manifest) AddChange(changeType ChangeType, path, backupPath string) {
	m.Changes = append(m.Changes, FileChange{
		ChangeType: changeType,
		Path:       path,
		BackupPath: backupPath,
	})
}

func (m *Manifest) save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return cherrors.Wrap(err, cherrors.CodeIO, "serialize backup manifest")
	}
	manifestPath := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return cherrors.Wrap(err, cherrors.CodeIO, "write backup manifest")
	}
	return nil
}

func loadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, cherrors.Wrap(err, cherrors.CodeIO, "read backup manifest")
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, cherrors.Wrap(err, cherrors.CodeIO, "parse backup manifest")
	}
	return &m, nil
}

// Manager creates and restores backups rooted at <projectRoot>/.index-chan/backups.
type Manager struct {
	backupRoot string
}

func NewManager(projectRoot string) *Manager {
	return &Manager{backupRoot: filepath.Join(projectRoot, ".index-chan", "backups")}
}

// Session is an in-progress operation: a backup directory plus the manifest
// being built up as files are touched. Call Commit to persist the manifest
// once every change has been recorded.
type Session struct {
	dir      string
	manifest *Manifest
}

// Begin creates a new timestamped backup directory and returns a Session
// for recording changes as the caller makes them.
func (mgr *Manager) Begin(operation string) (*Session, error) {
	timestamp := time.Now().UTC().Format("20060102_150405")
	dir := filepath.Join(mgr.backupRoot, timestamp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, cherrors.Wrap(err, cherrors.CodeIO, "create backup directory")
	}
	return &Session{dir: dir, manifest: newManifest(operation)}, nil
}

// Dir returns the backup directory path for this session.
func (s *Session) Dir() string { return s.dir }

// BackupFile copies filePath's current content into the session's backup
// directory and records a Modified change. Call before overwriting a file.
func (s *Session) BackupFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return cherrors.Wrap(err, cherrors.CodeIO, fmt.Sprintf("read file for backup: %s", filePath))
	}
	backupName := filepath.Base(filePath) + ".bak"
	if err := os.WriteFile(filepath.Join(s.dir, backupName), data, 0o644); err != nil {
		return cherrors.Wrap(err, cherrors.CodeIO, "write file backup")
	}
	s.manifest.AddChange(Modified, filePath, backupName)
	return nil
}

// RecordCreated records that filePath was newly created by this operation;
// undo deletes it.
func (s *Session) RecordCreated(filePath string) {
	s.manifest.AddChange(Created, filePath, "")
}

// RecordDeleted backs up filePath before the caller deletes it, so undo can
// restore it.
func (s *Session) RecordDeleted(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return cherrors.Wrap(err, cherrors.CodeIO, "read file before delete")
	}
	backupName := filepath.Base(filePath) + ".bak"
	if err := os.WriteFile(filepath.Join(s.dir, backupName), data, 0o644); err != nil {
		return cherrors.Wrap(err, cherrors.CodeIO, "write file backup")
	}
	s.manifest.AddChange(Deleted, filePath, backupName)
	return nil
}

// Commit persists the session's manifest to disk.
func (s *Session) Commit() error {
	return s.manifest.save(s.dir)
}

// Manifest exposes the in-progress manifest, mainly for dry-run previews.
func (s *Session) Manifest() *Manifest { return s.manifest }

// LatestBackup returns the most recent backup directory, or "" if none exist.
func (mgr *Manager) LatestBackup() (string, error) {
	dirs, err := mgr.ListBackups()
	if err != nil {
		return "", err
	}
	if len(dirs) == 0 {
		return "", nil
	}
	return dirs[len(dirs)-1], nil
}

// ListBackups returns all backup directories, oldest first.
func (mgr *Manager) ListBackups() ([]string, error) {
	entries, err := os.ReadDir(mgr.backupRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cherrors.Wrap(err, cherrors.CodeIO, "list backup directory")
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(mgr.backupRoot, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// RestoreResult summarizes an undo operation.
type RestoreResult struct {
	RestoredCount int
	FailedFiles   []string
	Manifest      *Manifest
}

// Restore undoes every change recorded in the manifest at backupDir. It
// continues past per-file failures, collecting them into FailedFiles rather
// than aborting the whole rollback.
func (mgr *Manager) Restore(backupDir string) (*RestoreResult, error) {
	manifest, err := loadManifest(backupDir)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{Manifest: manifest}
	for _, change := range manifest.Changes {
		if err := restoreChange(change, backupDir); err != nil {
			result.FailedFiles = append(result.FailedFiles, change.Path)
			continue
		}
		result.RestoredCount++
	}
	return result, nil
}

func restoreChange(change FileChange, backupDir string) error {
	switch change.ChangeType {
	case Modified, Deleted:
		if change.BackupPath == "" {
			return fmt.Errorf("change for %s has no backup path", change.Path)
		}
		data, err := os.ReadFile(filepath.Join(backupDir, change.BackupPath))
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(change.Path), 0o755); err != nil {
			return err
		}
		return os.WriteFile(change.Path, data, 0o644)
	case Created:
		if _, err := os.Stat(change.Path); err == nil {
			return os.Remove(change.Path)
		}
		return nil
	default:
		return fmt.Errorf("unknown change type %q", change.ChangeType)
	}
}
