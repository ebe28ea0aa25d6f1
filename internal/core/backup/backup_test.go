package backup

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSession_BackupFileThenRestoreOverwritesWithOriginal(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "app.go")
	if err := os.WriteFile(target, []byte("original"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	mgr := NewManager(root)
	session, err := mgr.Begin("clean")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := session.BackupFile(target); err != nil {
		t.Fatalf("backup file: %v", err)
	}
	if err := os.WriteFile(target, []byte("modified"), 0o644); err != nil {
		t.Fatalf("modify file: %v", err)
	}
	if err := session.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	latest, err := mgr.LatestBackup()
	if err != nil {
		t.Fatalf("latest backup: %v", err)
	}
	if latest != session.Dir() {
		t.Fatalf("expected latest backup %q, got %q", session.Dir(), latest)
	}

	result, err := mgr.Restore(latest)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if result.RestoredCount != 1 || len(result.FailedFiles) != 0 {
		t.Fatalf("expected a clean single-file restore, got %+v", result)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read restored file: %v", err)
	}
	if string(data) != "original" {
		t.Errorf("expected restored content %q, got %q", "original", string(data))
	}
}

func TestSession_RecordCreatedThenRestoreDeletesFile(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "generated.go")
	if err := os.WriteFile(target, []byte("new content"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	mgr := NewManager(root)
	session, err := mgr.Begin("annotate")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	session.RecordCreated(target)
	if err := session.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	result, err := mgr.Restore(session.Dir())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if result.RestoredCount != 1 {
		t.Fatalf("expected 1 restored change, got %+v", result)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("expected the created file to be removed by undo, stat err = %v", err)
	}
}

func TestSession_RecordDeletedThenRestoreRecreatesFile(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "removed.go")
	if err := os.WriteFile(target, []byte("about to be deleted"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	mgr := NewManager(root)
	session, err := mgr.Begin("clean")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := session.RecordDeleted(target); err != nil {
		t.Fatalf("record deleted: %v", err)
	}
	if err := os.Remove(target); err != nil {
		t.Fatalf("remove file: %v", err)
	}
	if err := session.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	result, err := mgr.Restore(session.Dir())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if result.RestoredCount != 1 {
		t.Fatalf("expected 1 restored change, got %+v", result)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("expected the deleted file to be recreated: %v", err)
	}
	if string(data) != "about to be deleted" {
		t.Errorf("expected recreated content %q, got %q", "about to be deleted", string(data))
	}
}

func TestManager_ListBackupsOldestFirst(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root)

	if dirs, err := mgr.ListBackups(); err != nil || len(dirs) != 0 {
		t.Fatalf("expected no backups yet, got dirs=%v err=%v", dirs, err)
	}

	first, err := mgr.Begin("clean")
	if err != nil {
		t.Fatalf("begin first: %v", err)
	}
	if err := first.Commit(); err != nil {
		t.Fatalf("commit first: %v", err)
	}

	dirs, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	if len(dirs) != 1 || dirs[0] != first.Dir() {
		t.Fatalf("expected a single backup dir %q, got %v", first.Dir(), dirs)
	}
}

func TestRestore_ContinuesPastMissingBackupFile(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "app.go")
	if err := os.WriteFile(target, []byte("v1"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	mgr := NewManager(root)
	session, err := mgr.Begin("clean")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := session.BackupFile(target); err != nil {
		t.Fatalf("backup file: %v", err)
	}
	if err := session.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Corrupt the session by deleting the .bak file the manifest points to.
	backupName := session.Manifest().Changes[0].BackupPath
	if err := os.Remove(filepath.Join(session.Dir(), backupName)); err != nil {
		t.Fatalf("remove backup artifact: %v", err)
	}

	result, err := mgr.Restore(session.Dir())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if result.RestoredCount != 0 || len(result.FailedFiles) != 1 {
		t.Fatalf("expected the missing backup to be reported as a failure, got %+v", result)
	}
	if result.FailedFiles[0] != target {
		t.Errorf("expected failed file %q, got %q", target, result.FailedFiles[0])
	}
}
