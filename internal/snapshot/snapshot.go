// Package snapshot owns the on-disk layout of the backup root: dated
// snapshot directories, the metadata marker that declares one complete, and
// the advisory "latest" symlink.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// MarkerName is the file the dump tool leaves in a finished snapshot
// directory. Its presence is what makes a directory a Snapshot; its
// modification time is the snapshot's age.
const MarkerName = "metadata"

// LatestName is the symlink under the root naming the most recent complete
// snapshot.
const LatestName = "latest"

// Run identifies a single backup execution: the date-derived snapshot
// directory and the matching transcript path.
type Run struct {
	Timestamp time.Time
	BackupDir string
	LogFile   string
}

// NewRun derives the run identity from the clock. Two runs on the same day
// share a snapshot directory, so a rerun overwrites its predecessor.
func NewRun(now time.Time, rootDir, logDir, dirFormat string) Run {
	date := now.Format(dirFormat)
	return Run{
		Timestamp: now,
		BackupDir: filepath.Join(rootDir, date),
		LogFile:   filepath.Join(logDir, date+".log"),
	}
}

// EnsureDirectoryExist creates dirPath and any missing parents. Existing
// directories are fine.
func EnsureDirectoryExist(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", dirPath, err)
	}
	return nil
}

// Prepare creates the directory scaffolding a run needs: the backup root,
// the log directory and both hook directories. Idempotent.
func Prepare(backupDir, logDir string, hookDirs ...string) error {
	dirs := append([]string{filepath.Dir(backupDir), logDir}, hookDirs...)
	for _, dir := range dirs {
		if err := EnsureDirectoryExist(dir); err != nil {
			return err
		}
	}
	return nil
}

// RemoveStale deletes any directory left at backupDir by an interrupted
// earlier run on the same date, so the dump always starts clean.
func RemoveStale(backupDir string) error {
	if err := os.RemoveAll(backupDir); err != nil {
		return fmt.Errorf("remove stale snapshot %q: %w", backupDir, err)
	}
	return nil
}

// PublishLatest repoints the latest symlink at backupDir. Unlink and
// recreate, not atomic: the link is advisory convenience, the dated
// directory is the authoritative record.
func PublishLatest(rootDir, backupDir string) error {
	link := filepath.Join(rootDir, LatestName)
	if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove latest pointer: %w", err)
	}
	if err := os.Symlink(backupDir, link); err != nil {
		return fmt.Errorf("publish latest pointer: %w", err)
	}
	return nil
}

// Snapshot is one complete backup directory found under the root.
type Snapshot struct {
	Dir        string
	MarkerTime time.Time
}

// Scan walks rootDir and returns one Snapshot per metadata marker found, at
// any depth. Partial directories without a marker are invisible here, which
// keeps retention from ever counting them.
func Scan(rootDir string) ([]Snapshot, error) {
	var snaps []Snapshot
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != MarkerName {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		snaps = append(snaps, Snapshot{
			Dir:        filepath.Dir(path),
			MarkerTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan snapshots under %q: %w", rootDir, err)
	}
	return snaps, nil
}

// DirSize sums the sizes of all regular files under dir.
func DirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("size of %q: %w", dir, err)
	}
	return total, nil
}
