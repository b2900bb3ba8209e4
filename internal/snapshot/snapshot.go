// Package snapshot keeps point-in-time copies of the generated manifest tree
// so a bad generation can be rolled back.
package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/cameronsjo/stackgen/internal/fileutil"
)

const (
	// Prefix is the prefix of snapshot directory names.
	Prefix = "snapshot-"
	// PreRollbackPrefix marks the backup taken right before a restore.
	PreRollbackPrefix = "pre-rollback-"
	// DateFormat is the timestamp format of snapshot names. Nanoseconds keep
	// two snapshots in the same second apart.
	DateFormat = "20060102-150405.000000000"
	// MaxSnapshots is the number of snapshots retained.
	MaxSnapshots = 20
	// MinFreeDiskBytes is the headroom required on top of the copy size.
	MinFreeDiskBytes = 100 * 1024 * 1024
)

// ErrNotFound indicates an unknown snapshot name.
var ErrNotFound = errors.New("snapshot not found")

// Info describes one snapshot.
type Info struct {
	Name      string
	Path      string
	Created   time.Time
	FileCount int
}

// Store manages snapshots of OutputDir kept under StateDir/snapshots.
type Store struct {
	StateDir  string
	OutputDir string
}

// New returns a Store for outputDir with state under stateDir.
func New(stateDir, outputDir string) *Store {
	return &Store{StateDir: stateDir, OutputDir: outputDir}
}

// Dir returns the directory holding the snapshots.
func (s *Store) Dir() string {
	return filepath.Join(s.StateDir, "snapshots")
}

// Create copies the output tree into a new snapshot. It returns an empty
// name when there is nothing to snapshot.
func (s *Store) Create() (string, error) {
	if !dirHasContent(s.OutputDir) {
		return "", nil
	}

	size, err := dirSize(s.OutputDir)
	if err != nil {
		return "", fmt.Errorf("calculate output size: %w", err)
	}

	if err := os.MkdirAll(s.Dir(), 0755); err != nil {
		return "", fmt.Errorf("create snapshots directory: %w", err)
	}
	if err := checkDiskSpace(s.Dir(), size+MinFreeDiskBytes); err != nil {
		return "", fmt.Errorf("insufficient disk space for snapshot: %w", err)
	}

	name := Prefix + time.Now().Format(DateFormat)
	path := filepath.Join(s.Dir(), name)

	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}
	if err := fileutil.CopyDir(s.OutputDir, path); err != nil {
		if cleanupErr := os.RemoveAll(path); cleanupErr != nil {
			return "", fmt.Errorf("copy output to snapshot: %w (cleanup also failed: %v)", err, cleanupErr)
		}
		return "", fmt.Errorf("copy output to snapshot: %w", err)
	}

	if err := s.Cleanup(); err != nil {
		slog.Warn("failed to clean up old snapshots", "error", err)
	}

	return name, nil
}

// List returns the snapshots newest first.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.Dir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshots directory: %w", err)
	}

	var snapshots []Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		var stamp string
		switch {
		case strings.HasPrefix(entry.Name(), Prefix):
			stamp = strings.TrimPrefix(entry.Name(), Prefix)
		case strings.HasPrefix(entry.Name(), PreRollbackPrefix):
			stamp = strings.TrimPrefix(entry.Name(), PreRollbackPrefix)
		default:
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			slog.Warn("cannot read snapshot", "snapshot", entry.Name(), "error", err)
			continue
		}

		created, err := time.ParseInLocation(DateFormat, stamp, time.Local)
		if err != nil {
			created = fi.ModTime()
		}

		path := filepath.Join(s.Dir(), entry.Name())
		snapshots = append(snapshots, Info{
			Name:      entry.Name(),
			Path:      path,
			Created:   created,
			FileCount: countFiles(path),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Created.After(snapshots[j].Created)
	})

	return snapshots, nil
}

// Restore replaces the output tree with the named snapshot. The current
// output is backed up first, and the swap goes through a temp directory and
// renames so a failure never leaves a half restored tree.
func (s *Store) Restore(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	snapPath := filepath.Join(s.Dir(), name)
	if _, err := os.Stat(snapPath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	size, err := dirSize(snapPath)
	if err != nil {
		return fmt.Errorf("calculate snapshot size: %w", err)
	}
	parent := filepath.Dir(s.OutputDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("create output parent: %w", err)
	}
	if err := checkDiskSpace(parent, size+MinFreeDiskBytes); err != nil {
		return fmt.Errorf("insufficient disk space for restore: %w", err)
	}

	if dirHasContent(s.OutputDir) {
		backupPath := filepath.Join(s.Dir(), PreRollbackPrefix+time.Now().Format(DateFormat))
		if err := os.MkdirAll(backupPath, 0755); err != nil {
			return fmt.Errorf("create backup directory: %w", err)
		}
		if err := fileutil.CopyDir(s.OutputDir, backupPath); err != nil {
			os.RemoveAll(backupPath)
			return fmt.Errorf("create pre-rollback backup: %w", err)
		}
	}

	id := uuid.New().String()[:8]
	tempDir := s.OutputDir + ".restore-temp-" + id
	oldDir := s.OutputDir + ".restore-old-" + id

	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return fmt.Errorf("create temp restore directory: %w", err)
	}
	if err := fileutil.CopyDir(snapPath, tempDir); err != nil {
		os.RemoveAll(tempDir)
		return fmt.Errorf("copy snapshot to temp: %w", err)
	}

	_, statErr := os.Stat(s.OutputDir)
	outputExists := statErr == nil

	if outputExists {
		if err := os.Rename(s.OutputDir, oldDir); err != nil {
			os.RemoveAll(tempDir)
			return fmt.Errorf("rename current output: %w", err)
		}
	}

	if err := os.Rename(tempDir, s.OutputDir); err != nil {
		if outputExists {
			if recoverErr := os.Rename(oldDir, s.OutputDir); recoverErr != nil {
				os.RemoveAll(tempDir)
				return fmt.Errorf("rename temp to output: %w (recovery also failed: %v)", err, recoverErr)
			}
		}
		os.RemoveAll(tempDir)
		return fmt.Errorf("rename temp to output: %w", err)
	}

	if outputExists {
		os.RemoveAll(oldDir)
	}

	return nil
}

// Cleanup removes snapshots beyond MaxSnapshots, oldest first. It keeps
// going past individual failures and reports them together.
func (s *Store) Cleanup() error {
	snapshots, err := s.List()
	if err != nil {
		return err
	}
	if len(snapshots) <= MaxSnapshots {
		return nil
	}

	var errs []error
	for _, snap := range snapshots[MaxSnapshots:] {
		if err := removeWithRetry(snap.Path, 3); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", snap.Name, err))
		}
	}

	return errors.Join(errs...)
}

// Files lists the manifests in the output tree relative to it.
func (s *Store) Files() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.OutputDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(d.Name()); ext == ".yaml" || ext == ".yml" {
			rel, err := filepath.Rel(s.OutputDir, path)
			if err != nil {
				return err
			}
			files = append(files, rel)
		}
		return nil
	})
	return files, err
}

func dirHasContent(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

func countFiles(dir string) int {
	count := 0
	_ = filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			count++
		}
		return nil
	})
	return count
}

func checkDiskSpace(dir string, requiredBytes int64) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("check disk space: %w", err)
	}

	available := int64(stat.Bavail) * int64(stat.Bsize)
	if available < requiredBytes {
		return fmt.Errorf("need %d bytes, only %d available", requiredBytes, available)
	}
	return nil
}

func dirSize(dir string) (int64, error) {
	var size int64
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			size += info.Size()
		}
		return nil
	})
	return size, err
}

func removeWithRetry(path string, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := os.RemoveAll(path); err != nil {
			lastErr = err
			time.Sleep(time.Duration(10*(1<<i)) * time.Millisecond)
			continue
		}
		return nil
	}
	return lastErr
}
