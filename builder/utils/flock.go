package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LockFileName is created inside the output directory while a build runs.
const LockFileName = ".marque-build.lock"

// ErrBuildInProgress is returned when another process holds the build lock.
var ErrBuildInProgress = errors.New("another build is in progress")

type FileLock struct {
	file *os.File
	path string
}

// AcquireBuildLock takes a non-blocking exclusive lock on outputDir.
func AcquireBuildLock(outputDir string) (*FileLock, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	lockPath := filepath.Join(outputDir, LockFileName)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}

	if err := tryLock(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w (lock file: %s)", ErrBuildInProgress, lockPath)
	}

	stamp := fmt.Sprintf("%d\n%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	_ = f.Truncate(0)
	_, _ = f.WriteAt([]byte(stamp), 0)

	return &FileLock{file: f, path: lockPath}, nil
}

// Release unlocks and removes the lock file. Safe to call twice.
func (l *FileLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = unlock(l.file)
	err := l.file.Close()
	l.file = nil
	_ = os.Remove(l.path)
	return err
}
