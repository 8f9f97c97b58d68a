package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFiles(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"content/cars.json", true},
		{"content/CARS.JSON", true},
		{"content/cars.json~", false},
		{"content/.cars.json.swp", false},
		{"content/notes.md", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, JSONFiles(tt.path), tt.path)
	}
}

func TestNewRejectsNilCallback(t *testing.T) {
	_, err := New([]string{t.TempDir()}, 0, nil, nil)
	assert.Error(t, err)
}

func TestRunFailsWithoutDirectories(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "missing")}, 0, nil, func(Event) {})
	require.NoError(t, err)
	assert.Error(t, w.Run(context.Background()))
}

func TestDebouncedCallback(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int32
	var last atomic.Value
	w, err := New([]string{dir}, 50*time.Millisecond, nil, func(e Event) {
		calls.Add(1)
		last.Store(e.Name)
	})
	require.NoError(t, err)
	w.Filter = JSONFiles

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	target := filepath.Join(dir, "cars.json")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte("[]"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0644))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "a burst of writes should fire once")
	assert.Equal(t, target, last.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCallbacksDoNotOverlap(t *testing.T) {
	var running, maxRunning, calls atomic.Int32
	w, err := New([]string{t.TempDir()}, 10*time.Millisecond, nil, func(Event) {
		n := running.Add(1)
		for {
			m := maxRunning.Load()
			if n <= m || maxRunning.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
		running.Add(-1)
		calls.Add(1)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.watcher.Close() })

	// Second burst arrives while the first callback is still running.
	w.handle(fsnotify.Event{Name: "cars.json", Op: fsnotify.Write})
	require.Eventually(t, func() bool { return running.Load() == 1 }, time.Second, 5*time.Millisecond)
	w.handle(fsnotify.Event{Name: "columns.json", Op: fsnotify.Write})

	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), maxRunning.Load(), "callbacks ran concurrently")
}
