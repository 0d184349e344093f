package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zheng/archscan/internal/engine"
	"github.com/zheng/archscan/internal/logging"
	"github.com/zheng/archscan/internal/storage"
	"github.com/zheng/archscan/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

func newWatcher(t *testing.T, root string, opts ...WatcherOption) (*Watcher, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "watch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	eng := engine.New(engine.WithLogger(logging.Discard()))
	opts = append([]WatcherOption{WithLogger(logging.Discard()), WithDebounceDelay(50 * time.Millisecond)}, opts...)
	w, err := New(root, testutil.ProjectID, db, eng, opts...)
	require.NoError(t, err)
	return w, db
}

func TestWatcherRescansOnChange(t *testing.T) {
	root := testutil.WriteTree(t, testutil.Layered)

	done := make(chan *engine.Report, 4)
	w, db := newWatcher(t, root, WithOnAnalysisDone(func(rep *engine.Report, _ time.Duration) {
		done <- rep
	}))
	w.Start()
	defer w.Stop()

	// stage outside the tree so the watcher only sees the complete file
	staged := filepath.Join(t.TempDir(), "date.ts")
	require.NoError(t, os.WriteFile(staged, []byte("import { format } from './format'\n"), 0o644))
	require.NoError(t, os.Rename(staged, filepath.Join(root, "src", "utils", "date.ts")))

	select {
	case rep := <-done:
		assert.Equal(t, 5, rep.Stats.TotalFiles)
	case <-time.After(10 * time.Second):
		t.Fatal("no analysis after file change")
	}

	n, e, err := db.Counts(testutil.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, int64(5), e)
}

func TestRelevant(t *testing.T) {
	root := testutil.WriteTree(t, testutil.Layered)
	w, _ := newWatcher(t, root)
	defer w.Stop()

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "src", "a.ts"), true},
		{filepath.Join(root, "src", "A.TSX"), true},
		{filepath.Join(root, "README.md"), false},
		{filepath.Join(root, "node_modules", "x", "index.js"), false},
		{filepath.Join(root, "src", ".git", "hook.js"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.relevant(tt.path), tt.path)
	}
}

func TestHandleEventDebounces(t *testing.T) {
	root := testutil.WriteTree(t, testutil.Layered)

	runs := make(chan []string, 4)
	w, _ := newWatcher(t, root,
		WithDebounceDelay(100*time.Millisecond),
		WithOnAnalysisStart(func(files []string) { runs <- files }),
	)

	a := filepath.Join(root, "src", "utils", "format.ts")
	b := filepath.Join(root, "src", "services", "user.ts")
	w.handleEvent(fsnotify.Event{Name: a, Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: b, Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: a, Op: fsnotify.Chmod})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Write})

	select {
	case files := <-runs:
		assert.ElementsMatch(t, []string{a, b}, files)
	case <-time.After(10 * time.Second):
		t.Fatal("debounced analysis never ran")
	}
	require.NoError(t, w.Stop())
	assert.Empty(t, runs)
}

func TestStopCancelsPendingRun(t *testing.T) {
	root := testutil.WriteTree(t, testutil.Layered)
	started := make(chan struct{}, 1)
	w, _ := newWatcher(t, root,
		WithDebounceDelay(time.Hour),
		WithOnAnalysisStart(func([]string) { started <- struct{}{} }),
	)

	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "src", "utils", "format.ts"), Op: fsnotify.Write})
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.Empty(t, started)
}
