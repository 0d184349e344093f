package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zheng/archscan/internal/engine"
	"github.com/zheng/archscan/internal/extract"
	"github.com/zheng/archscan/internal/scanner"
	"github.com/zheng/archscan/internal/storage"
)

// Watcher watches for file changes and triggers a full re-scan
type Watcher struct {
	projectPath string
	projectID   string
	db          *storage.DB
	engine      *engine.Engine
	fsWatcher   *fsnotify.Watcher
	logger      *slog.Logger
	extensions  map[string]bool

	// Debouncing
	debounceDelay time.Duration
	pendingFiles  map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer
	stopped       bool

	runMu sync.Mutex // one analysis at a time

	// Callbacks
	onAnalysisStart func(files []string)
	onAnalysisDone  func(rep *engine.Report, duration time.Duration)
	onError         func(error)

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// WatcherOption configures the watcher
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce delay
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithExtensions restricts the watched file extensions
func WithExtensions(exts []string) WatcherOption {
	return func(w *Watcher) {
		w.extensions = make(map[string]bool, len(exts))
		for _, e := range exts {
			w.extensions[strings.ToLower(e)] = true
		}
	}
}

// WithOnAnalysisStart sets the callback for when analysis starts
func WithOnAnalysisStart(fn func(files []string)) WatcherOption {
	return func(w *Watcher) {
		w.onAnalysisStart = fn
	}
}

// WithOnAnalysisDone sets the callback for when analysis completes
func WithOnAnalysisDone(fn func(rep *engine.Report, duration time.Duration)) WatcherOption {
	return func(w *Watcher) {
		w.onAnalysisDone = fn
	}
}

// WithOnError sets the callback for errors
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a new Watcher that re-scans projectPath with eng and saves into db
func New(projectPath, projectID string, db *storage.DB, eng *engine.Engine, opts ...WatcherOption) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		projectPath:   projectPath,
		projectID:     projectID,
		db:            db,
		engine:        eng,
		fsWatcher:     fsWatcher,
		logger:        slog.Default(),
		debounceDelay: 500 * time.Millisecond, // Default debounce
		pendingFiles:  make(map[string]struct{}),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
	WithExtensions(extract.DefaultExtensions)(w)

	for _, opt := range opts {
		opt(w)
	}

	// Add all directories to watch
	if err := w.addDirs(projectPath); err != nil {
		cancel()
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to add directories to watch: %w", err)
	}

	return w, nil
}

// addDirs recursively adds directories under root, skipping denylisted ones
func (w *Watcher) addDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && scanner.IsDenied(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Start begins watching for changes
func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.eventLoop()
	}()
}

// Stop stops the watcher and waits for a running analysis to finish
func (w *Watcher) Stop() error {
	w.pendingMu.Lock()
	if w.stopped {
		w.pendingMu.Unlock()
		return nil
	}
	w.stopped = true
	if w.debounceTimer != nil && w.debounceTimer.Stop() {
		w.wg.Done()
	}
	w.pendingMu.Unlock()

	w.cancel()
	close(w.done)
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

// eventLoop handles file system events
func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Only care about write/create/remove events
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// Handle new directories
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !scanner.IsDenied(info.Name()) {
				if err := w.addDirs(event.Name); err != nil {
					w.reportError(err)
				}
			}
			return
		}
	}

	if !w.relevant(event.Name) {
		return
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.stopped {
		return
	}

	w.pendingFiles[event.Name] = struct{}{}

	// Reset debounce timer; a cancelled run releases its slot
	if w.debounceTimer != nil && w.debounceTimer.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		defer w.wg.Done()
		w.triggerAnalysis()
	})
}

// relevant reports whether a changed path is a source file outside denylisted directories
func (w *Watcher) relevant(path string) bool {
	if !w.extensions[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	rel, err := filepath.Rel(w.projectPath, path)
	if err != nil {
		return false
	}
	dirs := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
	for _, d := range dirs {
		if d != "." && scanner.IsDenied(d) {
			return false
		}
	}
	return true
}

// triggerAnalysis runs the analysis after debounce
func (w *Watcher) triggerAnalysis() {
	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for f := range w.pendingFiles {
		files = append(files, f)
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 {
		return
	}

	if w.onAnalysisStart != nil {
		w.onAnalysisStart(files)
	}

	startTime := time.Now()

	rep, err := w.Analyze()
	if err != nil {
		w.reportError(fmt.Errorf("analysis failed: %w", err))
		return
	}

	if w.onAnalysisDone != nil {
		w.onAnalysisDone(rep, time.Since(startTime))
	}
}

// Analyze runs a full scan and saves it
func (w *Watcher) Analyze() (*engine.Report, error) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	rep, err := w.engine.Run(w.ctx, w.projectID, w.projectPath)
	if err != nil {
		return nil, err
	}
	if err := w.db.SaveReport(rep); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	return rep, nil
}

func (w *Watcher) reportError(err error) {
	if w.onError != nil {
		w.onError(err)
		return
	}
	w.logger.Error("watch", "error", err)
}
