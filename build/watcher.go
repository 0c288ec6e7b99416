package build

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/logger"
)

// sourceSubdirs are watched alongside each project directory when present
var sourceSubdirs = []string{"src"}

// Watcher rebuilds a project after its source files settle.
// Each project has its own debounce timer: every change restarts it, and when it
// fires the project is rebuilt once through the pipeline's pool.
type Watcher struct {
	pipeline *Pipeline
	logger   *zap.SugaredLogger
	fs       *fsnotify.Watcher
	debounce time.Duration
	glob     string

	// OnOutcome receives the outcome of every watch-triggered rebuild
	OnOutcome func(Outcome)

	dirs    map[string]string // watched directory -> project directory
	targets map[string]Target // project directory -> target

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

// NewWatcher watches the source files of targets
func NewWatcher(p *Pipeline, targets []Target, logger *zap.SugaredLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	w := &Watcher{
		pipeline: p,
		logger:   logger,
		fs:       fsw,
		debounce: p.cfg.Debounce,
		glob:     p.cfg.WatchGlob,
		dirs:     make(map[string]string),
		targets:  make(map[string]Target),
		timers:   make(map[string]*time.Timer),
	}

	for _, t := range targets {
		if err := w.add(t); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(t Target) error {
	w.targets[t.Dir] = t

	watch := []string{t.Dir}
	for _, sub := range sourceSubdirs {
		dir := filepath.Join(t.Dir, sub)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			watch = append(watch, dir)
		}
	}

	for _, dir := range watch {
		if err := w.fs.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch %s", dir)
		}
		w.dirs[dir] = t.Dir
	}

	w.logger.Debugw("Watching project", logger.FieldProject, t.Name, logger.FieldCount, len(watch))
	return nil
}

// Watched returns the number of projects being watched
func (w *Watcher) Watched() int {
	return len(w.targets)
}

// Run processes file events until ctx is cancelled. Pending rebuilds are dropped and
// in-flight ones are awaited before it returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.shutdown()

	w.logger.Infow("Watching plugin sources", logger.FieldCount, len(w.targets), "glob", w.glob)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("File watcher error", logger.FieldError, err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !w.matches(event.Name) {
		return
	}

	project, ok := w.dirs[filepath.Dir(event.Name)]
	if !ok {
		return
	}

	w.logger.Debugw("Source changed", "file", event.Name, "op", event.Op.String())
	w.schedule(ctx, project)
}

// matches reports whether the file's base name matches the watch glob
func (w *Watcher) matches(path string) bool {
	if w.glob == "" {
		return true
	}
	ok, err := filepath.Match(w.glob, filepath.Base(path))
	return err == nil && ok
}

// schedule restarts the project's debounce timer
func (w *Watcher) schedule(ctx context.Context, project string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	if timer, ok := w.timers[project]; ok && timer.Stop() {
		w.wg.Done()
	}

	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()

		w.mu.Lock()
		if w.timers[project] == timer {
			delete(w.timers, project)
		}
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.rebuild(ctx, project)
	})
	w.timers[project] = timer
}

func (w *Watcher) rebuild(ctx context.Context, project string) {
	target := w.targets[project]
	manifest := w.pipeline.cfg.Manifest

	if !hasManifest(project, manifest) {
		w.logger.Warnw("Manifest removed, skipping rebuild", logger.FieldProject, target.Name)
		return
	}
	target = newTarget(project, manifest, w.logger)

	outcome := w.pipeline.Build(ctx, target)
	if w.OnOutcome != nil {
		w.OnOutcome(outcome)
	}
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	for project, timer := range w.timers {
		if timer.Stop() {
			w.wg.Done()
		}
		delete(w.timers, project)
	}
	w.mu.Unlock()

	w.wg.Wait()
	if err := w.fs.Close(); err != nil {
		w.logger.Debugw("Failed to close file watcher", logger.FieldError, err)
	}
}
