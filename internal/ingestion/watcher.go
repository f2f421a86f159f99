package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/Benny93/schemadoc-go/internal/storage"
)

// DefaultDebounce is the quiet period after the last change before a run.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions configures WatchSources.
type WatchOptions struct {
	Options

	// Debounce is the quiet period before re-running. Zero uses
	// DefaultDebounce.
	Debounce time.Duration

	// Progress is passed to every pipeline run.
	Progress ProgressCallback
}

// RunFunc receives the outcome of every pipeline run.
type RunFunc func(*PipelineResult, error)

// watchSet decides which filesystem events concern the sources.
type watchSet struct {
	base    string
	extRoot string
	matcher gitignore.Matcher
}

func newWatchSet(base, extensions string) (*watchSet, error) {
	ws := &watchSet{}
	var err error
	if ws.base, err = filepath.Abs(base); err != nil {
		return nil, err
	}
	if extensions == "" {
		return ws, nil
	}
	if ws.extRoot, err = filepath.Abs(extensions); err != nil {
		return nil, err
	}
	info, err := os.Stat(ws.extRoot)
	if errors.Is(err, fs.ErrNotExist) {
		// Watched through its parent until it appears.
		return ws, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return ws, nil
	}

	patterns, err := loadGitignore(ws.extRoot)
	if err != nil {
		return nil, err
	}
	all := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns)+len(patterns))
	for _, p := range defaultIgnorePatterns {
		all = append(all, gitignore.ParsePattern(p, nil))
	}
	ws.matcher = gitignore.NewMatcher(append(all, patterns...))
	return ws, nil
}

// dirs returns the directories to register with the watcher. Files are
// watched through their parent so editors that replace files on save are
// still seen.
func (ws *watchSet) dirs() ([]string, error) {
	dirs := []string{filepath.Dir(ws.base)}
	if ws.extRoot == "" {
		return dirs, nil
	}
	if ws.matcher == nil {
		return append(dirs, filepath.Dir(ws.extRoot)), nil
	}
	err := filepath.WalkDir(ws.extRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != ws.extRoot && shouldSkipDir(d.Name(), path, ws.extRoot, ws.matcher) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

// relevant reports whether a change to path affects the sources.
func (ws *watchSet) relevant(path string) bool {
	if path == ws.base || (ws.matcher == nil && path == ws.extRoot) {
		return true
	}
	if ws.matcher == nil {
		return false
	}
	rel, ok := within(ws.extRoot, path)
	if !ok {
		return false
	}
	if filepath.Base(path) == ".gitignore" {
		return true
	}
	return isSupportedFile(path) && !ws.matcher.Match(splitPath(rel), false)
}

// WatchSources runs the pipeline once, then again after every burst of
// changes to the base file or the extension files. New extension
// directories are picked up as they appear. Blocks until the context is
// cancelled.
func WatchSources(ctx context.Context, opts WatchOptions, store storage.Backend, onRun RunFunc) error {
	if opts.Config == nil {
		return fmt.Errorf("watch: no configuration")
	}
	if err := opts.Config.RequireSources(); err != nil {
		return err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	ws, err := newWatchSet(opts.Config.Base, opts.Config.Extensions)
	if err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dirs, err := ws.dirs()
	if err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	runOnce := func() {
		res, err := RunPipeline(ctx, opts.Options, store, opts.Progress)
		if onRun != nil {
			onRun(res, err)
		}
	}
	runOnce()

	batchTimer := time.NewTimer(debounce)
	batchTimer.Stop()
	changed := 0

	logger.Info("Watching sources", slog.Int("directories", len(dirs)))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && ws.matcher != nil {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && ws.relevantDir(event.Name) {
					if err := watcher.Add(event.Name); err != nil {
						logger.Warn("Failed to watch directory", slog.String("path", event.Name), slog.String("error", err.Error()))
					}
					continue
				}
			}
			if !ws.relevant(event.Name) {
				continue
			}
			logger.Debug("Source changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			changed++
			batchTimer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error", slog.String("error", err.Error()))

		case <-batchTimer.C:
			if changed == 0 {
				continue
			}
			logger.Info("Regenerating", slog.Int("changes", changed))
			changed = 0
			runOnce()
		}
	}
}

func (ws *watchSet) relevantDir(path string) bool {
	if _, ok := within(ws.extRoot, path); !ok {
		return false
	}
	return !shouldSkipDir(filepath.Base(path), path, ws.extRoot, ws.matcher)
}

// within returns path relative to root when path lies strictly below it.
func within(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
