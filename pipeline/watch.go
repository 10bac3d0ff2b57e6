package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/stbgraph/source"
	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for more changes.
const DefaultDebounce = 500 * time.Millisecond

// ChangeOp indicates the type of file operation.
type ChangeOp string

// ChangeCreate, ChangeModify, and ChangeDelete enumerate the change types.
const (
	ChangeCreate ChangeOp = "create"
	ChangeModify ChangeOp = "modify"
	ChangeDelete ChangeOp = "delete"
)

// Change is one changed input file.
type Change struct {
	Path      string
	Operation ChangeOp
}

// Watcher reports content changes of the files matching a set of paths or
// doublestar patterns. Changes are debounced and delivered in batches;
// rewrites that leave the content unchanged are not reported.
type Watcher struct {
	patterns []string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// Debouncing: collect changes before processing
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Hash-based change detection
	hashMu sync.RWMutex
	hashes map[string]string

	// Output channel. A batch waiting to be read already triggers the next
	// run, so later batches are merged into it.
	changes chan []Change

	coalesced atomic.Int64
}

// NewWatcher creates a watcher for patterns. Relative patterns are resolved
// against the working directory.
func NewWatcher(patterns []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if len(patterns) == 0 {
		return nil, errors.New("nothing to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs := make([]string, 0, len(patterns))
	for _, p := range patterns {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve %s", p)
		}
		abs = append(abs, a)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}

	return &Watcher{
		patterns: abs,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		changes:  make(chan []Change, 1),
	}, nil
}

// Changes returns the channel of change batches. It is closed when the
// watcher stops.
func (w *Watcher) Changes() <-chan []Change {
	return w.changes
}

// Start records the current content of the watched files and begins
// watching their directories.
func (w *Watcher) Start(ctx context.Context) error {
	for _, pattern := range w.patterns {
		if err := w.addWatches(pattern); err != nil {
			return err
		}
		w.seed(pattern)
	}

	go w.processEvents(ctx)

	w.logger.Info("Watching inputs",
		"patterns", w.patterns,
		"debounce", w.debounce)
	return nil
}

// Stop stops the watcher.
// The changes channel is closed by processEvents when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// SetHash records the content hash of a file.
func (w *Watcher) SetHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

// GetHash returns the recorded content hash of a file.
func (w *Watcher) GetHash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	hash, ok := w.hashes[path]
	return hash, ok
}

// Coalesced returns how many batches were merged into a batch not yet read.
func (w *Watcher) Coalesced() int64 {
	return w.coalesced.Load()
}

// watchRoot returns the directory to watch for pattern.
func watchRoot(pattern string) string {
	if !source.ContainsGlob(pattern) {
		return filepath.Dir(pattern)
	}
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	return filepath.FromSlash(base)
}

// addWatches watches the directory of pattern, and every directory below it
// when the pattern spans directories.
func (w *Watcher) addWatches(pattern string) error {
	root := watchRoot(pattern)
	if !strings.Contains(pattern, "**") {
		if err := w.watcher.Add(root); err != nil {
			return errors.WithHint(
				errors.Wrapf(err, "watch %s", root),
				"the directory of every watched input must exist")
		}
		w.logger.Debug("Watching directory", "path", root)
		return nil
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "watch %s", path)
		}
		if !d.IsDir() {
			return nil
		}
		// Skip hidden directories
		if base := filepath.Base(path); strings.HasPrefix(base, ".") && path != root {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

// seed records the hashes of the files currently matching pattern.
func (w *Watcher) seed(pattern string) {
	paths, err := source.Resolve(pattern)
	if err != nil {
		return
	}
	for _, path := range paths {
		if hash, err := fileHash(path); err == nil {
			w.SetHash(path, hash)
		}
	}
}

func (w *Watcher) matches(path string) bool {
	for _, pattern := range w.patterns {
		if source.Matches(pattern, path) {
			return true
		}
	}
	return false
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.changes) // Close changes channel when goroutine exits
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.handleFSEvent(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-timer.C:
			w.flushPending(ctx)
		}
	}
}

// handleFSEvent records an event on a watched file. It reports whether the
// event was kept.
func (w *Watcher) handleFSEvent(event fsnotify.Event) bool {
	path := filepath.Clean(event.Name)

	if !w.matches(path) {
		// But handle directory creation (for new watches)
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return false
	}

	// Accumulate pending changes
	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Input change detected",
		"path", path,
		"op", event.Op.String())
	return true
}

// handleNewDirectory adds a watch to a new directory below a recursive pattern.
func (w *Watcher) handleNewDirectory(path string) {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}
	for _, pattern := range w.patterns {
		if !strings.Contains(pattern, "**") {
			continue
		}
		root := watchRoot(pattern)
		if rel, err := filepath.Rel(root, path); err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch new directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Added watch for new directory", "path", path)
		}
		return
	}
}

// flushPending turns accumulated events into a change batch.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}

	// Copy and clear pending
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	var batch []Change
	for path, op := range toProcess {
		select {
		case <-ctx.Done():
			return
		default:
		}

		newHash, err := fileHash(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				w.logger.Warn("Failed to read file for hash check",
					"path", path,
					"error", err)
				continue
			}
			// File deleted or renamed away
			w.hashMu.Lock()
			_, had := w.hashes[path]
			delete(w.hashes, path)
			w.hashMu.Unlock()
			if had {
				batch = append(batch, Change{Path: path, Operation: ChangeDelete})
			}
			continue
		}

		// Check if content actually changed
		oldHash, hadHash := w.GetHash(path)
		if hadHash && oldHash == newHash {
			continue
		}
		w.SetHash(path, newHash)

		c := Change{Path: path, Operation: ChangeModify}
		if op.Has(fsnotify.Create) || !hadHash {
			c.Operation = ChangeCreate
		}
		batch = append(batch, c)
	}

	if len(batch) > 0 {
		w.send(batch)
	}
}

// send delivers batch, merging it into a batch that was not read yet.
func (w *Watcher) send(batch []Change) {
	for {
		select {
		case w.changes <- batch:
			w.logger.Debug("Sent change batch", "changes", len(batch))
			return
		default:
		}

		select {
		case queued := <-w.changes:
			batch = append(queued, batch...)
			w.coalesced.Add(1)
		default:
		}
	}
}

// fileHash returns the hex SHA-256 of the file content.
func fileHash(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}
