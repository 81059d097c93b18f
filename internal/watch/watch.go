// Package watch re-runs the pipeline whenever an OBJ tile lands in a
// directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"demclean/internal/pipeline"
)

// Processor cleans one OBJ file. *pipeline.Runner implements it.
type Processor interface {
	ProcessFile(ctx context.Context, in, out string) (*pipeline.Report, error)
}

// Stats tracks watcher activity
type Stats struct {
	FilesCreated   int
	FilesModified  int
	FilesProcessed int
	FilesFailed    int
	Errors         int
	LastEventTime  time.Time
	LastEventPath  string
	LastRunID      string
}

// Watcher processes *.obj files created or rewritten in an input directory
// into an output directory once they have been quiet for the debounce
// interval
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	proc        Processor
	logger      *zap.Logger
	inputDir    string
	outputDir   string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	tick        time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stats       Stats
}

// New creates a watcher. The output directory must differ from the input
// directory.
func New(inputDir, outputDir string, debounce time.Duration, proc Processor, logger *zap.Logger) (*Watcher, error) {
	in, err := filepath.Abs(inputDir)
	if err != nil {
		return nil, fmt.Errorf("invalid input directory '%s': %w", inputDir, err)
	}
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("invalid output directory '%s': %w", outputDir, err)
	}
	if in == out {
		return nil, errors.New("input and output directories must differ")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	tick := debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	return &Watcher{
		watcher:     fw,
		proc:        proc,
		logger:      logger,
		inputDir:    in,
		outputDir:   out,
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		tick:        tick,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching the input directory. It does not block. After a
// failed Start the watcher must still be released with Close.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	err := os.MkdirAll(w.outputDir, 0755)
	if err != nil {
		err = fmt.Errorf("failed to create output directory: %w", err)
	} else if err = w.watcher.Add(w.inputDir); err != nil {
		err = fmt.Errorf("failed to watch %s: %w", w.inputDir, err)
	}
	if err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.logger.Info("Watching for OBJ tiles", zap.String("input", w.inputDir), zap.String("output", w.outputDir))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit. A file being
// processed is finished first.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("Error closing watcher", zap.Error(err))
	}
	w.logger.Info("Watcher stopped")
}

// Close releases the underlying notifier of a watcher that is not running
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("watcher is running, use Stop")
	}
	return w.watcher.Close()
}

// Done is closed when the event loop exits
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// Stats returns a copy of the activity counters
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

func isTile(path string) bool {
	base := filepath.Base(path)
	return strings.EqualFold(filepath.Ext(base), ".obj") && !strings.HasPrefix(base, ".")
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !isTile(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case event.Op&fsnotify.Create != 0:
		w.stats.FilesCreated++
	case event.Op&fsnotify.Write != 0:
		w.stats.FilesModified++
	default:
		return
	}
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	w.debounceMap[event.Name] = time.Now()
}

func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			ready = append(ready, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, path)
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		w.logger.Debug("File vanished before processing", zap.String("file", path))
		return
	}

	out := filepath.Join(w.outputDir, filepath.Base(path))
	report, err := w.proc.ProcessFile(ctx, path, out)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.stats.FilesFailed++
		w.logger.Error("Failed to process file", zap.String("file", filepath.Base(path)), zap.Error(err))
		return
	}
	w.stats.FilesProcessed++
	w.stats.LastRunID = report.RunID
	w.logger.Info("Processed file",
		zap.String("file", filepath.Base(path)),
		zap.String("run_id", report.RunID),
		zap.Int("objects", len(report.Objects)))
}
