// This file implements the BackgroundWorker for off-thread snapshot loading.
package ui

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/menuadmin/pkg/analysis"
	"github.com/vanderheijden86/menuadmin/pkg/menuapi"
	"github.com/vanderheijden86/menuadmin/pkg/model"
	"github.com/vanderheijden86/menuadmin/pkg/watcher"
)

// WorkerState represents the current state of the background worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for a trigger.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means the worker is loading a new snapshot.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerProcessing:
		return "processing"
	case WorkerStopped:
		return "stopped"
	default:
		return fmt.Sprintf("WorkerState(%d)", int(s))
	}
}

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string    // "load", "analyze"
	Cause   error     // The underlying error
	Time    time.Time // When the error occurred
	Retries int       // Consecutive failures including this one
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// DataSnapshot is an immutable view of the menus at one point in time.
type DataSnapshot struct {
	Forest       []model.MenuNode
	Stats        analysis.Stats
	DataHash     string
	LoadedAt     time.Time
	LoadDuration time.Duration
}

// BackgroundWorker loads snapshots off the UI thread. Refreshes come from
// TriggerRefresh, a poll ticker, or a file watcher on the SQLite database.
type BackgroundWorker struct {
	// Configuration
	svc          menuapi.Service
	pollInterval time.Duration
	loadTimeout  time.Duration

	// State
	mu       sync.RWMutex
	state    WorkerState
	dirty    bool // True if a trigger came in while processing
	snapshot *DataSnapshot
	started  bool
	lastHash string

	// Error tracking
	lastError  *WorkerError
	errorCount int

	// Components
	watcher *watcher.Watcher
	program *tea.Program

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// WorkerConfig configures the BackgroundWorker.
type WorkerConfig struct {
	Service menuapi.Service
	// WatchPath, when set, refreshes whenever that file changes.
	WatchPath     string
	DebounceDelay time.Duration
	// PollInterval, when positive, refreshes periodically.
	PollInterval time.Duration
	// LoadTimeout bounds each List call. Defaults to 30s.
	LoadTimeout time.Duration
	Program     *tea.Program
}

// NewBackgroundWorker creates a new background worker.
func NewBackgroundWorker(cfg WorkerConfig) (*BackgroundWorker, error) {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = 200 * time.Millisecond
	}
	if cfg.LoadTimeout == 0 {
		cfg.LoadTimeout = 30 * time.Second
	}

	w := &BackgroundWorker{
		svc:          cfg.Service,
		pollInterval: cfg.PollInterval,
		loadTimeout:  cfg.LoadTimeout,
		program:      cfg.Program,
		state:        WorkerIdle,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	if cfg.WatchPath != "" {
		fw, err := watcher.NewWatcher(cfg.WatchPath,
			watcher.WithDebounceDuration(cfg.DebounceDelay),
		)
		if err != nil {
			cancel()
			return nil, err
		}
		w.watcher = fw
	}

	return w, nil
}

// SetProgram attaches the program that receives snapshot messages. It must
// be called before Start.
func (w *BackgroundWorker) SetProgram(p *tea.Program) {
	w.mu.Lock()
	w.program = p
	w.mu.Unlock()
}

// Start begins watching and polling. It is idempotent.
func (w *BackgroundWorker) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	if w.watcher == nil && w.pollInterval <= 0 {
		// Nothing to wait on; close done so Stop() doesn't block
		close(w.done)
		return nil
	}

	if w.watcher != nil {
		if err := w.watcher.Start(); err != nil {
			close(w.done)
			return err
		}
	}
	go w.processLoop()
	return nil
}

// Stop halts the background worker and cleans up resources.
// Stop is idempotent.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()

	if w.watcher != nil {
		w.watcher.Stop()
	}

	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
		}
	}
}

// TriggerRefresh asynchronously reloads the data. A trigger during a load
// schedules one more load afterwards.
func (w *BackgroundWorker) TriggerRefresh() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if w.state == WorkerProcessing {
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	go w.process()
}

// RefreshCmd wraps TriggerRefresh for use in Update.
func (w *BackgroundWorker) RefreshCmd() tea.Cmd {
	return func() tea.Msg {
		w.TriggerRefresh()
		return nil
	}
}

// GetSnapshot returns the current snapshot (may be nil).
func (w *BackgroundWorker) GetSnapshot() *DataSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// State returns the current worker state.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *BackgroundWorker) processLoop() {
	defer close(w.done)

	var changed <-chan struct{}
	if w.watcher != nil {
		changed = w.watcher.Changed()
	}
	var tick <-chan time.Time
	if w.pollInterval > 0 {
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-changed:
			w.process()
		case <-tick:
			w.process()
		}
	}
}

// process loads a new snapshot.
func (w *BackgroundWorker) process() {
	w.mu.Lock()
	if w.state != WorkerIdle {
		if w.state == WorkerProcessing {
			w.dirty = true
		}
		w.mu.Unlock()
		return
	}
	w.state = WorkerProcessing
	w.dirty = false
	w.mu.Unlock()

	snapshot := w.buildSnapshot()

	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if snapshot != nil {
		w.snapshot = snapshot
	}
	wasDirty := w.dirty
	w.state = WorkerIdle
	program := w.program
	w.mu.Unlock()

	if program != nil && snapshot != nil {
		program.Send(SnapshotReadyMsg{Snapshot: snapshot})
	}

	if wasDirty {
		go w.process()
	}
}

// safeCompute executes fn and recovers from any panics.
func (w *BackgroundWorker) safeCompute(phase string, fn func() error) *WorkerError {
	var result *WorkerError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &WorkerError{
					Phase: phase,
					Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &WorkerError{
				Phase: phase,
				Cause: err,
				Time:  time.Now(),
			}
		}
	}()
	return result
}

// recordError tracks an error and updates error state.
func (w *BackgroundWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	w.lastError = err
	if err != nil {
		w.errorCount++
		err.Retries = w.errorCount
	} else {
		w.errorCount = 0
	}
	w.mu.Unlock()
}

// LastError returns the most recent error (nil if last operation succeeded).
func (w *BackgroundWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

func (w *BackgroundWorker) reportError(err *WorkerError) {
	w.recordError(err)
	w.mu.RLock()
	program := w.program
	w.mu.RUnlock()
	if program != nil {
		program.Send(SnapshotErrorMsg{Err: err, Recoverable: true})
	}
}

// buildSnapshot lists the menus and constructs a new DataSnapshot.
// Returns nil if there is no service, loading fails, or content is unchanged.
func (w *BackgroundWorker) buildSnapshot() *DataSnapshot {
	if w.svc == nil {
		return nil
	}

	start := time.Now()

	var forest []model.MenuNode
	loadErr := w.safeCompute("load", func() error {
		ctx, cancel := context.WithTimeout(w.ctx, w.loadTimeout)
		defer cancel()
		var err error
		forest, err = w.svc.List(ctx)
		return err
	})
	if loadErr != nil {
		log.Printf("buildSnapshot: error loading menus: %v", loadErr)
		w.reportError(loadErr)
		return nil
	}
	loadDuration := time.Since(start)

	hash := analysis.ComputeDataHash(forest)

	w.mu.RLock()
	lastHash := w.lastHash
	w.mu.RUnlock()

	if hash == lastHash && lastHash != "" {
		w.recordError(nil)
		return nil
	}

	var stats analysis.Stats
	if analyzeErr := w.safeCompute("analyze", func() error {
		stats = analysis.ComputeStats(forest)
		return nil
	}); analyzeErr != nil {
		log.Printf("buildSnapshot: analysis error: %v", analyzeErr)
		w.reportError(analyzeErr)
		return nil
	}

	w.recordError(nil)
	w.mu.Lock()
	w.lastHash = hash
	w.mu.Unlock()

	log.Printf("buildSnapshot: loaded %d menus (load=%v, hash=%s)",
		stats.Nodes, loadDuration, hashPrefix(hash))

	return &DataSnapshot{
		Forest:       forest,
		Stats:        stats,
		DataHash:     hash,
		LoadedAt:     time.Now(),
		LoadDuration: loadDuration,
	}
}

// SnapshotReadyMsg is sent to the UI when a new snapshot is ready.
type SnapshotReadyMsg struct {
	Snapshot *DataSnapshot
}

// SnapshotErrorMsg is sent to the UI when snapshot loading fails.
type SnapshotErrorMsg struct {
	Err         error
	Recoverable bool // True if we expect to recover on the next trigger
}

// WatcherChanged returns the watcher's change notification channel, or nil.
func (w *BackgroundWorker) WatcherChanged() <-chan struct{} {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Changed()
}

// LastHash returns the content hash from the last successful snapshot build.
func (w *BackgroundWorker) LastHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash
}

// hashPrefix returns up to 16 characters of the hash for logging.
func hashPrefix(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}

// ResetHash clears the stored content hash so the next load is delivered
// even if unchanged.
func (w *BackgroundWorker) ResetHash() {
	w.mu.Lock()
	w.lastHash = ""
	w.mu.Unlock()
}
