package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vanderheijden86/menuadmin/pkg/model"
	"github.com/vanderheijden86/menuadmin/pkg/store"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestBackgroundWorker_NewWithoutPath(t *testing.T) {
	worker, err := NewBackgroundWorker(WorkerConfig{})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()

	if worker.State() != WorkerIdle {
		t.Errorf("Expected idle state, got %v", worker.State())
	}
	if worker.GetSnapshot() != nil {
		t.Error("Expected nil snapshot initially")
	}
	if worker.WatcherChanged() != nil {
		t.Error("WatcherChanged should return nil when no watcher")
	}
}

func TestBackgroundWorker_NewWithPath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "menus.db")
	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer s.Close()

	worker, err := NewBackgroundWorker(WorkerConfig{
		Service:       s,
		WatchPath:     dbPath,
		DebounceDelay: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()

	if worker.WatcherChanged() == nil {
		t.Error("WatcherChanged should return non-nil channel")
	}
}

func TestBackgroundWorker_StartStop(t *testing.T) {
	worker, err := NewBackgroundWorker(WorkerConfig{
		Service:      newFakeService(sampleMenus()),
		PollInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := worker.Start(); err != nil {
		t.Fatalf("second Start should be a no-op, got %v", err)
	}

	worker.Stop()
	worker.Stop() // Should not panic

	if worker.State() != WorkerStopped {
		t.Errorf("Expected stopped state, got %v", worker.State())
	}
}

func TestBackgroundWorker_StartWithoutSources(t *testing.T) {
	worker, err := NewBackgroundWorker(WorkerConfig{Service: newFakeService(nil)})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		worker.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked with nothing to wait on")
	}
}

func TestBackgroundWorker_TriggerRefresh(t *testing.T) {
	svc := newFakeService(sampleMenus())
	worker, err := NewBackgroundWorker(WorkerConfig{Service: svc})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()

	worker.TriggerRefresh()

	if !waitFor(t, 2*time.Second, func() bool { return worker.GetSnapshot() != nil }) {
		t.Fatal("Expected snapshot after refresh")
	}
	snapshot := worker.GetSnapshot()
	if len(snapshot.Forest) != 3 {
		t.Errorf("Expected 3 roots, got %d", len(snapshot.Forest))
	}
	if snapshot.Stats.Nodes != 6 {
		t.Errorf("Expected 6 menus, got %d", snapshot.Stats.Nodes)
	}
	if snapshot.DataHash == "" {
		t.Error("Snapshot should carry a data hash")
	}
	if snapshot.LoadedAt.IsZero() {
		t.Error("Snapshot should carry a load time")
	}
}

func TestBackgroundWorker_RefreshCmd(t *testing.T) {
	svc := newFakeService(sampleMenus())
	worker, err := NewBackgroundWorker(WorkerConfig{Service: svc})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()

	if msg := worker.RefreshCmd()(); msg != nil {
		t.Errorf("RefreshCmd should produce no message, got %T", msg)
	}
	if !waitFor(t, 2*time.Second, func() bool { return svc.listCount() == 1 }) {
		t.Fatalf("Expected one List call, got %d", svc.listCount())
	}
}

func TestWorkerState_String(t *testing.T) {
	tests := []struct {
		state    WorkerState
		expected string
	}{
		{WorkerIdle, "idle"},
		{WorkerProcessing, "processing"},
		{WorkerStopped, "stopped"},
		{WorkerState(42), "WorkerState(42)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("WorkerState(%d).String() = %q, want %q", int(tt.state), got, tt.expected)
		}
	}
}

func TestBackgroundWorker_ContentHashDedup(t *testing.T) {
	svc := newFakeService(sampleMenus())
	worker, err := NewBackgroundWorker(WorkerConfig{Service: svc})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()

	first := worker.buildSnapshot()
	if first == nil {
		t.Fatal("First build should produce a snapshot")
	}
	if second := worker.buildSnapshot(); second != nil {
		t.Error("Unchanged content should not produce a new snapshot")
	}
	if svc.listCount() != 2 {
		t.Errorf("Expected 2 List calls, got %d", svc.listCount())
	}
}

func TestBackgroundWorker_ContentHashChanges(t *testing.T) {
	svc := newFakeService(sampleMenus())
	worker, err := NewBackgroundWorker(WorkerConfig{Service: svc})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()

	first := worker.buildSnapshot()
	if first == nil {
		t.Fatal("First build should produce a snapshot")
	}

	changed := sampleMenus()
	changed[0].Name = "Start"
	svc.setForest(changed)

	second := worker.buildSnapshot()
	if second == nil {
		t.Fatal("Changed content should produce a new snapshot")
	}
	if first.DataHash == second.DataHash {
		t.Error("Hash should change with content")
	}
	if worker.LastHash() != second.DataHash {
		t.Errorf("LastHash = %q, want %q", worker.LastHash(), second.DataHash)
	}
}

func TestBackgroundWorker_ResetHash(t *testing.T) {
	svc := newFakeService(sampleMenus())
	worker, err := NewBackgroundWorker(WorkerConfig{Service: svc})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()

	if worker.buildSnapshot() == nil {
		t.Fatal("First build should produce a snapshot")
	}
	worker.ResetHash()
	if worker.LastHash() != "" {
		t.Error("ResetHash should clear the stored hash")
	}
	if worker.buildSnapshot() == nil {
		t.Error("Build after ResetHash should deliver even unchanged content")
	}
}

func TestWorkerError_String(t *testing.T) {
	cause := errors.New("connection refused")
	err := WorkerError{Phase: "load", Cause: cause, Time: time.Now(), Retries: 3}

	got := err.Error()
	for _, want := range []string{"load failed", "connection refused", "retries: 3"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, missing %q", got, want)
		}
	}
	if !errors.Is(err, cause) {
		t.Error("WorkerError should unwrap to its cause")
	}
}

func TestBackgroundWorker_LoadError(t *testing.T) {
	svc := newFakeService(nil)
	svc.listErr = errors.New("backend down")
	worker, err := NewBackgroundWorker(WorkerConfig{Service: svc})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()

	if snap := worker.buildSnapshot(); snap != nil {
		t.Error("Failed load should not produce a snapshot")
	}
	lastErr := worker.LastError()
	if lastErr == nil {
		t.Fatal("Expected LastError after failed load")
	}
	if lastErr.Phase != "load" {
		t.Errorf("Phase = %q, want load", lastErr.Phase)
	}
	if lastErr.Retries != 1 {
		t.Errorf("Retries = %d, want 1", lastErr.Retries)
	}

	worker.buildSnapshot()
	if got := worker.LastError().Retries; got != 2 {
		t.Errorf("Retries after second failure = %d, want 2", got)
	}
}

func TestBackgroundWorker_ErrorRecovery(t *testing.T) {
	svc := newFakeService(sampleMenus())
	svc.listErr = errors.New("temporary")
	worker, err := NewBackgroundWorker(WorkerConfig{Service: svc})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()

	worker.buildSnapshot()
	if worker.LastError() == nil {
		t.Fatal("Expected error after failed load")
	}

	svc.mu.Lock()
	svc.listErr = nil
	svc.mu.Unlock()

	if worker.buildSnapshot() == nil {
		t.Fatal("Expected snapshot after recovery")
	}
	if worker.LastError() != nil {
		t.Error("LastError should clear after a successful load")
	}
}

func TestBackgroundWorker_SafeCompute(t *testing.T) {
	worker, err := NewBackgroundWorker(WorkerConfig{})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()

	if werr := worker.safeCompute("analyze", func() error { return nil }); werr != nil {
		t.Errorf("Expected nil error, got %v", werr)
	}

	werr := worker.safeCompute("analyze", func() error { return errors.New("boom") })
	if werr == nil || werr.Phase != "analyze" {
		t.Fatalf("Expected analyze error, got %v", werr)
	}

	werr = worker.safeCompute("load", func() error { panic("kaboom") })
	if werr == nil {
		t.Fatal("Expected error from panic")
	}
	if !strings.Contains(werr.Cause.Error(), "kaboom") {
		t.Errorf("Panic cause should mention the panic value, got %v", werr.Cause)
	}
}

func TestBackgroundWorker_PanicInList(t *testing.T) {
	svc := newFakeService(nil)
	svc.listPanic = true
	worker, err := NewBackgroundWorker(WorkerConfig{Service: svc})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()

	if snap := worker.buildSnapshot(); snap != nil {
		t.Error("Panicking load should not produce a snapshot")
	}
	if worker.LastError() == nil {
		t.Error("Panicking load should be recorded as an error")
	}
}

func TestHashPrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"0123456789abcdef", "0123456789abcdef"},
		{"0123456789abcdef0123", "0123456789abcdef"},
	}
	for _, tt := range tests {
		if got := hashPrefix(tt.in); got != tt.want {
			t.Errorf("hashPrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBackgroundWorker_ConcurrentTrigger(t *testing.T) {
	svc := newFakeService(sampleMenus())
	worker, err := NewBackgroundWorker(WorkerConfig{Service: svc})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.TriggerRefresh()
		}()
	}
	wg.Wait()

	if !waitFor(t, 2*time.Second, func() bool {
		return worker.GetSnapshot() != nil && worker.State() == WorkerIdle
	}) {
		t.Fatal("Worker should settle with a snapshot")
	}
	if n := svc.listCount(); n < 1 || n > 20 {
		t.Errorf("List calls = %d, want between 1 and 20", n)
	}
}

func TestBackgroundWorker_PollInterval(t *testing.T) {
	svc := newFakeService(sampleMenus())
	worker, err := NewBackgroundWorker(WorkerConfig{
		Service:      svc,
		PollInterval: 30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()
	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if !waitFor(t, 2*time.Second, func() bool { return svc.listCount() >= 2 }) {
		t.Errorf("Expected repeated polling, got %d List calls", svc.listCount())
	}
}

func TestBackgroundWorker_WatchesSQLiteFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "menus.db")
	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer s.Close()

	worker, err := NewBackgroundWorker(WorkerConfig{
		Service:       s,
		WatchPath:     dbPath,
		DebounceDelay: 30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()
	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// A second connection stands in for another process editing the file.
	other, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("second store.Open failed: %v", err)
	}
	defer other.Close()
	if _, err := other.Create(context.Background(), model.MenuInput{Name: "Home"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if !waitFor(t, 3*time.Second, func() bool {
		snap := worker.GetSnapshot()
		return snap != nil && len(snap.Forest) == 1
	}) {
		t.Fatal("Expected a snapshot with the new menu after the file changed")
	}
	if got := worker.GetSnapshot().Forest[0].Name; got != "Home" {
		t.Errorf("Forest[0].Name = %q, want Home", got)
	}
}
