package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const watchV1 = `
name: v1
invocations:
  - component: input.text
    inputs: {value: one}
`

const watchV2 = `
name: v2
invocations:
  - component: input.text
    inputs: {value: two}
`

func startWatcher(t *testing.T, path string, onChange func(ChangeEvent)) *Watcher {
	t.Helper()
	w := NewWatcher(NewFileSource(path), onChange, WithWatchDebounce(50*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcherDetectsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	if err := os.WriteFile(path, []byte(watchV1), 0o644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var events []ChangeEvent
	startWatcher(t, path, func(evt ChangeEvent) {
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(watchV2), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) > 0
	})

	mu.Lock()
	defer mu.Unlock()
	evt := events[0]
	if evt.Batch.Name != "v2" {
		t.Errorf("batch name = %q", evt.Batch.Name)
	}
	if evt.OldHash == evt.NewHash || evt.Source != "file:"+path {
		t.Errorf("event = %+v", evt)
	}
}

func TestWatcherIgnoresUnchangedAndOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")
	if err := os.WriteFile(path, []byte(watchV1), 0o644); err != nil {
		t.Fatal(err)
	}
	var calls atomic.Int32
	startWatcher(t, path, func(ChangeEvent) { calls.Add(1) })

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(watchV1), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte(watchV2), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("onChange called %d times", calls.Load())
	}
}

func TestWatcherSkipsInvalidThenRecovers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	if err := os.WriteFile(path, []byte(watchV1), 0o644); err != nil {
		t.Fatal(err)
	}
	var last atomic.Value
	startWatcher(t, path, func(evt ChangeEvent) { last.Store(evt.Batch.Name) })

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("invocations: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if last.Load() != nil {
		t.Fatalf("invalid file produced an event: %v", last.Load())
	}
	if err := os.WriteFile(path, []byte(watchV2), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return last.Load() == "v2" })
}

func TestWatcherStartMissingFile(t *testing.T) {
	w := NewWatcher(NewFileSource(filepath.Join(t.TempDir(), "nope.yaml")), func(ChangeEvent) {})
	if err := w.Start(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop after failed Start: %v", err)
	}
}
