package watcher

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func waitFor(t *testing.T, changed <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-changed:
			if slices.Contains(paths, want) {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for a change to %s", want)
		}
	}
}

func TestWatchFile(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(dir, "prog.mp")
	if err := os.WriteFile(target, []byte("SEQ { }"), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan []string, 4)
	w, err := NewWatcher(50*time.Millisecond, []string{"*.swp"}, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{target}); err != nil {
		t.Fatal(err)
	}

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.mp"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte("SEQ { output(1); }"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changed:
		if len(paths) != 1 || paths[0] != target {
			t.Fatalf("expected only %s, got %v", target, paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for file change event")
	}
}

func TestWatchDirectory(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	changed := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, []string{"*.swp", "skip"}, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{dir}); err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(dir, "a.mp")
	if err := os.WriteFile(src, []byte("SEQ { }"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, src, 2*time.Second)

	// Excluded names never trigger.
	if err := os.WriteFile(filepath.Join(dir, "a.mp.swp"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	timeout := time.After(300 * time.Millisecond)
	for quiet := false; !quiet; {
		select {
		case paths := <-changed:
			for _, p := range paths {
				if p != src {
					t.Fatalf("unexpected change event for %s", p)
				}
			}
		case <-timeout:
			quiet = true
		}
	}

	// New subdirectories are picked up.
	sub := filepath.Join(dir, "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	nested := filepath.Join(sub, "b.mp")
	if err := os.WriteFile(nested, []byte("SEQ { }"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, nested, 2*time.Second)
}

func TestBadExcludePattern(t *testing.T) {
	if _, err := NewWatcher(time.Millisecond, []string{"[a-"}, func([]string) {}); err == nil {
		t.Fatal("expected an error for a malformed pattern")
	}
}

func TestCloseStopsLoop(t *testing.T) {
	w, err := NewWatcher(time.Millisecond, nil, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Watch([]string{t.TempDir()}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("event loop did not exit")
	}
}
