package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func start(t *testing.T, debounce time.Duration, files ...string) (chan string, *atomic.Int32) {
	t.Helper()

	fw, err := New(files...)
	if err != nil {
		t.Skip("fsnotify not supported: ", err)
	}
	fw.Debounce = debounce

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.Cleanup(func() {
		cancel()
		<-done
		fw.Close()
	})

	got := make(chan string, 16)
	var count atomic.Int32
	go func() {
		defer close(done)
		_ = fw.Run(ctx, func(path string) {
			count.Add(1)
			got <- path
		})
	}()
	return got, &count
}

func TestRebuildOnWrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.qy")
	if err := os.WriteFile(src, []byte("def f():\n    return 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, _ := start(t, 10*time.Millisecond, src)

	if err := os.WriteFile(src, []byte("def f():\n    return 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-got:
		if path != src {
			t.Fatalf("rebuilt %q, expected %q", path, src)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for rebuild")
	}
}

func TestIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.qy")
	if err := os.WriteFile(src, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, _ := start(t, 10*time.Millisecond, src)

	if err := os.WriteFile(filepath.Join(dir, "a.q"), []byte("f:{[] 1}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-got:
		t.Fatalf("unexpected rebuild of %q", path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestBurstIsCoalesced(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.qy")
	if err := os.WriteFile(src, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, count := start(t, 300*time.Millisecond, src)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(src, []byte("def f():\n    return 1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for rebuild")
	}
	time.Sleep(500 * time.Millisecond)

	if n := count.Load(); n >= 5 {
		t.Fatalf("expected the burst to coalesce, got %d rebuilds", n)
	}
}

func TestNewRejectsMissingDirectory(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing", "a.qy")); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}

func TestCloseWithUnreadEvents(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.qy")
	b := filepath.Join(dir, "b.qy")

	fw, err := New(a, b)
	if err != nil {
		t.Skip("fsnotify not supported: ", err)
	}

	// nothing receives, so the event buffer fills up
	for i := 0; i < 2*cap(fw.evC); i++ {
		for _, f := range []string{a, b} {
			if err := os.WriteFile(f, []byte("def f():\n    return 1\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	time.Sleep(100 * time.Millisecond)

	if err := fw.Close(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	deadline := time.After(2 * time.Second)
	for n := 0; ; n++ {
		if n > cap(fw.evC) {
			t.Fatalf("received %d events after Close, expected at most %d", n, cap(fw.evC))
		}
		select {
		case _, ok := <-fw.evC:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event loop still running after Close")
		}
	}
}
