package remind

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDebouncesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.rem")
	if err := os.WriteFile(path, []byte("REM Mon MSG standup\n"), 0644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan string, 10)
	w, err := NewWatcher(func(p string) { changed <- p }, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		t.Fatal(err)
	}
	if err := w.Add(path); err != nil {
		t.Fatalf("second Add failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("REM Tue MSG review\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case got := <-changed:
		if got != path {
			t.Errorf("changed path = %s, want %s", got, path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}

	select {
	case got := <-changed:
		t.Errorf("burst produced a second notification for %s", got)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(nil, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
}
