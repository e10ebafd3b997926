package docstore

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/storage"
)

func watcherTestEnv(t *testing.T) (string, *Store) {
	t.Helper()
	dir := t.TempDir()
	ws, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, New(ws, "boards", "notes")
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_ExternalBoardEditReloads(t *testing.T) {
	dir, store := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	doc, rel, err := store.CreateBoard("main")
	if err != nil {
		t.Fatalf("CreateBoard: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, store, dir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	doc.Name = "edited elsewhere"
	data, _ := marshalDoc(doc)
	if err := os.WriteFile(filepath.Join(dir, rel), data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		got, err := store.Board(rel)
		return err == nil && got.Name == "edited elsewhere"
	}, "external board edit not reloaded by watcher")
}

func TestWatcher_PlainFileEventsReported(t *testing.T) {
	dir, store := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, store, dir, logger, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "todo.md"), []byte("# Todo"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "file.updated:todo.md" {
				return true
			}
		}
		return false
	}, "expected file.updated:todo.md callback")
}

func TestWatcher_BoardRemovalDropsRoot(t *testing.T) {
	dir, store := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	_, rel, err := store.CreateBoard("doomed")
	if err != nil {
		t.Fatalf("CreateBoard: %v", err)
	}
	if !store.IsLoaded(rel) {
		t.Fatal("precondition: board should be cached")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, store, dir, logger, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(dir, rel))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !store.IsLoaded(rel)
	}, "removed board still cached")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "board.removed:"+rel {
				return true
			}
		}
		return false
	}, "expected board.removed callback")
}
