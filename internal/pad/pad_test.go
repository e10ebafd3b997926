package pad

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/board"
	"github.com/starford/ansuz/internal/docstore"
	"github.com/starford/ansuz/internal/testutil"
)

// eventLog collects notify events for assertions.
type eventLog struct {
	mu     sync.Mutex
	events []string
	saved  int
}

func (l *eventLog) notify(event string, data map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	if event == "pad.saved" {
		l.saved++
	}
}

func (l *eventLog) savedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saved
}

type padEnv struct {
	store *docstore.Store
	mgr   *Manager
	log   *eventLog
	rel   string
	dir   string
}

// newPadEnv builds a workspace with one board holding a plain file node, a
// flowchart node with an associated details file, and a file node with an
// empty path.
func newPadEnv(t *testing.T) *padEnv {
	t.Helper()

	dir, ws := testutil.TestWorkspace(t)
	store := docstore.New(ws, "boards", "notes")
	store.RegisterHandle("workspace", ws)

	doc, rel, err := store.CreateBoard("Pads")
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Write("notes/a.md", []byte("alpha")); err != nil {
		t.Fatal(err)
	}
	if err := ws.Write("notes/b.md", []byte("bravo")); err != nil {
		t.Fatal(err)
	}
	if err := ws.Write("details/fc.md", []byte("flowchart details")); err != nil {
		t.Fatal(err)
	}
	doc.Nodes = append(doc.Nodes,
		board.Node{ID: "a", Kind: board.KindFile, Path: "notes/a.md"},
		board.Node{ID: "b", Kind: board.KindFile, Path: "notes/b.md"},
		board.Node{ID: "fc", Kind: board.KindFlowchart, DetailsPath: "details/fc.md"},
		board.Node{ID: "blank", Kind: board.KindFile},
	)
	if err := store.Replace(rel, doc); err != nil {
		t.Fatal(err)
	}

	log := &eventLog{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	mgr := NewManager(store, logger, log.notify, ws.Root(), 30*time.Millisecond, 0)
	t.Cleanup(mgr.Shutdown)

	return &padEnv{store: store, mgr: mgr, log: log, rel: rel, dir: dir}
}

func (e *padEnv) tab() board.Tab {
	return board.Tab{ID: "t1", Kind: board.TabBoard, BoardPath: e.rel, HandleName: "workspace"}
}

func (e *padEnv) node(t *testing.T, id string) *board.Node {
	t.Helper()
	doc, err := e.store.Board(e.rel)
	if err != nil {
		t.Fatal(err)
	}
	n := doc.FindNode(id)
	if n == nil {
		t.Fatalf("node %s not seeded", id)
	}
	return n
}

func waitState(t *testing.T, p *Pad, want State) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := p.Snapshot()
		if snap.State == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("pad never reached state %s (now %s)", want, p.Snapshot().State)
	return Snapshot{}
}

func waitSave(t *testing.T, p *Pad, want SaveStatus) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := p.Snapshot()
		if snap.SaveStatus == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("pad never reached save status %s (now %s)", want, p.Snapshot().SaveStatus)
	return Snapshot{}
}

func TestPad_LoadAndDebouncedSave(t *testing.T) {
	env := newPadEnv(t)

	p := env.mgr.Open(env.tab(), env.node(t, "a"))
	snap := waitState(t, p, StateReady)
	if snap.Content != "alpha" || snap.Buffer != "alpha" {
		t.Fatalf("loaded content = %q buffer = %q", snap.Content, snap.Buffer)
	}
	if !snap.Markdown {
		t.Error(".md target not classified as markdown")
	}

	if err := p.Edit("alpha edited", Caret{Start: 5, End: 5, Focus: true}); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	snap = p.Snapshot()
	if !snap.Dirty || snap.SaveStatus != SaveSaving {
		t.Errorf("after edit: dirty=%v status=%s, want dirty saving", snap.Dirty, snap.SaveStatus)
	}

	// The debounce timer commits without an explicit call.
	snap = waitSave(t, p, SaveSaved)
	if snap.Dirty {
		t.Error("still dirty after debounced commit")
	}

	ws, _ := env.store.Handle("workspace")
	data, err := ws.Read("notes/a.md")
	if err != nil || string(data) != "alpha edited" {
		t.Errorf("file = %q, err %v", data, err)
	}
}

func TestPad_EmptyFileIsEmptyState(t *testing.T) {
	env := newPadEnv(t)
	ws, _ := env.store.Handle("workspace")
	if err := ws.Write("notes/empty.md", nil); err != nil {
		t.Fatal(err)
	}
	p := env.mgr.Open(env.tab(), &board.Node{ID: "e", Kind: board.KindFile, Path: "notes/empty.md"})
	snap := waitState(t, p, StateEmpty)

	// Empty is editable like ready.
	if err := p.Edit("first line", Caret{}); err != nil {
		t.Fatalf("Edit in empty state: %v", err)
	}
	_ = snap
}

func TestPad_EmptyPathIneligibleWithoutRead(t *testing.T) {
	env := newPadEnv(t)
	p := env.mgr.Open(env.tab(), env.node(t, "blank"))

	// No read is dispatched, so the state is final immediately.
	if snap := p.Snapshot(); snap.State != StateIneligible {
		t.Fatalf("state = %s, want ineligible", snap.State)
	}
	if err := p.Edit("x", Caret{}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("edit on ineligible pad: %v, want conflict", err)
	}
}

func TestPad_NilSelectionIsIdle(t *testing.T) {
	env := newPadEnv(t)
	p := env.mgr.Open(env.tab(), nil)
	if snap := p.Snapshot(); snap.State != StateIdle {
		t.Fatalf("state = %s, want idle", snap.State)
	}
}

func TestPad_StaleLoadDropped(t *testing.T) {
	env := newPadEnv(t)

	p := env.mgr.Open(env.tab(), env.node(t, "a"))
	waitState(t, p, StateReady)
	stale := p.Snapshot().Seq

	p.Select(env.node(t, "b"))
	waitState(t, p, StateReady)

	// Replay a completion for the superseded request. Last request wins:
	// the state must not move.
	p.load(stale, Target{NodeID: "a", Kind: board.KindFile, Path: "notes/a.md"})

	snap := p.Snapshot()
	if snap.Content != "bravo" || snap.NodeID != "b" {
		t.Errorf("stale load applied: content=%q node=%s", snap.Content, snap.NodeID)
	}
}

func TestPad_ReselectSameNodeIsNoop(t *testing.T) {
	env := newPadEnv(t)

	p := env.mgr.Open(env.tab(), env.node(t, "a"))
	waitState(t, p, StateReady)
	if err := p.Edit("working copy", Caret{}); err != nil {
		t.Fatal(err)
	}

	p.Select(env.node(t, "a"))
	if snap := p.Snapshot(); snap.Buffer != "working copy" || !snap.Dirty {
		t.Errorf("re-select disturbed the buffer: %+v", snap)
	}
}

func TestPad_SwitchFlushesDirtyBuffer(t *testing.T) {
	env := newPadEnv(t)

	p := env.mgr.Open(env.tab(), env.node(t, "a"))
	waitState(t, p, StateReady)
	if err := p.Edit("alpha unsaved", Caret{}); err != nil {
		t.Fatal(err)
	}

	p.Select(env.node(t, "b"))
	waitState(t, p, StateReady)

	ws, _ := env.store.Handle("workspace")
	data, err := ws.Read("notes/a.md")
	if err != nil || string(data) != "alpha unsaved" {
		t.Errorf("dirty buffer not flushed on switch: %q, err %v", data, err)
	}
}

func TestCommit_Idempotent(t *testing.T) {
	env := newPadEnv(t)

	p := env.mgr.Open(env.tab(), env.node(t, "a"))
	waitState(t, p, StateReady)
	if err := p.Edit("once", Caret{}); err != nil {
		t.Fatal(err)
	}
	if err := p.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	saved := env.log.savedCount()

	// A second commit, with no change since the first, writes nothing.
	if err := p.Commit(); err != nil {
		t.Fatalf("idempotent Commit: %v", err)
	}
	if got := env.log.savedCount(); got != saved {
		t.Errorf("second commit published %d extra pad.saved events", got-saved)
	}
}

func TestPad_DirtyTracksLastSaved(t *testing.T) {
	env := newPadEnv(t)

	p := env.mgr.Open(env.tab(), env.node(t, "a"))
	waitState(t, p, StateReady)

	if err := p.Edit("alpha!", Caret{}); err != nil {
		t.Fatal(err)
	}
	if !p.Snapshot().Dirty {
		t.Fatal("edit did not mark dirty")
	}

	// Undo back to the saved content: dirty clears without a write.
	if err := p.Edit("alpha", Caret{}); err != nil {
		t.Fatal(err)
	}
	snap := p.Snapshot()
	if snap.Dirty {
		t.Error("buffer equal to last saved still dirty")
	}
	if snap.SaveStatus != SaveIdle {
		t.Errorf("save status = %s, want idle after undo", snap.SaveStatus)
	}
}

func TestCommit_MetadataAsymmetry(t *testing.T) {
	env := newPadEnv(t)

	// Plain file node on a regular root: the file-view index refreshes.
	p := env.mgr.Open(env.tab(), env.node(t, "a"))
	waitState(t, p, StateReady)
	if err := p.Edit("new alpha", Caret{}); err != nil {
		t.Fatal(err)
	}
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}
	doc, err := env.store.Board(env.rel)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.FileViews["notes/a.md"]; !ok {
		t.Error("file-view index not refreshed for plain file commit")
	}

	// Associated flowchart target: only the node timestamp moves.
	before := doc.FindNode("fc").UpdatedOn
	p.Select(env.node(t, "fc"))
	waitState(t, p, StateReady)
	if err := p.Edit("flowchart details v2", Caret{}); err != nil {
		t.Fatal(err)
	}
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}
	doc, err = env.store.Board(env.rel)
	if err != nil {
		t.Fatal(err)
	}
	if !doc.FindNode("fc").UpdatedOn.After(before) {
		t.Error("flowchart node timestamp not touched")
	}
	if _, ok := doc.FileViews["details/fc.md"]; ok {
		t.Error("associated commit must not enter the file-view index")
	}
}

func TestCommit_NotesRootSkipsFileViews(t *testing.T) {
	env := newPadEnv(t)
	if _, err := env.store.EnsureNotesRoot(); err != nil {
		t.Fatal(err)
	}
	notesPath := env.store.NotesRootPath()

	ws, _ := env.store.Handle("workspace")
	if err := ws.Write("notes/journal.md", []byte("today")); err != nil {
		t.Fatal(err)
	}
	if err := env.store.Update(notesPath, func(doc *board.Document) error {
		doc.Nodes = append(doc.Nodes, board.Node{ID: "j", Kind: board.KindFile, Path: "notes/journal.md"})
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	tab := board.Tab{ID: "tn", Kind: board.TabNotes, BoardPath: notesPath, HandleName: "workspace"}
	doc, err := env.store.Board(notesPath)
	if err != nil {
		t.Fatal(err)
	}
	p := env.mgr.Open(tab, doc.FindNode("j"))
	waitState(t, p, StateReady)
	if err := p.Edit("today, edited", Caret{}); err != nil {
		t.Fatal(err)
	}
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}

	doc, err = env.store.Board(notesPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.FileViews) != 0 {
		t.Errorf("notes root grew file views: %v", doc.FileViews)
	}
}

func TestCommit_NoPersistMode(t *testing.T) {
	env := newPadEnv(t)

	tab := board.Tab{ID: "tx", Kind: board.TabBoard, BoardPath: env.rel, BasePath: env.dir}
	p := env.mgr.Open(tab, env.node(t, "a"))
	waitState(t, p, StateReady)
	if err := p.Edit("doomed", Caret{}); err != nil {
		t.Fatal(err)
	}

	// The root loses both persistence modes between load and save.
	p.mu.Lock()
	p.root.Handle = nil
	p.root.Base = ""
	p.mu.Unlock()

	err := p.Commit()
	if !errors.Is(err, apperr.ErrNoPersistMode) {
		t.Fatalf("Commit = %v, want ErrNoPersistMode", err)
	}
	snap := p.Snapshot()
	if !snap.Dirty || snap.SaveStatus != SaveError {
		t.Errorf("after failed commit: dirty=%v status=%s, want dirty error", snap.Dirty, snap.SaveStatus)
	}
}

func TestPad_PathMode(t *testing.T) {
	env := newPadEnv(t)

	// A tab with no registered handle reads and writes by joining the base
	// path, the desktop fallback.
	tab := board.Tab{ID: "tp", Kind: board.TabBoard, BoardPath: env.rel, BasePath: env.dir}
	p := env.mgr.Open(tab, env.node(t, "a"))
	snap := waitState(t, p, StateReady)
	if snap.Content != "alpha" {
		t.Fatalf("path-mode load = %q", snap.Content)
	}

	if err := p.Edit("alpha via path", Caret{}); err != nil {
		t.Fatal(err)
	}
	if err := p.Commit(); err != nil {
		t.Fatalf("path-mode commit: %v", err)
	}
	data, err := os.ReadFile(env.dir + "/notes/a.md")
	if err != nil || string(data) != "alpha via path" {
		t.Errorf("path-mode file = %q, err %v", data, err)
	}
}

func TestPad_PathModeExtensionIsAuthoritative(t *testing.T) {
	env := newPadEnv(t)

	ws, _ := env.store.Handle("workspace")
	if err := ws.Write("notes/data.bin", []byte("plain text really")); err != nil {
		t.Fatal(err)
	}

	// In path mode there is no MIME sniff, so a disallowed extension is
	// final without a read.
	tab := board.Tab{ID: "tp", Kind: board.TabBoard, BoardPath: env.rel, BasePath: env.dir}
	p := env.mgr.Open(tab, &board.Node{ID: "x", Kind: board.KindFile, Path: "notes/data.bin"})
	if snap := p.Snapshot(); snap.State != StateIneligible {
		t.Fatalf("state = %s, want ineligible", snap.State)
	}
}

func TestPad_HandleModeMIMEWidens(t *testing.T) {
	env := newPadEnv(t)

	ws, _ := env.store.Handle("workspace")
	if err := ws.Write("notes/readme.unknown", []byte("just words")); err != nil {
		t.Fatal(err)
	}

	p := env.mgr.Open(env.tab(), &board.Node{ID: "u", Kind: board.KindFile, Path: "notes/readme.unknown"})
	snap := waitState(t, p, StateReady)
	if snap.Markdown {
		t.Error("MIME widening must not grant markdown mode")
	}
}

func TestManager_CloseFlushesAndDropsPad(t *testing.T) {
	env := newPadEnv(t)

	p := env.mgr.Open(env.tab(), env.node(t, "a"))
	waitState(t, p, StateReady)
	if err := p.Edit("final words", Caret{}); err != nil {
		t.Fatal(err)
	}

	if err := env.mgr.Close(p.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := env.mgr.Get(p.ID); ok {
		t.Error("closed pad still registered")
	}

	ws, _ := env.store.Handle("workspace")
	data, err := ws.Read("notes/a.md")
	if err != nil || string(data) != "final words" {
		t.Errorf("close did not flush: %q, err %v", data, err)
	}

	if err := p.Edit("after close", Caret{}); !errors.Is(err, apperr.ErrClosed) {
		t.Errorf("edit after close: %v, want ErrClosed", err)
	}
	if err := env.mgr.Close(p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double close: %v, want ErrNotFound", err)
	}
}

func TestPad_SelectAfterCloseIsNoop(t *testing.T) {
	env := newPadEnv(t)

	p := env.mgr.Open(env.tab(), env.node(t, "a"))
	waitState(t, p, StateReady)
	if err := env.mgr.Close(p.ID); err != nil {
		t.Fatal(err)
	}

	// A stale pointer must not resurrect loads or commits on a closed pad.
	p.Select(env.node(t, "b"))

	snap := p.Snapshot()
	if snap.NodeID != "a" || snap.Content != "alpha" {
		t.Errorf("select after close moved the pad: node=%s content=%q", snap.NodeID, snap.Content)
	}
}

func TestPad_ViewTracking(t *testing.T) {
	env := newPadEnv(t)

	p := env.mgr.Open(env.tab(), env.node(t, "a"))
	waitState(t, p, StateReady)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		doc, err := env.store.Board(env.rel)
		if err != nil {
			t.Fatal(err)
		}
		if n := doc.FindNode("a"); n != nil && !n.LastViewedOn.IsZero() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("view tracking never recorded the selection")
}

func countExternal(l *eventLog) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, ev := range l.events {
		if ev == "pad.external" {
			n++
		}
	}
	return n
}

func TestNotifyExternal_MatchesOpenPads(t *testing.T) {
	env := newPadEnv(t)

	p := env.mgr.Open(env.tab(), env.node(t, "a"))
	waitState(t, p, StateReady)

	ws, _ := env.store.Handle("workspace")
	if err := ws.Write("notes/a.md", []byte("changed outside")); err != nil {
		t.Fatal(err)
	}

	env.mgr.NotifyExternal("file.updated", "notes/a.md")
	env.mgr.NotifyExternal("file.updated", "notes/unrelated.md")

	if got := countExternal(env.log); got != 1 {
		t.Errorf("pad.external events = %d, want exactly 1", got)
	}
}

func TestNotifyExternal_OwnCommitSuppressed(t *testing.T) {
	env := newPadEnv(t)

	p := env.mgr.Open(env.tab(), env.node(t, "a"))
	waitState(t, p, StateReady)
	if err := p.Edit("alpha rewritten", Caret{}); err != nil {
		t.Fatal(err)
	}
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}

	// The commit's rename comes back through the watcher as file.updated;
	// the on-disk content is exactly what the pad saved, so it is not an
	// external change.
	env.mgr.NotifyExternal("file.updated", "notes/a.md")
	if got := countExternal(env.log); got != 0 {
		t.Errorf("own commit raised %d pad.external event(s)", got)
	}

	// A subsequent genuine external write is still reported.
	ws, _ := env.store.Handle("workspace")
	if err := ws.Write("notes/a.md", []byte("someone else")); err != nil {
		t.Fatal(err)
	}
	env.mgr.NotifyExternal("file.updated", "notes/a.md")
	if got := countExternal(env.log); got != 1 {
		t.Errorf("external write raised %d pad.external event(s), want 1", got)
	}
}
