package docstore

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/board"
	"github.com/starford/ansuz/internal/storage"
)

func marshalDoc(doc *board.Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

func testStore(t *testing.T) (*Store, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	ws, err := storage.NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return New(ws, "boards", "notes"), ws
}

func TestCreateBoard(t *testing.T) {
	s, ws := testStore(t)

	doc, rel, err := s.CreateBoard("My First Map")
	if err != nil {
		t.Fatalf("CreateBoard: %v", err)
	}
	if rel != "boards/my-first-map.json" {
		t.Errorf("path = %q", rel)
	}
	if doc.FileViews == nil {
		t.Error("regular board should carry a file-view index")
	}
	if _, err := ws.Stat(rel); err != nil {
		t.Errorf("board not persisted: %v", err)
	}

	if _, _, err := s.CreateBoard("My First Map"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create err = %v, want ErrAlreadyExists", err)
	}
}

func TestUpdate_PatchPersists(t *testing.T) {
	s, ws := testStore(t)
	_, rel, err := s.CreateBoard("main")
	if err != nil {
		t.Fatalf("CreateBoard: %v", err)
	}

	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	err = s.Update(rel, func(doc *board.Document) error {
		doc.Nodes = append(doc.Nodes, board.Node{ID: "n1", Kind: board.KindFile, Path: "a.md"})
		doc.RefreshFileView("a.md", now)
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	// A fresh store over the same workspace must see the patch.
	fresh := New(ws, "boards", "notes")
	doc, err := fresh.Board(rel)
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	if doc.FindNode("n1") == nil {
		t.Error("patched node not persisted")
	}
	if got := doc.FileViews["a.md"]; !got.Equal(now) {
		t.Errorf("file view = %v, want %v", got, now)
	}
}

func TestBoard_ReturnsCopy(t *testing.T) {
	s, _ := testStore(t)
	_, rel, _ := s.CreateBoard("main")

	a, _ := s.Board(rel)
	a.Name = "mutated"
	a.Nodes = append(a.Nodes, board.Node{ID: "x"})

	b, _ := s.Board(rel)
	if b.Name != "main" || len(b.Nodes) != 0 {
		t.Errorf("caller mutation leaked into store: %+v", b)
	}
}

func TestReloadIfChanged(t *testing.T) {
	s, ws := testStore(t)
	_, rel, _ := s.CreateBoard("main")

	// Self-inflicted write: checksum matches, nothing to do.
	changed, err := s.ReloadIfChanged(rel)
	if err != nil {
		t.Fatalf("ReloadIfChanged: %v", err)
	}
	if changed {
		t.Error("unchanged file reported as changed")
	}

	// External edit.
	doc, _ := s.Board(rel)
	doc.Name = "renamed outside"
	data, _ := marshalDoc(doc)
	if err := ws.Write(rel, data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Writing through ws does not update the store's checksum, so this
	// stands in for an external editor.
	changed, err = s.ReloadIfChanged(rel)
	if err != nil {
		t.Fatalf("ReloadIfChanged: %v", err)
	}
	if !changed {
		t.Fatal("external edit not detected")
	}
	got, _ := s.Board(rel)
	if got.Name != "renamed outside" {
		t.Errorf("name = %q after reload", got.Name)
	}
}

func TestReplace_FiresCallback(t *testing.T) {
	s, _ := testStore(t)
	var calls []string
	s.OnReplace(func(path string) { calls = append(calls, path) })

	_, rel, _ := s.CreateBoard("main")
	_ = s.Update(rel, func(doc *board.Document) error {
		doc.Name = "renamed"
		return nil
	})

	if len(calls) != 2 {
		t.Fatalf("callback calls = %d, want 2", len(calls))
	}
	if calls[0] != rel || calls[1] != rel {
		t.Errorf("callback paths = %v", calls)
	}
}

func TestEnsureNotesRoot(t *testing.T) {
	s, _ := testStore(t)

	doc, err := s.EnsureNotesRoot()
	if err != nil {
		t.Fatalf("EnsureNotesRoot: %v", err)
	}
	if doc.FileViews != nil {
		t.Error("notes root must not carry a file-view index")
	}

	again, err := s.EnsureNotesRoot()
	if err != nil {
		t.Fatalf("EnsureNotesRoot second call: %v", err)
	}
	if again.ID != doc.ID {
		t.Error("second call created a new root")
	}
}

func TestListNotes_Titles(t *testing.T) {
	s, ws := testStore(t)
	_ = ws.Write("notes/alpha.md", []byte("---\ntitle: Alpha Note\n---\nbody\n"))
	_ = ws.Write("notes/beta.md", []byte("# Beta Heading\nbody\n"))
	_ = ws.Write("notes/gamma.md", []byte("no heading at all\n"))

	notes, err := s.ListNotes()
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	titles := map[string]string{}
	for _, n := range notes {
		titles[n.Path] = n.Title
	}
	if titles["notes/alpha.md"] != "Alpha Note" {
		t.Errorf("alpha title = %q", titles["notes/alpha.md"])
	}
	if titles["notes/beta.md"] != "Beta Heading" {
		t.Errorf("beta title = %q", titles["notes/beta.md"])
	}
	if titles["notes/gamma.md"] != "gamma" {
		t.Errorf("gamma title = %q", titles["notes/gamma.md"])
	}
}

func TestListBoards(t *testing.T) {
	s, _ := testStore(t)
	_, _, _ = s.CreateBoard("First")
	_, _, _ = s.CreateBoard("Second")

	infos, err := s.ListBoards()
	if err != nil {
		t.Fatalf("ListBoards: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len = %d, want 2", len(infos))
	}
	names := map[string]bool{}
	for _, i := range infos {
		names[i.Name] = true
	}
	if !names["First"] || !names["Second"] {
		t.Errorf("names = %v", names)
	}
}

func TestTabs_WholesaleReplace(t *testing.T) {
	s, _ := testStore(t)

	tabs := []board.Tab{
		{ID: "t1", Position: 0, Kind: board.TabBoard, BoardPath: "boards/a.json", BasePath: "/root"},
		{ID: "t2", Position: 1, Kind: board.TabNotes, BoardPath: "notes/root.json", HandleName: "workspace"},
	}
	s.SetTabs(tabs, "t2")

	got, active := s.Tabs()
	if len(got) != 2 || active != "t2" {
		t.Fatalf("tabs = %v active = %q", got, active)
	}

	tab, ok := s.Tab("t1")
	if !ok || tab.BasePath != "/root" {
		t.Errorf("Tab(t1) = %+v ok=%v", tab, ok)
	}
	if _, ok := s.Tab("nope"); ok {
		t.Error("unknown tab id should not resolve")
	}

	s.SetTabs(nil, "")
	got, _ = s.Tabs()
	if len(got) != 0 {
		t.Errorf("tabs after clear = %v", got)
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"My First Map", "my-first-map"},
		{"  Roadmap: Q3!  ", "roadmap-q3"},
		{"---", ""},
		{"Ideas 2025", "ideas-2025"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
