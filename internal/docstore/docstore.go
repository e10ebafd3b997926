// Package docstore owns the open document roots: board documents loaded
// from the workspace, the tab list that references them, and the watcher
// that keeps them honest under external edits.
//
// Roots are handed out as deep copies and taken back wholesale: an update
// flow reads the current root, patches its copy, and replaces the whole
// document. The store's lock makes the replacement atomic, but two flows
// patching from the same snapshot still race last-writer-wins within one
// debounce window.
package docstore

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/board"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/storage"
)

// BoardInfo is a listing entry for one board document.
type BoardInfo struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	UpdatedOn time.Time `json:"updated_on"`
}

// Store is the document store. All exported methods are safe for concurrent
// use.
type Store struct {
	mu        sync.RWMutex
	ws        storage.Provider
	boardsDir string
	notesDir  string

	docs    map[string]*board.Document // loaded roots by workspace-relative path
	sums    map[string]string          // checksum of the last bytes persisted or loaded
	tabs    []board.Tab
	active  string
	handles map[string]*storage.FS

	onReplace func(path string)
}

// New creates a store over the workspace provider. boardsDir and notesDir
// are workspace-relative.
func New(ws storage.Provider, boardsDir, notesDir string) *Store {
	return &Store{
		ws:        ws,
		boardsDir: boardsDir,
		notesDir:  notesDir,
		docs:      map[string]*board.Document{},
		sums:      map[string]string{},
		handles:   map[string]*storage.FS{},
	}
}

// OnReplace registers a callback invoked after every root replacement,
// whether driven by a save flow or a watcher reload.
func (s *Store) OnReplace(fn func(path string)) {
	s.mu.Lock()
	s.onReplace = fn
	s.mu.Unlock()
}

// RegisterHandle makes a rooted workspace accessor available to tabs under
// the given name.
func (s *Store) RegisterHandle(name string, fs *storage.FS) {
	s.mu.Lock()
	s.handles[name] = fs
	s.mu.Unlock()
}

// Handle looks up a registered workspace accessor.
func (s *Store) Handle(name string) (*storage.FS, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handles[name]
	return h, ok
}

// ListBoards returns every board document under the boards directory.
func (s *Store) ListBoards() ([]BoardInfo, error) {
	entries, err := s.ws.List(s.boardsDir, ".json")
	if err != nil {
		return nil, fmt.Errorf("docstore: list boards: %w", err)
	}
	out := make([]BoardInfo, 0, len(entries))
	for _, e := range entries {
		info := BoardInfo{Path: e.Path, Checksum: e.Checksum, UpdatedOn: e.ModTime}
		if doc, err := s.Board(e.Path); err == nil {
			info.Name = doc.Name
			info.UpdatedOn = doc.UpdatedOn
		}
		out = append(out, info)
	}
	return out, nil
}

// CreateBoard creates an empty board document named name and persists it.
// Returns the new document and its workspace-relative path.
func (s *Store) CreateBoard(name string) (*board.Document, string, error) {
	slug := Slugify(name)
	if slug == "" {
		return nil, "", fmt.Errorf("docstore: unusable board name %q: %w", name, apperr.ErrInvalidPath)
	}
	rel := path.Join(s.boardsDir, slug+".json")
	if _, err := s.ws.Stat(rel); err == nil {
		return nil, "", apperr.ErrAlreadyExists
	}
	doc := board.New(name)
	if err := s.Replace(rel, doc); err != nil {
		return nil, "", err
	}
	return doc, rel, nil
}

// Delete removes a board document from disk and drops its cached root.
// The watcher-driven removal path converges on the same Forget.
func (s *Store) Delete(rel string) error {
	if _, err := s.ws.Stat(rel); err != nil {
		return fmt.Errorf("docstore: delete %s: %w", rel, apperr.ErrNotFound)
	}
	if err := s.ws.Delete(rel); err != nil {
		return fmt.Errorf("docstore: delete %s: %w", rel, err)
	}
	s.Forget(rel)
	return nil
}

// Board returns a deep copy of the document at the given workspace-relative
// path, loading it from disk on first access.
func (s *Store) Board(rel string) (*board.Document, error) {
	s.mu.RLock()
	doc, ok := s.docs[rel]
	s.mu.RUnlock()
	if ok {
		return doc.Clone(), nil
	}
	return s.load(rel)
}

func (s *Store) load(rel string) (*board.Document, error) {
	data, err := s.ws.Read(rel)
	if err != nil {
		return nil, fmt.Errorf("docstore: read %s: %w", rel, apperr.ErrNotFound)
	}
	var doc board.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("docstore: decode %s: %w", rel, err)
	}
	s.mu.Lock()
	s.docs[rel] = &doc
	s.sums[rel] = checksum.Sum(data)
	s.mu.Unlock()
	return doc.Clone(), nil
}

// Replace is the wholesale setter: the given document becomes the root at
// rel, is persisted atomically, and the replace callback fires. The update
// unit is the whole document, never a field.
func (s *Store) Replace(rel string, doc *board.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("docstore: encode %s: %w", rel, err)
	}
	if err := s.ws.Write(rel, data); err != nil {
		return fmt.Errorf("docstore: persist %s: %w", rel, err)
	}
	s.mu.Lock()
	s.docs[rel] = doc.Clone()
	s.sums[rel] = checksum.Sum(data)
	fn := s.onReplace
	s.mu.Unlock()
	if fn != nil {
		fn(rel)
	}
	return nil
}

// Update is the single update entry point for root mutations: it clones the
// current root, applies patch, and replaces the root wholesale.
func (s *Store) Update(rel string, patch func(doc *board.Document) error) error {
	doc, err := s.Board(rel)
	if err != nil {
		return err
	}
	if err := patch(doc); err != nil {
		return err
	}
	return s.Replace(rel, doc)
}

// ReloadIfChanged re-reads a loaded root from disk after an external edit.
// Returns true when the cached document actually changed. Self-inflicted
// writes are recognised by checksum and skipped.
func (s *Store) ReloadIfChanged(rel string) (bool, error) {
	s.mu.RLock()
	_, loaded := s.docs[rel]
	prev := s.sums[rel]
	s.mu.RUnlock()
	if !loaded {
		return false, nil
	}

	data, err := s.ws.Read(rel)
	if err != nil {
		return false, fmt.Errorf("docstore: reload %s: %w", rel, err)
	}
	sum := checksum.Sum(data)
	if sum == prev {
		return false, nil
	}
	var doc board.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("docstore: reload decode %s: %w", rel, err)
	}
	s.mu.Lock()
	s.docs[rel] = &doc
	s.sums[rel] = sum
	fn := s.onReplace
	s.mu.Unlock()
	if fn != nil {
		fn(rel)
	}
	return true, nil
}

// IsLoaded reports whether a root is currently cached.
func (s *Store) IsLoaded(rel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[rel]
	return ok
}

// Forget drops a root from the cache, typically after its file vanished.
func (s *Store) Forget(rel string) {
	s.mu.Lock()
	delete(s.docs, rel)
	delete(s.sums, rel)
	s.mu.Unlock()
}

// LoadedSums returns the checksums of every cached root, keyed by path.
func (s *Store) LoadedSums() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.sums))
	for p, c := range s.sums {
		out[p] = c
	}
	return out
}

// BoardsDir returns the workspace-relative boards directory.
func (s *Store) BoardsDir() string { return s.boardsDir }

// Tabs returns the current tab list in position order.
func (s *Store) Tabs() ([]board.Tab, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]board.Tab, len(s.tabs))
	copy(out, s.tabs)
	return out, s.active
}

// SetTabs replaces the tab list wholesale, mirroring the session snapshot
// model: open tabs are saved and restored as one unit.
func (s *Store) SetTabs(tabs []board.Tab, active string) {
	s.mu.Lock()
	s.tabs = make([]board.Tab, len(tabs))
	copy(s.tabs, tabs)
	s.active = active
	s.mu.Unlock()
}

// Tab returns the tab with the given id.
func (s *Store) Tab(id string) (board.Tab, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tabs {
		if t.ID == id {
			return t, true
		}
	}
	return board.Tab{}, false
}

// Slugify turns a board name into a file-name-safe slug.
func Slugify(name string) string {
	var b strings.Builder
	prevDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
