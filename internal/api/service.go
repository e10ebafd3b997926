package api

import (
	"fmt"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/board"
	"github.com/starford/ansuz/internal/docstore"
	"github.com/starford/ansuz/internal/markdown"
	"github.com/starford/ansuz/internal/pad"
	"github.com/starford/ansuz/internal/session"
)

// Service coordinates the document store, the pad engine, and the session
// store for the API layer.
type Service struct {
	store  *docstore.Store
	pads   *pad.Manager
	sess   *session.DB
	notify pad.NotifyFunc
}

// NewService creates a new API service. notify receives tab snapshot events
// for the event stream; nil disables them.
func NewService(store *docstore.Store, pads *pad.Manager, sess *session.DB, notify pad.NotifyFunc) *Service {
	return &Service{store: store, pads: pads, sess: sess, notify: notify}
}

// ListBoards lists every board document in the workspace.
func (s *Service) ListBoards() ([]docstore.BoardInfo, error) {
	return s.store.ListBoards()
}

// CreateBoard creates and persists an empty board named name.
func (s *Service) CreateBoard(name string) (*board.Document, string, error) {
	return s.store.CreateBoard(name)
}

// GetBoard returns the document root at the given workspace-relative path.
func (s *Service) GetBoard(rel string) (*board.Document, error) {
	return s.store.Board(rel)
}

// ReplaceBoard is the wholesale root setter the shell uses after canvas
// edits.
func (s *Service) ReplaceBoard(rel string, doc *board.Document) error {
	return s.store.Replace(rel, doc)
}

// DeleteBoard removes a board document. Tabs pointing at it stay in the
// snapshot until the shell replaces them; the restore pass drops them on
// the next start anyway.
func (s *Service) DeleteBoard(rel string) error {
	if err := s.store.Delete(rel); err != nil {
		return err
	}
	if s.notify != nil {
		s.notify("board.removed", map[string]any{"path": rel})
	}
	return nil
}

// ListNotes lists the cognitive notes with derived titles.
func (s *Service) ListNotes() ([]docstore.NoteInfo, error) {
	return s.store.ListNotes()
}

// OpenPad opens a pad on the given tab and selects node (which may be nil).
func (s *Service) OpenPad(tabID string, node *board.Node) (*pad.Pad, error) {
	tab, ok := s.store.Tab(tabID)
	if !ok {
		return nil, fmt.Errorf("api: open pad: tab %s: %w", tabID, apperr.ErrNotFound)
	}
	return s.pads.Open(tab, node), nil
}

// Pad returns an open pad by id.
func (s *Service) Pad(id string) (*pad.Pad, error) {
	p, ok := s.pads.Get(id)
	if !ok {
		return nil, fmt.Errorf("api: pad %s: %w", id, apperr.ErrNotFound)
	}
	return p, nil
}

// ClosePad flushes and removes a pad.
func (s *Service) ClosePad(id string) error {
	return s.pads.Close(id)
}

// Tabs returns the live tab list and the active tab id.
func (s *Service) Tabs() ([]board.Tab, string) {
	return s.store.Tabs()
}

// SetTabs replaces the session snapshot: the live tab list, the persisted
// copy, and a tabs.updated event for other shells.
func (s *Service) SetTabs(tabs []board.Tab, active string) error {
	s.store.SetTabs(tabs, active)
	if err := s.sess.SaveTabs(tabs, active); err != nil {
		return err
	}
	if s.notify != nil {
		s.notify("tabs.updated", map[string]any{"active": active, "count": len(tabs)})
	}
	return nil
}

// Setting returns one shell preference.
func (s *Service) Setting(key string) (string, bool, error) {
	return s.sess.GetSetting(key)
}

// SetSetting stores one shell preference.
func (s *Service) SetSetting(key, value string) error {
	return s.sess.SetSetting(key, value)
}

// ClipboardMarkdown converts a pasted payload to markdown. Conversion
// failures fall back to the plain-text part; the paste must never be lost.
func (s *Service) ClipboardMarkdown(html, text string) string {
	out, err := markdown.FromClipboard(html, text)
	if err != nil {
		return text
	}
	return out
}
