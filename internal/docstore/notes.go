package docstore

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/board"
	"github.com/starford/ansuz/internal/markdown"
)

// NoteInfo is a listing entry for one cognitive note.
type NoteInfo struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Size      int64     `json:"size"`
	UpdatedOn time.Time `json:"updated_on"`
}

// notesRootFile is the document root for the cognitive-notes module, stored
// alongside the notes themselves.
const notesRootFile = "root.json"

// NotesRootPath returns the workspace-relative path of the notes root
// document.
func (s *Store) NotesRootPath() string {
	return path.Join(s.notesDir, notesRootFile)
}

// EnsureNotesRoot loads the cognitive-notes root, creating an empty one on
// first run. Any load failure counts as first run. Notes roots never carry
// a file-view index.
func (s *Store) EnsureNotesRoot() (*board.Document, error) {
	rel := s.NotesRootPath()
	if doc, err := s.Board(rel); err == nil {
		return doc, nil
	}
	doc := board.NewNotes("Cognitive Notes")
	if err := s.Replace(rel, doc); err != nil {
		return nil, fmt.Errorf("docstore: create notes root: %w", err)
	}
	return doc, nil
}

// ListNotes returns every markdown note under the notes directory with a
// derived title: frontmatter first, then the first heading, then the file
// name.
func (s *Store) ListNotes() ([]NoteInfo, error) {
	entries, err := s.ws.List(s.notesDir, ".md")
	if err != nil {
		return nil, fmt.Errorf("docstore: list notes: %w", err)
	}
	out := make([]NoteInfo, 0, len(entries))
	for _, e := range entries {
		fallback := strings.TrimSuffix(path.Base(e.Path), ".md")
		title := fallback
		if data, err := s.ws.Read(e.Path); err == nil {
			title = markdown.DeriveTitle(data, fallback)
		}
		out = append(out, NoteInfo{
			Path:      e.Path,
			Title:     title,
			Size:      e.Size,
			UpdatedOn: e.ModTime,
		})
	}
	return out, nil
}
