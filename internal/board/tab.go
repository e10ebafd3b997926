package board

import "time"

// TabKind selects which module an open tab shows.
type TabKind string

const (
	TabBoard TabKind = "board"
	TabNotes TabKind = "notes"
)

// Tab is one open workspace tab. BoardPath names the owning document root
// (workspace-relative). Persistence mode is chosen by presence: a registered
// handle name wins, a bare base path is the desktop fallback.
type Tab struct {
	ID         string    `json:"id"`
	Position   int       `json:"position"`
	Kind       TabKind   `json:"kind"`
	BoardPath  string    `json:"board_path"`
	BasePath   string    `json:"base_path,omitempty"`
	HandleName string    `json:"handle_name,omitempty"`
	CreatedOn  time.Time `json:"created_on"`
}
