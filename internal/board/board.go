// Package board defines the domain types for Ansuz: mind-map documents as
// graphs of nodes and edges, plus the per-document metadata the pad engine
// maintains (timestamps and the file-view index).
package board

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a node on the canvas.
type Kind string

const (
	KindFile      Kind = "file"
	KindFlowchart Kind = "flowchart"
	KindImage     Kind = "image"
	KindShield    Kind = "shield"
	KindYouTube   Kind = "youtube"
)

// Node is a single element on the canvas. Path is the node's own canonical
// file path (file kinds); DetailsPath is an associated external-file
// reference (flowchart, image and shield kinds). A node may carry both.
type Node struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	Label        string    `json:"label,omitempty"`
	Path         string    `json:"path,omitempty"`
	DetailsPath  string    `json:"details_path,omitempty"`
	Shape        string    `json:"shape,omitempty"`
	URL          string    `json:"url,omitempty"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	W            float64   `json:"w,omitempty"`
	H            float64   `json:"h,omitempty"`
	UpdatedOn    time.Time `json:"updated_on"`
	LastViewedOn time.Time `json:"last_viewed_on"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// Document is the full in-memory structure for one document root. FileViews
// maps file paths to their last activity timestamp; regular file-tree roots
// carry it, cognitive-notes roots leave it nil. That asymmetry is a contract:
// patch helpers skip the index when it is absent.
type Document struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Nodes     []Node               `json:"nodes"`
	Edges     []Edge               `json:"edges"`
	FileViews map[string]time.Time `json:"file_views"`
	UpdatedOn time.Time            `json:"updated_on"`
}

// New creates an empty regular (file-tree) document root.
func New(name string) *Document {
	return &Document{
		ID:        uuid.NewString(),
		Name:      name,
		Nodes:     []Node{},
		Edges:     []Edge{},
		FileViews: map[string]time.Time{},
		UpdatedOn: time.Now().UTC(),
	}
}

// NewNotes creates an empty cognitive-notes document root. Notes roots never
// carry a file-view index.
func NewNotes(name string) *Document {
	return &Document{
		ID:        uuid.NewString(),
		Name:      name,
		Nodes:     []Node{},
		Edges:     []Edge{},
		UpdatedOn: time.Now().UTC(),
	}
}
