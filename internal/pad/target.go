// Package pad implements the SmartPad engine: resolving a selected board
// node to a file target, classifying it for text preview, loading it
// through a last-request-wins state machine, and persisting edits through a
// debounced, idempotent commit.
package pad

import "github.com/starford/ansuz/internal/board"

// Target is the resolved file reference for a selected node. Associated
// marks a details-path reference (flowchart, image and shield kinds) as
// opposed to a plain file node's own path.
type Target struct {
	NodeID     string
	Kind       board.Kind
	Path       string
	Associated bool
	Flowchart  bool
}

// ResolveTarget maps a selected node to the file it refers to. Decision
// order matters: a node can carry both an own path and an associated
// details path, and associated wins. A plain file node resolves even with
// an empty path; classification turns that into ineligible without a read.
// The second return is false when the node has no target at all.
func ResolveTarget(n *board.Node) (Target, bool) {
	if n == nil {
		return Target{}, false
	}
	associatedKind := n.Kind == board.KindFlowchart || n.Kind == board.KindShield || n.Kind == board.KindImage
	switch {
	case n.DetailsPath != "" && associatedKind:
		return Target{
			NodeID:     n.ID,
			Kind:       n.Kind,
			Path:       n.DetailsPath,
			Associated: true,
			Flowchart:  n.Kind == board.KindFlowchart,
		}, true
	case n.Kind == board.KindFile:
		return Target{
			NodeID: n.ID,
			Kind:   n.Kind,
			Path:   n.Path,
		}, true
	default:
		return Target{}, false
	}
}
