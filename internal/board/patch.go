package board

import (
	"sort"
	"time"
)

// Clone returns a deep copy of the document. Update flows read the current
// root, patch a clone, and hand it back wholesale; the original is never
// mutated in place.
func (d *Document) Clone() *Document {
	c := &Document{
		ID:        d.ID,
		Name:      d.Name,
		Nodes:     make([]Node, len(d.Nodes)),
		Edges:     make([]Edge, len(d.Edges)),
		UpdatedOn: d.UpdatedOn,
	}
	copy(c.Nodes, d.Nodes)
	copy(c.Edges, d.Edges)
	if d.FileViews != nil {
		c.FileViews = make(map[string]time.Time, len(d.FileViews))
		for p, ts := range d.FileViews {
			c.FileViews[p] = ts
		}
	}
	return c
}

// FindNode returns the node with the given id, or nil.
func (d *Document) FindNode(id string) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// TouchNode sets the node's updated_on timestamp by identity match on id,
// touching no content fields. Returns false when the node is not present.
func (d *Document) TouchNode(id string, now time.Time) bool {
	n := d.FindNode(id)
	if n == nil {
		return false
	}
	n.UpdatedOn = now
	d.UpdatedOn = now
	return true
}

// RefreshFileView records activity on path in the file-view index. The map
// is created on first use; callers only invoke this on regular roots.
func (d *Document) RefreshFileView(path string, now time.Time) {
	if path == "" {
		return
	}
	if d.FileViews == nil {
		d.FileViews = map[string]time.Time{}
	}
	d.FileViews[path] = now
	d.UpdatedOn = now
}

// MarkViewed records that a node was opened: its last_viewed_on marker is
// set, and on roots that carry a file-view index the resolved path is
// recorded there too. Returns false when the node is not present.
func (d *Document) MarkViewed(id, path string, now time.Time) bool {
	n := d.FindNode(id)
	if n == nil {
		return false
	}
	n.LastViewedOn = now
	if d.FileViews != nil && path != "" {
		d.FileViews[path] = now
	}
	return true
}

// FileView is one entry of the file-view index.
type FileView struct {
	Path     string    `json:"path"`
	ViewedOn time.Time `json:"viewed_on"`
}

// RecentFiles returns file-view entries sorted most recent first. A limit of
// zero or less returns all entries.
func (d *Document) RecentFiles(limit int) []FileView {
	views := make([]FileView, 0, len(d.FileViews))
	for p, ts := range d.FileViews {
		views = append(views, FileView{Path: p, ViewedOn: ts})
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].ViewedOn.Equal(views[j].ViewedOn) {
			return views[i].Path < views[j].Path
		}
		return views[i].ViewedOn.After(views[j].ViewedOn)
	})
	if limit > 0 && len(views) > limit {
		views = views[:limit]
	}
	return views
}
