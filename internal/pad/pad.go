package pad

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/board"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/docstore"
	"github.com/starford/ansuz/internal/markdown"
	"github.com/starford/ansuz/internal/storage"
)

// State is the preview state of a pad.
type State string

const (
	StateIdle       State = "idle"
	StateIneligible State = "ineligible"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateEmpty      State = "empty"
	StateError      State = "error"
)

// SaveStatus tracks persistence progress. It is derived from dirty
// transitions and commit completion, never an independent source of truth.
type SaveStatus string

const (
	SaveIdle   SaveStatus = "idle"
	SaveSaving SaveStatus = "saving"
	SaveSaved  SaveStatus = "saved"
	SaveError  SaveStatus = "error"
)

// RootRef describes where a pad persists: the owning document root for
// metadata updates, and exactly one active persistence mode. A non-nil
// Handle wins; otherwise Base selects path mode; neither means commits fail
// with ErrNoPersistMode.
type RootRef struct {
	DocPath string
	Handle  *storage.FS
	Base    string
	Notes   bool
}

// NotifyFunc receives pad events for the event stream. Implementations must
// not block.
type NotifyFunc func(event string, data map[string]any)

// Pad is one SmartPad instance: the preview/edit state for the currently
// selected node of one tab. All transitions run under the pad's mutex; the
// request sequence number drops stale load completions.
type Pad struct {
	ID string

	mu        sync.Mutex
	store     *docstore.Store
	logger    *slog.Logger
	notify    NotifyFunc
	debounced func(func())
	maxBytes  int

	root      RootRef
	target    Target
	hasTarget bool

	seq     uint64
	state   State
	content string
	isMD    bool
	preview bool

	buffer     string
	lastSaved  string
	dirty      bool
	saveStatus SaveStatus
	caret      Caret

	lastViewedNode string
	closed         bool
}

// Snapshot is the externally visible pad state.
type Snapshot struct {
	ID         string     `json:"id"`
	NodeID     string     `json:"node_id,omitempty"`
	Path       string     `json:"path,omitempty"`
	Associated bool       `json:"associated"`
	Flowchart  bool       `json:"flowchart"`
	State      State      `json:"state"`
	Content    string     `json:"content"`
	Buffer     string     `json:"buffer"`
	Markdown   bool       `json:"markdown"`
	Preview    bool       `json:"preview"`
	Dirty      bool       `json:"dirty"`
	SaveStatus SaveStatus `json:"save_status"`
	Seq        uint64     `json:"seq"`
}

// Snapshot returns the current pad state.
func (p *Pad) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		ID:         p.ID,
		NodeID:     p.target.NodeID,
		Path:       p.target.Path,
		Associated: p.target.Associated,
		Flowchart:  p.target.Flowchart,
		State:      p.state,
		Content:    p.content,
		Buffer:     p.buffer,
		Markdown:   p.isMD,
		Preview:    p.preview,
		Dirty:      p.dirty,
		SaveStatus: p.saveStatus,
		Seq:        p.seq,
	}
}

// Select accepts a new node selection. Re-selecting the current node is a
// no-op. A switch away from a dirty buffer commits it first, best-effort,
// before the pad resets; losing unsaved edits to a selection change would
// be unrecoverable, a failed flush merely stays on disk as it was.
func (p *Pad) Select(node *board.Node) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return
	}
	if node != nil && p.hasTarget && p.target.NodeID == node.ID {
		p.mu.Unlock()
		return
	}

	if p.dirty {
		if err := p.commitLocked(); err != nil {
			p.logger.Warn("pad: flush before switch failed",
				slog.String("pad", p.ID),
				slog.String("path", p.target.Path),
				slog.String("error", err.Error()))
		}
	}

	// Invalidate any in-flight load for the previous target.
	p.seq++
	captured := p.seq

	target, ok := ResolveTarget(node)
	if !ok {
		p.resetLocked(StateIdle)
		p.publishStatusLocked()
		p.mu.Unlock()
		return
	}

	p.target = target
	p.hasTarget = true
	p.buffer = ""
	p.lastSaved = ""
	p.content = ""
	p.dirty = false
	p.saveStatus = SaveIdle
	p.caret = Caret{}

	elig := Classify(target.Path)
	p.isMD = elig.Markdown

	// Empty paths and, in path mode, disallowed extensions classify without
	// a read. Handle-backed loads read first so MIME can widen acceptance.
	if target.Path == "" || (p.root.Handle == nil && !elig.Eligible) {
		p.state = StateIneligible
		p.publishStatusLocked()
		p.mu.Unlock()
		p.trackView(target)
		return
	}

	p.state = StateLoading
	p.publishStatusLocked()
	p.mu.Unlock()

	go p.load(captured, target)
	p.trackView(target)
}

// resetLocked tears the pad down to the given state.
func (p *Pad) resetLocked(s State) {
	p.target = Target{}
	p.hasTarget = false
	p.state = s
	p.content = ""
	p.buffer = ""
	p.lastSaved = ""
	p.dirty = false
	p.isMD = false
	p.saveStatus = SaveIdle
	p.caret = Caret{}
}

// load performs the dispatched read and applies the result, unless a newer
// request superseded it while the read was in flight.
func (p *Pad) load(captured uint64, target Target) {
	var (
		data []byte
		mt   string
		err  error
	)
	if p.root.Handle != nil {
		data, mt, err = p.root.Handle.ReadSniff(target.Path)
	} else {
		data, err = storage.PathMode{Base: p.root.Base}.Read(target.Path)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Stale completions are dropped unconditionally: no state update, no
	// side effect. Last request wins, not first response.
	if captured != p.seq {
		return
	}

	if err != nil {
		p.state = StateError
		p.content = ""
		p.logger.Error("pad: load failed",
			slog.String("pad", p.ID),
			slog.String("path", target.Path),
			slog.String("error", err.Error()))
		p.publishStatusLocked()
		return
	}

	if p.maxBytes > 0 && len(data) > p.maxBytes {
		p.state = StateError
		p.content = ""
		p.logger.Warn("pad: file exceeds preview limit",
			slog.String("pad", p.ID),
			slog.String("path", target.Path),
			slog.Int("size", len(data)),
			slog.String("error", apperr.ErrTooLarge.Error()))
		p.publishStatusLocked()
		return
	}

	if !utf8.Valid(data) {
		p.state = StateError
		p.content = ""
		p.logger.Warn("pad: content is not valid utf-8",
			slog.String("pad", p.ID),
			slog.String("path", target.Path))
		p.publishStatusLocked()
		return
	}

	if p.root.Handle != nil {
		elig := ClassifyMIME(target.Path, mt)
		if !elig.Eligible {
			p.state = StateIneligible
			p.content = ""
			p.publishStatusLocked()
			return
		}
		p.isMD = elig.Markdown
	}

	content := string(data)
	p.content = content
	p.buffer = content
	p.lastSaved = content
	p.dirty = false
	p.saveStatus = SaveIdle
	if len(content) == 0 {
		p.state = StateEmpty
	} else {
		p.state = StateReady
	}
	p.publishStatusLocked()
}

// Edit applies a buffer change from the editor surface. The caret rides
// along so the commit can snapshot it later. Dirty is recomputed against
// the last-saved content on every edit; a dirty transition optimistically
// reports saving while the actual write waits out the quiet period.
func (p *Pad) Edit(content string, caret Caret) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return apperr.ErrClosed
	}
	if p.state != StateReady && p.state != StateEmpty {
		return fmt.Errorf("pad: not editable in state %s: %w", p.state, apperr.ErrConflict)
	}

	p.buffer = content
	p.caret = caret
	wasDirty := p.dirty
	p.dirty = p.buffer != p.lastSaved

	switch {
	case p.dirty && !wasDirty:
		p.saveStatus = SaveSaving
		p.publishStatusLocked()
	case !p.dirty && wasDirty:
		// The user typed and then undid; nothing left to persist.
		if p.saveStatus == SaveSaving {
			p.saveStatus = SaveIdle
		}
		p.publishStatusLocked()
	}

	if p.dirty {
		p.debounced(func() {
			if err := p.Commit(); err != nil {
				p.logger.Error("pad: debounced commit failed",
					slog.String("pad", p.ID),
					slog.String("error", err.Error()))
			}
		})
	}
	return nil
}

// SetPreview toggles markdown preview mode. The buffer survives toggling in
// both directions: both surfaces mirror the same backing string.
func (p *Pad) SetPreview(on bool) {
	p.mu.Lock()
	p.preview = on
	p.mu.Unlock()
}

// Render returns the buffer rendered to HTML.
func (p *Pad) Render() (string, error) {
	p.mu.Lock()
	buf := p.buffer
	p.mu.Unlock()
	return markdown.Render(buf)
}

// Commit runs the save algorithm now. It is idempotent: a commit that finds
// nothing to do is a successful no-op, so a debounce timer firing after an
// unrelated resave or selection change is harmless.
func (p *Pad) Commit() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commitLocked()
}

func (p *Pad) commitLocked() error {
	// Step 1: nothing to commit.
	if !p.hasTarget || !p.dirty || (p.state != StateReady && p.state != StateEmpty) {
		return nil
	}

	// Step 2: buffer drifted back to the saved content.
	if p.buffer == p.lastSaved {
		p.dirty = false
		if p.saveStatus == SaveSaving {
			p.saveStatus = SaveIdle
		}
		return nil
	}

	// Step 3: snapshot the caret and focus for restoration.
	caret := p.caret

	// Step 4: pick the persistence mode.
	if p.root.Handle == nil && p.root.Base == "" {
		p.saveStatus = SaveError
		p.logger.Error("pad: no persistence mode for root",
			slog.String("pad", p.ID),
			slog.String("doc", p.root.DocPath))
		return fmt.Errorf("pad: commit %s: %w", p.target.Path, apperr.ErrNoPersistMode)
	}

	// Step 5: write the buffer through the active mode.
	buf := p.buffer
	var err error
	if p.root.Handle != nil {
		err = p.root.Handle.Write(p.target.Path, []byte(buf))
	} else {
		err = storage.PathMode{Base: p.root.Base}.Write(p.target.Path, []byte(buf))
	}
	if err == nil {
		// Step 6: metadata, asymmetric on purpose. Associated flowchart
		// targets touch only the node timestamp; plain file nodes on a
		// regular root refresh the file-view index; associated image and
		// shield targets update nothing.
		now := time.Now().UTC()
		switch {
		case p.target.Associated && p.target.Flowchart:
			err = p.store.Update(p.root.DocPath, func(doc *board.Document) error {
				doc.TouchNode(p.target.NodeID, now)
				return nil
			})
		case !p.target.Associated && !p.root.Notes:
			err = p.store.Update(p.root.DocPath, func(doc *board.Document) error {
				doc.RefreshFileView(p.target.Path, now)
				return nil
			})
		}
	}

	if err != nil {
		// Step 8: the buffer stays dirty so the next edit or timer cycle
		// retries; no automatic retry beyond that.
		p.saveStatus = SaveError
		p.logger.Error("pad: save failed",
			slog.String("pad", p.ID),
			slog.String("path", p.target.Path),
			slog.String("error", err.Error()))
		p.publish("pad.save_error", map[string]any{
			"pad_id":  p.ID,
			"node_id": p.target.NodeID,
			"path":    p.target.Path,
			"error":   err.Error(),
		})
		return fmt.Errorf("pad: commit %s: %w", p.target.Path, err)
	}

	// Step 7: the write is the new baseline.
	p.lastSaved = buf
	p.dirty = p.buffer != p.lastSaved
	p.saveStatus = SaveSaved

	saved := map[string]any{
		"pad_id":  p.ID,
		"node_id": p.target.NodeID,
		"path":    p.target.Path,
		"focus":   caret.Focus,
	}
	if caret.Focus && !p.preview {
		if remapped, ok := caret.Remap(buf); ok {
			saved["caret_start"] = remapped.Start
			saved["caret_end"] = remapped.End
		} else {
			// Degrade to focus-only restoration rather than propagate.
			p.logger.Warn("pad: caret remap failed, restoring focus only",
				slog.String("pad", p.ID),
				slog.String("path", p.target.Path))
		}
	}
	p.publish("pad.saved", saved)
	return nil
}

// trackView fires the view-tracking side channel for plain file selections.
// Best-effort and fully silent: failures never block or surface. The
// last-viewed guard keeps repeat selections of the same node from
// re-triggering the update.
func (p *Pad) trackView(target Target) {
	if target.Associated || target.Path == "" {
		return
	}
	p.mu.Lock()
	if p.lastViewedNode == target.NodeID {
		p.mu.Unlock()
		return
	}
	p.lastViewedNode = target.NodeID
	docPath := p.root.DocPath
	p.mu.Unlock()

	go func() {
		now := time.Now().UTC()
		err := p.store.Update(docPath, func(doc *board.Document) error {
			doc.MarkViewed(target.NodeID, target.Path, now)
			return nil
		})
		if err != nil {
			p.logger.Debug("pad: view tracking skipped",
				slog.String("pad", p.ID),
				slog.String("node", target.NodeID),
				slog.String("error", err.Error()))
		}
	}()
}

// selfWrite reports whether the target's on-disk content matches what this
// pad last persisted. A debounced commit lands as a rename the watcher
// cannot tell from an external write; the checksum can.
func (p *Pad) selfWrite() bool {
	p.mu.Lock()
	handle := p.root.Handle
	base := p.root.Base
	path := p.target.Path
	last := p.lastSaved
	p.mu.Unlock()

	var (
		data []byte
		err  error
	)
	if handle != nil {
		data, err = handle.Read(path)
	} else {
		data, err = storage.PathMode{Base: base}.Read(path)
	}
	if err != nil {
		return false
	}
	return checksum.Sum(data) == checksum.Sum([]byte(last))
}

// Close flushes a dirty buffer and marks the pad unusable.
func (p *Pad) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	err := p.commitLocked()
	p.closed = true
	p.seq++ // drop any in-flight load
	return err
}

// publishStatusLocked emits the pad.status event for the current state.
func (p *Pad) publishStatusLocked() {
	p.publish("pad.status", map[string]any{
		"pad_id":      p.ID,
		"node_id":     p.target.NodeID,
		"state":       string(p.state),
		"markdown":    p.isMD,
		"dirty":       p.dirty,
		"save_status": string(p.saveStatus),
	})
}

func (p *Pad) publish(event string, data map[string]any) {
	if p.notify != nil {
		p.notify(event, data)
	}
}
