package pad

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/board"
	"github.com/starford/ansuz/internal/docstore"
	"github.com/starford/ansuz/internal/storage"
)

// Manager owns the open pads. One pad exists per open editor surface; the
// GUI opens one per tab and re-selects nodes within it.
type Manager struct {
	mu     sync.Mutex
	pads   map[string]*Pad
	store  *docstore.Store
	logger *slog.Logger
	notify NotifyFunc
	wsRoot string

	interval time.Duration
	maxBytes int
}

// NewManager creates a pad manager. interval is the quiet period before a
// debounced commit; maxBytes caps preview loads (zero means no cap); wsRoot
// is the absolute workspace directory, used to match watcher events against
// path-mode pads.
func NewManager(store *docstore.Store, logger *slog.Logger, notify NotifyFunc, wsRoot string, interval time.Duration, maxBytes int) *Manager {
	return &Manager{
		pads:     map[string]*Pad{},
		store:    store,
		logger:   logger,
		notify:   notify,
		wsRoot:   wsRoot,
		interval: interval,
		maxBytes: maxBytes,
	}
}

// Open creates a pad for a tab and selects the given node (which may be
// nil for an initially empty pad).
func (m *Manager) Open(tab board.Tab, node *board.Node) *Pad {
	p := &Pad{
		ID:         uuid.NewString(),
		store:      m.store,
		logger:     m.logger,
		notify:     m.notify,
		debounced:  debounce.New(m.interval),
		maxBytes:   m.maxBytes,
		root:       m.rootFor(tab),
		state:      StateIdle,
		saveStatus: SaveIdle,
	}
	m.mu.Lock()
	m.pads[p.ID] = p
	m.mu.Unlock()
	p.Select(node)
	return p
}

// rootFor resolves a tab's persistence mode: a registered handle name wins,
// a bare base path is the desktop fallback.
func (m *Manager) rootFor(tab board.Tab) RootRef {
	ref := RootRef{
		DocPath: tab.BoardPath,
		Base:    tab.BasePath,
		Notes:   tab.Kind == board.TabNotes,
	}
	if tab.HandleName != "" {
		if h, ok := m.store.Handle(tab.HandleName); ok {
			ref.Handle = h
		}
	}
	return ref
}

// Get returns an open pad by id.
func (m *Manager) Get(id string) (*Pad, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pads[id]
	return p, ok
}

// Close flushes and removes a pad.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	p, ok := m.pads[id]
	delete(m.pads, id)
	m.mu.Unlock()
	if !ok {
		return apperr.ErrNotFound
	}
	return p.Close()
}

// NotifyExternal reports a watcher-observed workspace change to every open
// pad whose target is backed by that file. The pad does not reload by
// itself; the shell decides what to do with a changed backing file. A pad's
// own commit landing through the watcher is recognised by checksum and
// never reported, mirroring the self-write suppression on the board path.
func (m *Manager) NotifyExternal(kind, rel string) {
	change := strings.TrimPrefix(kind, "file.")
	abs := filepath.Join(m.wsRoot, rel)

	m.mu.Lock()
	pads := make([]*Pad, 0, len(m.pads))
	for _, p := range m.pads {
		pads = append(pads, p)
	}
	m.mu.Unlock()

	for _, p := range pads {
		snap := p.Snapshot()
		if snap.Path == "" || (snap.State != StateReady && snap.State != StateEmpty) {
			continue
		}
		match := snap.Path == rel
		if !match {
			p.mu.Lock()
			resolved := p.root.Handle == nil && storage.PathMode{Base: p.root.Base}.Resolve(snap.Path) == abs
			p.mu.Unlock()
			match = resolved
		}
		if match && !p.selfWrite() && m.notify != nil {
			m.notify("pad.external", map[string]any{
				"pad_id": snap.ID,
				"path":   snap.Path,
				"change": change,
			})
		}
	}
}

// Shutdown flushes every open pad. Called once at process exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	pads := make([]*Pad, 0, len(m.pads))
	for _, p := range m.pads {
		pads = append(pads, p)
	}
	m.pads = map[string]*Pad{}
	m.mu.Unlock()

	for _, p := range pads {
		if err := p.Close(); err != nil {
			m.logger.Warn("pad: shutdown flush failed",
				slog.String("pad", p.ID),
				slog.String("error", err.Error()))
		}
	}
}
