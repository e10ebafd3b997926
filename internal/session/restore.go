package session

import (
	"log/slog"

	"github.com/starford/ansuz/internal/board"
	"github.com/starford/ansuz/internal/storage"
)

// Restore loads the persisted session and reconciles it against the current
// workspace. Tabs whose board document no longer exists on disk are
// dropped; tabs referencing a handle name that is no longer registered
// degrade to path mode. Restore never fails startup: any load error
// degrades to an empty session with a logged warning.
func Restore(db *DB, ws storage.Provider, handleRegistered func(name string) bool, logger *slog.Logger) ([]board.Tab, string) {
	tabs, active, err := db.LoadTabs()
	if err != nil {
		logger.Warn("session: restore failed, starting empty",
			slog.String("error", err.Error()))
		return nil, ""
	}

	kept := make([]board.Tab, 0, len(tabs))
	for _, t := range tabs {
		if t.BoardPath != "" {
			if _, err := ws.Stat(t.BoardPath); err != nil {
				logger.Warn("session: dropping tab, board file missing",
					slog.String("tab", t.ID),
					slog.String("board", t.BoardPath))
				continue
			}
		}
		if t.HandleName != "" && !handleRegistered(t.HandleName) {
			logger.Warn("session: handle no longer registered, degrading to path mode",
				slog.String("tab", t.ID),
				slog.String("handle", t.HandleName))
			t.HandleName = ""
		}
		kept = append(kept, t)
	}

	activeFound := false
	for _, t := range kept {
		if t.ID == active {
			activeFound = true
			break
		}
	}
	if !activeFound {
		active = ""
		if len(kept) > 0 {
			active = kept[0].ID
		}
	}
	return kept, active
}
