package api

import (
	"github.com/starford/ansuz/internal/board"
	"github.com/starford/ansuz/internal/docstore"
	"github.com/starford/ansuz/internal/embed"
	"github.com/starford/ansuz/internal/pad"
)

// CreateBoardRequest is the request body for creating a board.
type CreateBoardRequest struct {
	Name string `json:"name" example:"Project Atlas" validate:"required"`
}

// CreateBoardResponse is returned after a successful board creation.
type CreateBoardResponse struct {
	Path  string          `json:"path" example:"boards/project-atlas.json" validate:"required"`
	Board *board.Document `json:"board" validate:"required"`
}

// BoardListResponse wraps the board listing.
type BoardListResponse struct {
	Boards []docstore.BoardInfo `json:"boards" validate:"required"`
	Total  int                  `json:"total" example:"3" validate:"required"`
}

// NoteListResponse wraps the cognitive-notes listing.
type NoteListResponse struct {
	Notes []docstore.NoteInfo `json:"notes" validate:"required"`
	Total int                 `json:"total" example:"12" validate:"required"`
}

// OpenPadRequest is the request body for opening a pad. Node may be omitted
// for an initially empty pad.
type OpenPadRequest struct {
	TabID string      `json:"tab_id" example:"f4b2..." validate:"required"`
	Node  *board.Node `json:"node,omitempty"`
}

// SelectRequest changes a pad's selection. An absent node clears it.
type SelectRequest struct {
	Node *board.Node `json:"node,omitempty"`
}

// EditRequest is the request body for a buffer edit. Caret offsets are
// plain-text rune counts from the start of the editor surface.
type EditRequest struct {
	Content    string `json:"content"`
	CaretStart int    `json:"caret_start" example:"10"`
	CaretEnd   int    `json:"caret_end" example:"10"`
	Focus      bool   `json:"focus" example:"true"`
}

// ModeRequest toggles markdown preview mode.
type ModeRequest struct {
	MarkdownPreview bool `json:"markdown_preview"`
}

// RenderResponse carries the rendered buffer.
type RenderResponse struct {
	HTML string `json:"html" validate:"required"`
}

// PadSnapshot is the externally visible pad state (aliased from the engine).
type PadSnapshot = pad.Snapshot

// TabsRequest is the request body for replacing the session snapshot.
type TabsRequest struct {
	Tabs   []board.Tab `json:"tabs" validate:"required"`
	Active string      `json:"active" example:"f4b2..."`
}

// TabsResponse wraps the current session snapshot.
type TabsResponse struct {
	Tabs   []board.Tab `json:"tabs" validate:"required"`
	Active string      `json:"active"`
}

// SettingResponse carries one shell preference.
type SettingResponse struct {
	Key   string `json:"key" example:"active_tab" validate:"required"`
	Value string `json:"value" example:"f4b2..."`
}

// SettingRequest sets one shell preference.
type SettingRequest struct {
	Value string `json:"value"`
}

// ClipboardRequest carries a pasted payload: the rich HTML part when the
// source supplied one, and the plain-text fallback.
type ClipboardRequest struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

// ClipboardResponse carries the converted markdown.
type ClipboardResponse struct {
	Markdown string `json:"markdown" validate:"required"`
}

// EmbedResponse is the resolved video metadata (aliased from the resolver).
type EmbedResponse = embed.Embed

// AttachmentUploadResponse is returned after a successful attachment upload.
// Path is workspace-relative and ready to store as a node's details_path.
type AttachmentUploadResponse struct {
	Path string `json:"path" example:"attachments/8f3a2c1b-diagram.png" validate:"required"`
	Size int64  `json:"size" example:"12345" validate:"required"`
	URL  string `json:"url" example:"/api/attachments/8f3a2c1b-diagram.png" validate:"required"`
}
