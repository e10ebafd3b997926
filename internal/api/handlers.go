package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/board"
	"github.com/starford/ansuz/internal/embed"
	"github.com/starford/ansuz/internal/pad"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// wildcardPath extracts the trailing path from the URL (everything after the
// route prefix). Supports encoded slashes from OpenAPI clients
// (e.g. boards%2Fatlas.json).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeServiceError maps sentinel errors onto HTTP statuses; anything else
// is a logged 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalidPath):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrClosed):
		writeJSON(w, http.StatusGone, errorBody("pad closed"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListBoards handles GET /api/boards.
//
//	@Summary		List board documents
//	@Tags			boards
//	@Produce		json
//	@Success		200	{object}	BoardListResponse
//	@Security		BearerAuth
//	@Router			/boards [get]
func (h *Handler) ListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.svc.ListBoards()
	if err != nil {
		writeServiceError(w, "list boards", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"boards": boards,
		"total":  len(boards),
	})
}

// CreateBoard handles POST /api/boards.
//
//	@Summary		Create a new board document
//	@Tags			boards
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateBoardRequest	true	"Board to create"
//	@Success		201		{object}	CreateBoardResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards [post]
func (h *Handler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateBoardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	doc, rel, err := h.svc.CreateBoard(req.Name)
	if err != nil {
		writeServiceError(w, "create board", err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateBoardResponse{Path: rel, Board: doc})
}

// GetBoard handles GET /api/boards/*.
//
//	@Summary		Get a board document by path
//	@Tags			boards
//	@Produce		json
//	@Param			path	path		string	true	"Board path"
//	@Success		200		{object}	board.Document
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{path} [get]
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	rel := wildcardPath(r)
	if rel == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.GetBoard(rel)
	if err != nil {
		writeServiceError(w, "get board", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// PutBoard handles PUT /api/boards/*. The update unit is the whole root
// document, never a field.
//
//	@Summary		Replace a board document wholesale
//	@Tags			boards
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string			true	"Board path"
//	@Param			body	body		board.Document	true	"Replacement root"
//	@Success		200		{object}	board.Document
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{path} [put]
func (h *Handler) PutBoard(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	rel := wildcardPath(r)
	if rel == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var doc board.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.ReplaceBoard(rel, &doc); err != nil {
		writeServiceError(w, "put board", err)
		return
	}
	writeJSON(w, http.StatusOK, &doc)
}

// DeleteBoard handles DELETE /api/boards/*.
//
//	@Summary		Delete a board document
//	@Tags			boards
//	@Param			path	path	string	true	"Board path"
//	@Success		204		"Board deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{path} [delete]
func (h *Handler) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	rel := wildcardPath(r)
	if rel == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteBoard(rel); err != nil {
		writeServiceError(w, "delete board", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List cognitive notes with derived titles
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.ListNotes()
	if err != nil {
		writeServiceError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notes": notes,
		"total": len(notes),
	})
}

// OpenPad handles POST /api/pads.
//
//	@Summary		Open a pad for a tab and select a node
//	@Tags			pads
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenPadRequest	true	"Tab and optional initial node"
//	@Success		201		{object}	PadSnapshot
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pads [post]
func (h *Handler) OpenPad(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req OpenPadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.TabID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("tab_id is required"))
		return
	}
	p, err := h.svc.OpenPad(req.TabID, req.Node)
	if err != nil {
		writeServiceError(w, "open pad", err)
		return
	}
	writeJSON(w, http.StatusCreated, p.Snapshot())
}

// padFromRequest resolves the {padID} URL parameter to an open pad.
func (h *Handler) padFromRequest(w http.ResponseWriter, r *http.Request) (*pad.Pad, bool) {
	id := chi.URLParam(r, "padID")
	p, err := h.svc.Pad(id)
	if err != nil {
		writeServiceError(w, "resolve pad", err)
		return nil, false
	}
	return p, true
}

// GetPad handles GET /api/pads/{padID}.
//
//	@Summary		Get the current pad state
//	@Tags			pads
//	@Produce		json
//	@Param			padID	path		string	true	"Pad id"
//	@Success		200		{object}	PadSnapshot
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pads/{padID} [get]
func (h *Handler) GetPad(w http.ResponseWriter, r *http.Request) {
	p, ok := h.padFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

// SelectNode handles POST /api/pads/{padID}/select.
//
//	@Summary		Change a pad's node selection
//	@Tags			pads
//	@Accept			json
//	@Produce		json
//	@Param			padID	path		string			true	"Pad id"
//	@Param			body	body		SelectRequest	true	"Node to select (empty to clear)"
//	@Success		200		{object}	PadSnapshot
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pads/{padID}/select [post]
func (h *Handler) SelectNode(w http.ResponseWriter, r *http.Request) {
	p, ok := h.padFromRequest(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	p.Select(req.Node)
	writeJSON(w, http.StatusOK, p.Snapshot())
}

// EditBuffer handles PUT /api/pads/{padID}/buffer.
//
//	@Summary		Apply a buffer edit with caret metadata
//	@Tags			pads
//	@Accept			json
//	@Produce		json
//	@Param			padID	path		string		true	"Pad id"
//	@Param			body	body		EditRequest	true	"Buffer content and caret"
//	@Success		200		{object}	PadSnapshot
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pads/{padID}/buffer [put]
func (h *Handler) EditBuffer(w http.ResponseWriter, r *http.Request) {
	p, ok := h.padFromRequest(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	caret := pad.Caret{Start: req.CaretStart, End: req.CaretEnd, Focus: req.Focus}
	if err := p.Edit(req.Content, caret); err != nil {
		writeServiceError(w, "edit buffer", err)
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

// CommitPad handles POST /api/pads/{padID}/commit.
//
//	@Summary		Run the save algorithm now instead of waiting out the quiet period
//	@Tags			pads
//	@Produce		json
//	@Param			padID	path		string	true	"Pad id"
//	@Success		200		{object}	PadSnapshot
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pads/{padID}/commit [post]
func (h *Handler) CommitPad(w http.ResponseWriter, r *http.Request) {
	p, ok := h.padFromRequest(w, r)
	if !ok {
		return
	}
	if err := p.Commit(); err != nil {
		writeServiceError(w, "commit pad", err)
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

// SetPadMode handles PUT /api/pads/{padID}/mode.
//
//	@Summary		Toggle markdown preview mode
//	@Tags			pads
//	@Accept			json
//	@Produce		json
//	@Param			padID	path		string		true	"Pad id"
//	@Param			body	body		ModeRequest	true	"Preview flag"
//	@Success		200		{object}	PadSnapshot
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pads/{padID}/mode [put]
func (h *Handler) SetPadMode(w http.ResponseWriter, r *http.Request) {
	p, ok := h.padFromRequest(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	p.SetPreview(req.MarkdownPreview)
	writeJSON(w, http.StatusOK, p.Snapshot())
}

// RenderPad handles GET /api/pads/{padID}/render.
//
//	@Summary		Render the current buffer to HTML
//	@Tags			pads
//	@Produce		json
//	@Param			padID	path		string	true	"Pad id"
//	@Success		200		{object}	RenderResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pads/{padID}/render [get]
func (h *Handler) RenderPad(w http.ResponseWriter, r *http.Request) {
	p, ok := h.padFromRequest(w, r)
	if !ok {
		return
	}
	html, err := p.Render()
	if err != nil {
		writeServiceError(w, "render pad", err)
		return
	}
	writeJSON(w, http.StatusOK, RenderResponse{HTML: html})
}

// ClosePad handles DELETE /api/pads/{padID}. A dirty buffer is flushed
// before the pad goes away.
//
//	@Summary		Close a pad
//	@Tags			pads
//	@Param			padID	path	string	true	"Pad id"
//	@Success		204		"Pad closed"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pads/{padID} [delete]
func (h *Handler) ClosePad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "padID")
	if err := h.svc.ClosePad(id); err != nil {
		writeServiceError(w, "close pad", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTabs handles GET /api/tabs.
//
//	@Summary		Get the session snapshot
//	@Tags			tabs
//	@Produce		json
//	@Success		200	{object}	TabsResponse
//	@Security		BearerAuth
//	@Router			/tabs [get]
func (h *Handler) GetTabs(w http.ResponseWriter, r *http.Request) {
	tabs, active := h.svc.Tabs()
	if tabs == nil {
		tabs = []board.Tab{}
	}
	writeJSON(w, http.StatusOK, TabsResponse{Tabs: tabs, Active: active})
}

// PutTabs handles PUT /api/tabs.
//
//	@Summary		Replace the session snapshot wholesale
//	@Tags			tabs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TabsRequest	true	"Open tabs and active tab id"
//	@Success		200		{object}	TabsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tabs [put]
func (h *Handler) PutTabs(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req TabsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.SetTabs(req.Tabs, req.Active); err != nil {
		writeServiceError(w, "put tabs", err)
		return
	}
	tabs, active := h.svc.Tabs()
	if tabs == nil {
		tabs = []board.Tab{}
	}
	writeJSON(w, http.StatusOK, TabsResponse{Tabs: tabs, Active: active})
}

// GetSetting handles GET /api/settings/{key}.
//
//	@Summary		Get a shell preference
//	@Tags			settings
//	@Produce		json
//	@Param			key	path		string	true	"Setting key"
//	@Success		200	{object}	SettingResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/{key} [get]
func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, ok, err := h.svc.Setting(key)
	if err != nil {
		writeServiceError(w, "get setting", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, SettingResponse{Key: key, Value: value})
}

// PutSetting handles PUT /api/settings/{key}.
//
//	@Summary		Set a shell preference
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			key		path		string			true	"Setting key"
//	@Param			body	body		SettingRequest	true	"Value"
//	@Success		200		{object}	SettingResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/{key} [put]
func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req SettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.SetSetting(key, req.Value); err != nil {
		writeServiceError(w, "put setting", err)
		return
	}
	writeJSON(w, http.StatusOK, SettingResponse{Key: key, Value: req.Value})
}

// ClipboardMarkdown handles POST /api/clipboard/markdown.
//
//	@Summary		Convert a rich clipboard payload to markdown
//	@Tags			clipboard
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ClipboardRequest	true	"Pasted HTML and plain text"
//	@Success		200		{object}	ClipboardResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/clipboard/markdown [post]
func (h *Handler) ClipboardMarkdown(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req ClipboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	writeJSON(w, http.StatusOK, ClipboardResponse{
		Markdown: h.svc.ClipboardMarkdown(req.HTML, req.Text),
	})
}

// ResolveEmbed handles GET /api/embeds/resolve.
//
//	@Summary		Resolve a video URL to embed metadata
//	@Tags			embeds
//	@Produce		json
//	@Param			url	query		string	true	"Video URL"
//	@Success		200	{object}	EmbedResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/embeds/resolve [get]
func (h *Handler) ResolveEmbed(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'url' is required"))
		return
	}
	e, err := embed.Resolve(rawURL)
	if err != nil {
		writeServiceError(w, "resolve embed", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}
