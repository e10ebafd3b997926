package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// ah serves attachment uploads; nil disables the endpoint.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler, ah *AttachmentHandler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Board documents.
	r.Get("/boards", h.ListBoards)
	r.Post("/boards", h.CreateBoard)
	r.Get("/boards/*", h.GetBoard)
	r.Put("/boards/*", h.PutBoard)
	r.Delete("/boards/*", h.DeleteBoard)

	// Cognitive notes listing.
	r.Get("/notes", h.ListNotes)

	// Pads.
	r.Post("/pads", h.OpenPad)
	r.Get("/pads/{padID}", h.GetPad)
	r.Delete("/pads/{padID}", h.ClosePad)
	r.Post("/pads/{padID}/select", h.SelectNode)
	r.Put("/pads/{padID}/buffer", h.EditBuffer)
	r.Post("/pads/{padID}/commit", h.CommitPad)
	r.Put("/pads/{padID}/mode", h.SetPadMode)
	r.Get("/pads/{padID}/render", h.RenderPad)

	// Session snapshot.
	r.Get("/tabs", h.GetTabs)
	r.Put("/tabs", h.PutTabs)

	// Shell preferences.
	r.Get("/settings/{key}", h.GetSetting)
	r.Put("/settings/{key}", h.PutSetting)

	// Clipboard and embeds.
	r.Post("/clipboard/markdown", h.ClipboardMarkdown)
	r.Get("/embeds/resolve", h.ResolveEmbed)

	// Attachments (auth-protected).
	if ah != nil {
		r.Post("/attachments", ah.Upload)
		r.Get("/attachments/{filename}", ah.ServeFile)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
