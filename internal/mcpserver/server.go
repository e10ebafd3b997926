// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the board and pad tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/board"
	"github.com/starford/ansuz/internal/docstore"
	"github.com/starford/ansuz/internal/pad"
	"github.com/starford/ansuz/internal/storage"
)

// Server wraps the MCP server with the Ansuz tools.
type Server struct {
	mcp   *server.MCPServer
	store *docstore.Store
	ws    storage.Provider
}

// New creates a new MCP server with all Ansuz tools registered.
func New(store *docstore.Store, ws storage.Provider) *Server {
	s := &Server{store: store, ws: ws}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_boards",
		mcp.WithDescription("List every board document in the workspace."),
	), s.listBoards)

	s.mcp.AddTool(mcp.NewTool("read_board",
		mcp.WithDescription("Read a board document as JSON. Read the contract first via "+
			"the ansuz://board-format resource if you plan to write it back."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative board path (e.g. boards/atlas.json)")),
	), s.readBoard)

	s.mcp.AddTool(mcp.NewTool("read_node_file",
		mcp.WithDescription("Resolve a board node to the file it references and return its "+
			"content. Fails when the node has no file target or the target is not text."),
		mcp.WithString("board", mcp.Required(), mcp.Description("Workspace-relative board path")),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node id")),
	), s.readNodeFile)

	s.mcp.AddTool(mcp.NewTool("write_node_file",
		mcp.WithDescription("Write content to the file a board node references, maintaining "+
			"the same metadata the editor maintains (node timestamps and the recent-files index)."),
		mcp.WithString("board", mcp.Required(), mcp.Description("Workspace-relative board path")),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New file content")),
	), s.writeNodeFile)

	s.mcp.AddTool(mcp.NewTool("list_recent_files",
		mcp.WithDescription("List a board's recently viewed files, most recent first."),
		mcp.WithString("board", mcp.Required(), mcp.Description("Workspace-relative board path")),
		mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default all)")),
	), s.listRecentFiles)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download a file from a URL (or decode a data: URI) and store it "+
			"in the attachments directory. Returns the workspace-relative path ready for an "+
			"image node's details_path."),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP(S) URL or base64 data: URI")),
		mcp.WithString("filename", mcp.Description("Optional filename override")),
	), s.uploadAsset)

	// Resource: board format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://board-format", "Board Format Contract",
			mcp.WithResourceDescription("Canonical board document JSON that all boards follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readBoardFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listBoards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boards, err := s.store.ListBoards()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(boards, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rel, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.store.Board(rel)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", rel)), nil
	}
	out, _ := json.MarshalIndent(doc, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

// resolveNode loads a board, finds a node, and resolves its file target.
func (s *Server) resolveNode(boardRel, nodeID string) (*board.Document, pad.Target, error) {
	doc, err := s.store.Board(boardRel)
	if err != nil {
		return nil, pad.Target{}, fmt.Errorf("board not found: %s", boardRel)
	}
	n := doc.FindNode(nodeID)
	if n == nil {
		return nil, pad.Target{}, fmt.Errorf("node not found: %s", nodeID)
	}
	target, ok := pad.ResolveTarget(n)
	if !ok || target.Path == "" {
		return nil, pad.Target{}, fmt.Errorf("node %s has no file target", nodeID)
	}
	return doc, target, nil
}

func (s *Server) readNodeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boardRel, err := req.RequireString("board")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodeID, err := req.RequireString("node")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	_, target, err := s.resolveNode(boardRel, nodeID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, mt, err := s.ws.ReadSniff(target.Path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", target.Path, err)), nil
	}
	if elig := pad.ClassifyMIME(target.Path, mt); !elig.Eligible {
		return mcp.NewToolResultError(fmt.Sprintf("not a text file: %s (%s)", target.Path, mt)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) writeNodeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boardRel, err := req.RequireString("board")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodeID, err := req.RequireString("node")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	_, target, err := s.resolveNode(boardRel, nodeID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.ws.Write(target.Path, []byte(content)); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("write %s: %v", target.Path, err)), nil
	}

	// Same metadata the editor's commit maintains: associated flowchart
	// targets touch only the node timestamp; plain file nodes on a regular
	// board refresh the recent-files index.
	now := time.Now().UTC()
	notesRoot := boardRel == s.store.NotesRootPath()
	switch {
	case target.Associated && target.Flowchart:
		err = s.store.Update(boardRel, func(doc *board.Document) error {
			doc.TouchNode(nodeID, now)
			return nil
		})
	case !target.Associated && !notesRoot:
		err = s.store.Update(boardRel, func(doc *board.Document) error {
			doc.RefreshFileView(target.Path, now)
			return nil
		})
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("metadata update: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("written: %s", target.Path)), nil
}

func (s *Server) listRecentFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boardRel, err := req.RequireString("board")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := 0
	if v, fErr := req.RequireFloat("limit"); fErr == nil {
		limit = int(v)
	}

	doc, err := s.store.Board(boardRel)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", boardRel)), nil
	}
	views := doc.RecentFiles(limit)
	if len(views) == 0 {
		return mcp.NewToolResultText("no recent files"), nil
	}
	out, _ := json.MarshalIndent(views, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readBoardFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://board-format",
			MIMEType: "text/markdown",
			Text:     BoardFormatContract,
		},
	}, nil
}
