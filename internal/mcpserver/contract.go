package mcpserver

// BoardFormatContract describes the board document JSON that LLM consumers
// read and write through the board tools.
const BoardFormatContract = `# Ansuz Board Format Contract

Every board document stored in Ansuz is a single JSON file under the
` + "`" + `boards/` + "`" + ` workspace directory.

## Structure

` + "```" + `json
{
  "id": "uuid",
  "name": "Human-readable board name",
  "nodes": [
    {
      "id": "uuid",
      "kind": "file | flowchart | image | shield | youtube",
      "label": "optional display label",
      "path": "notes/todo.md",
      "details_path": "details/node.md",
      "shape": "diamond",
      "url": "https://youtu.be/...",
      "x": 120, "y": 80, "w": 200, "h": 120,
      "updated_on": "2026-01-15T10:00:00Z",
      "last_viewed_on": "2026-01-20T09:30:00Z"
    }
  ],
  "edges": [
    {"id": "uuid", "from": "node-id", "to": "node-id", "label": "optional"}
  ],
  "file_views": {"notes/todo.md": "2026-01-20T09:30:00Z"},
  "updated_on": "2026-01-20T09:30:00Z"
}
` + "```" + `

## Rules

1. **Node kinds and file targets.** ` + "`" + `file` + "`" + ` nodes reference their own file
   through ` + "`" + `path` + "`" + `. ` + "`" + `flowchart` + "`" + `, ` + "`" + `image` + "`" + ` and ` + "`" + `shield` + "`" + ` nodes reference an
   associated external file through ` + "`" + `details_path` + "`" + `. When a node carries
   both, the associated ` + "`" + `details_path` + "`" + ` wins.
2. **` + "`" + `youtube` + "`" + ` nodes** carry a video ` + "`" + `url` + "`" + ` and never resolve to a file.
3. **Paths** are workspace-relative with forward slashes. Never use ` + "`" + `..` + "`" + `.
4. **` + "`" + `file_views` + "`" + `** is the recent-files index of a regular board; the
   cognitive-notes root omits it. Treat it as engine-maintained: do not
   edit it by hand, use the write_node_file tool which maintains it.
5. **Timestamps** are RFC 3339 UTC.
6. **Shape nodes** put their SVG shape name in ` + "`" + `shape` + "`" + ` and keep their
   narrative text in the file behind ` + "`" + `details_path` + "`" + `.

## Assets & Images

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool; it returns the
  workspace-relative path ready to store as an image node's
  ` + "`" + `details_path` + "`" + `.
- Assets live in the flat ` + "`" + `attachments/` + "`" + ` directory.
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.
`
