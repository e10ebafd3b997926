package pad

import (
	"path/filepath"
	"strings"
)

// textExtensions is the fixed allow-list of text-like extensions. The
// extension check is authoritative in path mode; handle-backed reads may
// widen acceptance through MIME sniffing but never narrow it.
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".text": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".xml": true,
	".csv": true, ".tsv": true, ".log": true, ".ini": true, ".conf": true,
	".html": true, ".htm": true, ".css": true, ".js": true, ".ts": true,
	".go": true, ".py": true, ".rs": true, ".sh": true, ".sql": true,
}

// Eligibility is the classification outcome for a candidate path. Markdown
// is a strict subset flag choosing the rendering mode; it never affects
// general eligibility.
type Eligibility struct {
	Eligible bool
	Markdown bool
}

// Classify applies the extension allow-list to a candidate path. An empty
// path is never eligible.
func Classify(path string) Eligibility {
	if path == "" {
		return Eligibility{}
	}
	ext := strings.ToLower(filepath.Ext(path))
	return Eligibility{
		Eligible: textExtensions[ext],
		Markdown: ext == ".md" || ext == ".markdown",
	}
}

// ClassifyMIME widens a path classification with MIME metadata from a
// handle-backed read. MIME is an acceptance path only: a textual type adds
// eligibility, a non-textual one rejects nothing the extension allowed.
func ClassifyMIME(path, mimeType string) Eligibility {
	e := Classify(path)
	if e.Eligible {
		return e
	}
	if TextualMIME(mimeType) {
		e.Eligible = true
	}
	return e
}

// TextualMIME reports whether a MIME type looks like text: text/*, or a
// type mentioning json, xml, yaml or markdown.
func TextualMIME(mimeType string) bool {
	if mimeType == "" {
		return false
	}
	mt := strings.ToLower(mimeType)
	if strings.HasPrefix(mt, "text/") {
		return true
	}
	for _, frag := range []string{"json", "xml", "yaml", "markdown"} {
		if strings.Contains(mt, frag) {
			return true
		}
	}
	return false
}
