package pad

import "unicode/utf8"

// Caret is a snapshot of the editor selection as plain-text rune offsets
// from the start of the surface, plus whether the surface held focus when
// the snapshot was taken.
type Caret struct {
	Start int  `json:"start"`
	End   int  `json:"end"`
	Focus bool `json:"focus"`
}

// Remap fits a captured caret onto content after a rewrite. Offsets are
// clamped to the content length and inverted ranges collapse. Best-effort:
// when the snapshot itself is unusable the second return is false and
// callers degrade to focus-only restoration.
func (c Caret) Remap(content string) (Caret, bool) {
	if c.Start < 0 || c.End < 0 {
		return Caret{Focus: c.Focus}, false
	}
	n := utf8.RuneCountInString(content)
	start, end := c.Start, c.End
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	return Caret{Start: start, End: end, Focus: c.Focus}, true
}
