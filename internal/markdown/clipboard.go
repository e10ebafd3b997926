package markdown

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

var converter = md.NewConverter("", true, nil)

// FromClipboard converts a pasted payload to markdown. The rich HTML part
// wins when present; otherwise the plain text passes through unchanged,
// whitespace intact. Callers fall back to the plain part themselves when
// conversion fails.
func FromClipboard(htmlPart, textPart string) (string, error) {
	if strings.TrimSpace(htmlPart) == "" {
		return textPart, nil
	}
	out, err := converter.ConvertString(htmlPart)
	if err != nil {
		return "", fmt.Errorf("markdown: convert clipboard html: %w", err)
	}
	return out, nil
}
