// Package embed resolves video URLs on youtube-kind nodes to the metadata
// the shell needs to place a player: the video id, an embeddable URL, and a
// thumbnail. The engine never embeds anything itself.
package embed

import (
	"fmt"
	"regexp"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/starford/ansuz/internal/apperr"
)

// Embed is the resolved metadata for one video URL.
type Embed struct {
	VideoID      string `json:"video_id"`
	EmbedURL     string `json:"embed_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// The pattern table is process-wide state with once-only initialization:
// concurrent first callers share a single compilation through singleflight
// instead of racing to build it twice.
var (
	table atomic.Pointer[[]*regexp.Regexp]
	group singleflight.Group
)

func patterns() ([]*regexp.Regexp, error) {
	if p := table.Load(); p != nil {
		return *p, nil
	}
	v, err, _ := group.Do("patterns", func() (any, error) {
		if p := table.Load(); p != nil {
			return *p, nil
		}
		compiled := make([]*regexp.Regexp, 0, 4)
		for _, expr := range []string{
			`(?:^|\.)youtube\.com/watch\?(?:.*&)?v=([A-Za-z0-9_-]{6,})`,
			`(?:^|\.)youtube\.com/shorts/([A-Za-z0-9_-]{6,})`,
			`(?:^|\.)youtube\.com/embed/([A-Za-z0-9_-]{6,})`,
			`youtu\.be/([A-Za-z0-9_-]{6,})`,
		} {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("embed: compile pattern: %w", err)
			}
			compiled = append(compiled, re)
		}
		table.Store(&compiled)
		return compiled, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*regexp.Regexp), nil
}

// Resolve maps a YouTube watch, short, embed or youtu.be URL to its embed
// metadata. Unrecognised URLs return ErrNotFound.
func Resolve(rawURL string) (Embed, error) {
	if rawURL == "" {
		return Embed{}, fmt.Errorf("embed: empty url: %w", apperr.ErrInvalidPath)
	}
	pats, err := patterns()
	if err != nil {
		return Embed{}, err
	}
	for _, re := range pats {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			id := m[1]
			return Embed{
				VideoID:      id,
				EmbedURL:     "https://www.youtube.com/embed/" + id,
				ThumbnailURL: "https://img.youtube.com/vi/" + id + "/hqdefault.jpg",
			}, nil
		}
	}
	return Embed{}, fmt.Errorf("embed: unrecognised video url %q: %w", rawURL, apperr.ErrNotFound)
}
