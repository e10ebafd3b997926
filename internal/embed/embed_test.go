package embed

import (
	"errors"
	"sync"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		url    string
		wantID string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?list=PL1&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/abc123XYZ_-", "abc123XYZ_-"},
		{"https://www.youtube.com/embed/abc123XYZ_-", "abc123XYZ_-"},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}
	for _, tc := range cases {
		got, err := Resolve(tc.url)
		if err != nil {
			t.Errorf("Resolve(%q): %v", tc.url, err)
			continue
		}
		if got.VideoID != tc.wantID {
			t.Errorf("Resolve(%q).VideoID = %q, want %q", tc.url, got.VideoID, tc.wantID)
		}
		if got.EmbedURL != "https://www.youtube.com/embed/"+tc.wantID {
			t.Errorf("Resolve(%q).EmbedURL = %q", tc.url, got.EmbedURL)
		}
		if got.ThumbnailURL == "" {
			t.Errorf("Resolve(%q): empty thumbnail", tc.url)
		}
	}
}

func TestResolve_Unrecognised(t *testing.T) {
	for _, url := range []string{
		"https://example.com/watch?v=abc123XYZ",
		"https://vimeo.com/12345",
		"not a url",
	} {
		if _, err := Resolve(url); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Resolve(%q) err = %v, want ErrNotFound", url, err)
		}
	}
	if _, err := Resolve(""); err == nil {
		t.Error("Resolve(\"\") should fail")
	}
}

func TestResolve_ConcurrentInit(t *testing.T) {
	// All goroutines share the one pattern compilation; none may observe a
	// partially built table.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Resolve("https://youtu.be/dQw4w9WgXcQ")
			if err != nil || got.VideoID != "dQw4w9WgXcQ" {
				t.Errorf("concurrent Resolve: %+v, %v", got, err)
			}
		}()
	}
	wg.Wait()
}
