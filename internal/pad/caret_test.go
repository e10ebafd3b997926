package pad

import "testing"

func TestCaretRemap(t *testing.T) {
	cases := []struct {
		name    string
		caret   Caret
		content string
		want    Caret
		ok      bool
	}{
		{
			name:    "in range unchanged",
			caret:   Caret{Start: 2, End: 4, Focus: true},
			content: "hello world",
			want:    Caret{Start: 2, End: 4, Focus: true},
			ok:      true,
		},
		{
			name:    "clamped to content length",
			caret:   Caret{Start: 50, End: 80},
			content: "short",
			want:    Caret{Start: 5, End: 5},
			ok:      true,
		},
		{
			// Rune offsets, not bytes: four runes of multibyte text.
			name:    "multibyte runes",
			caret:   Caret{Start: 3, End: 4},
			content: "日本語だ",
			want:    Caret{Start: 3, End: 4},
			ok:      true,
		},
		{
			name:    "inverted range collapses",
			caret:   Caret{Start: 4, End: 2},
			content: "12345",
			want:    Caret{Start: 4, End: 4},
			ok:      true,
		},
		{
			name:    "negative offsets unusable",
			caret:   Caret{Start: -1, End: 3, Focus: true},
			content: "anything",
			want:    Caret{Focus: true},
			ok:      false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.caret.Remap(tc.content)
			if ok != tc.ok || got != tc.want {
				t.Errorf("Remap = %+v ok=%v, want %+v ok=%v", got, ok, tc.want, tc.ok)
			}
		})
	}
}
