package markdown

import (
	"strings"
	"testing"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "paragraph",
			source: "Hello world",
			want:   []string{"<p>Hello world</p>"},
		},
		{
			name:   "heading gets an id",
			source: "## Getting Started",
			want:   []string{`<h2 id="getting-started">Getting Started</h2>`},
		},
		{
			name:   "gfm table",
			source: "| a | b |\n|---|---|\n| 1 | 2 |",
			want:   []string{"<table>", "<td>1</td>"},
		},
		{
			name:   "strikethrough",
			source: "~~gone~~",
			want:   []string{"<del>gone</del>"},
		},
		{
			name:   "fenced code is highlighted",
			source: "```go\nfunc main() {}\n```",
			want:   []string{"<pre", "func"},
		},
		{
			name:   "raw html passes through",
			source: `<div class="note">kept</div>`,
			want:   []string{`<div class="note">kept</div>`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHTML(tt.source)
			if err != nil {
				t.Fatalf("ToHTML: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output %q does not contain %q", got, w)
				}
			}
		})
	}
}

func TestToHTMLEmpty(t *testing.T) {
	got, err := ToHTML("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
