package textdiff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
		want []Segment
	}{
		{
			name: "identical",
			old:  "hello world",
			new:  "hello world",
			want: []Segment{{Text: "hello world", Kind: Unchanged}},
		},
		{
			name: "both empty",
			old:  "",
			new:  "",
			want: []Segment{{Text: "", Kind: Unchanged}},
		},
		{
			name: "empty old",
			old:  "",
			new:  "hello world",
			want: []Segment{{Text: "hello world", Kind: Added}},
		},
		{
			name: "empty new",
			old:  "hello world",
			new:  "",
			want: []Segment{{Text: "hello world", Kind: Removed}},
		},
		{
			name: "masked machine id",
			old:  "Machine CMP-X09 failed",
			new:  "Machine [MASKED] failed",
			want: []Segment{
				{Text: "Machine ", Kind: Unchanged},
				{Text: "CMP-X09", Kind: Removed},
				{Text: "[MASKED]", Kind: Added},
				{Text: " failed", Kind: Unchanged},
			},
		},
		{
			name: "two separate edits",
			old:  "the quick brown fox",
			new:  "the slow brown dog",
			want: []Segment{
				{Text: "the ", Kind: Unchanged},
				{Text: "quick", Kind: Removed},
				{Text: "slow", Kind: Added},
				{Text: " brown ", Kind: Unchanged},
				{Text: "fox", Kind: Removed},
				{Text: "dog", Kind: Added},
			},
		},
		{
			name: "whitespace only change",
			old:  "a\nb",
			new:  "a\n\nb",
			want: []Segment{
				{Text: "a", Kind: Unchanged},
				{Text: "\n", Kind: Removed},
				{Text: "\n\n", Kind: Added},
				{Text: "b", Kind: Unchanged},
			},
		},
		{
			name: "pure insertion",
			old:  "Verify filter",
			new:  "Verify the filter",
			want: []Segment{
				{Text: "Verify ", Kind: Unchanged},
				{Text: "the ", Kind: Added},
				{Text: "filter", Kind: Unchanged},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Diff() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiff_RoundTrip(t *testing.T) {
	pairs := [][2]string{
		{"hello world", "hello world"},
		{"", "x"},
		{"x", ""},
		{"  leading and trailing  ", "leading and  trailing"},
		{"**Machine ID**: CMP-X09 (Fab 12A)\n**Recipe**: POLY-800-REV3\n", "**Machine ID**: CMP-***\n**Recipe**: ****-***-****\n"},
		{"Down Force: 5.2 psi (Out of Spec > 5.0)", "Down Force: [REDACTED] (Out of Spec)"},
		{"a b a b a b", "b a b a"},
		{"ünïcödé wörds here", "ünïcödé words here"},
		{"tab\tseparated\tvalues", "tab separated\tvalues"},
	}

	for _, p := range pairs {
		segments := Diff(p[0], p[1])
		if got := Reconstruct(segments, OldSide); got != p[0] {
			t.Errorf("old side of %q -> %q rebuilt as %q", p[0], p[1], got)
		}
		if got := Reconstruct(segments, NewSide); got != p[1] {
			t.Errorf("new side of %q -> %q rebuilt as %q", p[0], p[1], got)
		}
		for i := 1; i < len(segments); i++ {
			prev, cur := segments[i-1].Kind, segments[i].Kind
			if prev == cur {
				t.Errorf("adjacent %s segments in diff of %q -> %q", cur, p[0], p[1])
			}
			if prev == Added && cur == Removed {
				t.Errorf("removal emitted after addition in diff of %q -> %q", p[0], p[1])
			}
		}
	}
}

func TestDiff_UnchangedRunsAreMaximal(t *testing.T) {
	old := "The scratch is likely caused by agglomerated slurry particles due to high down force on CMP-X09."
	new := "The scratch is likely caused by agglomerated slurry particles due to process parameter excursion."

	segments := Diff(old, new)
	if segments[0].Kind != Unchanged || segments[0].Text != "The scratch is likely caused by agglomerated slurry particles due to " {
		t.Fatalf("expected the shared prefix as one unchanged run, got %+v", segments[0])
	}
	for _, s := range segments[1:] {
		if s.Kind == Unchanged && s.Text != " " {
			t.Errorf("unexpected unchanged run %q", s.Text)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("  a  bc\n")
	want := []string{"  ", "a", "  ", "bc", "\n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokenize() mismatch (-want +got):\n%s", diff)
	}
	if toks := tokenize(""); len(toks) != 0 {
		t.Errorf("expected no tokens for empty input, got %v", toks)
	}
}

func TestStatsAndMarkup(t *testing.T) {
	segments := Diff("Source: Photo-Bay 3 (Track 2).", "Source: Litho Area.")

	if got := Reconstruct(segments, NewSide); got != "Source: Litho Area." {
		t.Fatalf("unexpected new side %q", got)
	}

	sum := Stats(segments)
	// "Photo-Bay 3 (Track" -> "Litho" and "2)." -> "Area." around the shared space.
	if sum.Changes != 2 {
		t.Errorf("expected two changes, got %d", sum.Changes)
	}
	if sum.AddedWords != 2 {
		t.Errorf("expected 2 added words, got %d", sum.AddedWords)
	}
	if sum.RemovedWords != 4 {
		t.Errorf("expected 4 removed words, got %d", sum.RemovedWords)
	}

	want := "Machine [-CMP-X09-]{+[MASKED]+} failed"
	if got := Markup(Diff("Machine CMP-X09 failed", "Machine [MASKED] failed")); got != want {
		t.Errorf("Markup() = %q, want %q", got, want)
	}
}
