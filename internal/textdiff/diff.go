// Package textdiff computes word-level differences between two texts.
//
// Text is split into tokens that are either a run of whitespace or a run of
// non-whitespace, so every byte of the input belongs to exactly one token and
// the segments can always be stitched back into either input.
package textdiff

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind classifies a diff segment.
type Kind string

const (
	Unchanged Kind = "unchanged"
	Added     Kind = "added"
	Removed   Kind = "removed"
)

// Segment is a contiguous span of text sharing one classification.
type Segment struct {
	Text string `json:"text"`
	Kind Kind   `json:"kind"`
}

// maxCells bounds the alignment table. Inputs whose differing middle section
// exceeds it are reported as a single removal followed by a single addition.
const maxCells = 1 << 22

// Diff returns the segments that turn oldText into newText.
//
// Concatenating the Unchanged and Added segments yields newText; concatenating
// the Unchanged and Removed segments yields oldText. Between two unchanged
// runs at most one Removed segment is emitted, immediately followed by at most
// one Added segment.
func Diff(oldText, newText string) []Segment {
	switch {
	case oldText == newText:
		return []Segment{{Text: newText, Kind: Unchanged}}
	case oldText == "":
		return []Segment{{Text: newText, Kind: Added}}
	case newText == "":
		return []Segment{{Text: oldText, Kind: Removed}}
	}

	a := tokenize(oldText)
	b := tokenize(newText)

	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	var w writer
	for _, tok := range a[:prefix] {
		w.unchanged(tok)
	}
	align(a[prefix:len(a)-suffix], b[prefix:len(b)-suffix], &w)
	for _, tok := range a[len(a)-suffix:] {
		w.unchanged(tok)
	}
	return w.finish()
}

// align walks a longest-common-subsequence table over the token slices.
// Ties favour removal so deletions are visited before insertions.
func align(a, b []string, w *writer) {
	n, m := len(a), len(b)
	if n == 0 || m == 0 || (n+1)*(m+1) > maxCells {
		for _, tok := range a {
			w.removed(tok)
		}
		for _, tok := range b {
			w.added(tok)
		}
		return
	}

	// lcs[i*(m+1)+j] is the LCS length of a[i:] and b[j:].
	stride := m + 1
	lcs := make([]int32, (n+1)*stride)
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i*stride+j] = lcs[(i+1)*stride+j+1] + 1
			} else if down, right := lcs[(i+1)*stride+j], lcs[i*stride+j+1]; down >= right {
				lcs[i*stride+j] = down
			} else {
				lcs[i*stride+j] = right
			}
		}
	}

	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			w.unchanged(a[i])
			i++
			j++
		case lcs[(i+1)*stride+j] >= lcs[i*stride+j+1]:
			w.removed(a[i])
			i++
		default:
			w.added(b[j])
			j++
		}
	}
	for ; i < n; i++ {
		w.removed(a[i])
	}
	for ; j < m; j++ {
		w.added(b[j])
	}
}

// writer buffers removals and additions between unchanged tokens so each
// gap is emitted as removed-then-added, and merges adjacent unchanged tokens.
type writer struct {
	segments []Segment
	same     strings.Builder
	del      strings.Builder
	ins      strings.Builder
}

func (w *writer) unchanged(tok string) {
	w.flushEdits()
	w.same.WriteString(tok)
}

func (w *writer) removed(tok string) {
	w.flushSame()
	w.del.WriteString(tok)
}

func (w *writer) added(tok string) {
	w.flushSame()
	w.ins.WriteString(tok)
}

func (w *writer) flushSame() {
	if w.same.Len() > 0 {
		w.segments = append(w.segments, Segment{Text: w.same.String(), Kind: Unchanged})
		w.same.Reset()
	}
}

func (w *writer) flushEdits() {
	if w.del.Len() > 0 {
		w.segments = append(w.segments, Segment{Text: w.del.String(), Kind: Removed})
		w.del.Reset()
	}
	if w.ins.Len() > 0 {
		w.segments = append(w.segments, Segment{Text: w.ins.String(), Kind: Added})
		w.ins.Reset()
	}
}

func (w *writer) finish() []Segment {
	w.flushSame()
	w.flushEdits()
	return w.segments
}

// tokenize splits s into alternating whitespace and non-whitespace runs.
func tokenize(s string) []string {
	var tokens []string
	start := 0
	inSpace := false
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		space := unicode.IsSpace(r)
		if i > start && space != inSpace {
			tokens = append(tokens, s[start:i])
			start = i
		}
		inSpace = space
		i += size
	}
	if start < len(s) {
		tokens = append(tokens, s[start:])
	}
	return tokens
}
