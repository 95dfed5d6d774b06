package textdiff

import (
	"strings"
)

// Side selects which input Reconstruct rebuilds.
type Side int

const (
	OldSide Side = iota
	NewSide
)

// Reconstruct concatenates the segments belonging to one side of the diff.
func Reconstruct(segments []Segment, side Side) string {
	var b strings.Builder
	for _, s := range segments {
		switch {
		case s.Kind == Unchanged,
			side == OldSide && s.Kind == Removed,
			side == NewSide && s.Kind == Added:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// Summary counts the words touched by a diff.
type Summary struct {
	AddedWords   int `json:"added_words"`
	RemovedWords int `json:"removed_words"`
	Changes      int `json:"changes"`
}

// Stats summarises segments. Changes counts the edited gaps, where an
// adjacent removal and addition count once.
func Stats(segments []Segment) Summary {
	var sum Summary
	prev := Unchanged
	for _, s := range segments {
		switch s.Kind {
		case Added:
			sum.AddedWords += len(strings.Fields(s.Text))
			if prev != Removed {
				sum.Changes++
			}
		case Removed:
			sum.RemovedWords += len(strings.Fields(s.Text))
			sum.Changes++
		}
		prev = s.Kind
	}
	return sum
}

// Markup renders segments inline using wdiff-style markers:
// [-removed-] and {+added+}.
func Markup(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		switch s.Kind {
		case Removed:
			b.WriteString("[-")
			b.WriteString(s.Text)
			b.WriteString("-]")
		case Added:
			b.WriteString("{+")
			b.WriteString(s.Text)
			b.WriteString("+}")
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}
