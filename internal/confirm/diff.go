package confirm

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffLine is one line of a line diff.
type DiffLine struct {
	Op   diffmatchpatch.Operation
	Text string
}

// LineDiff compares before and after line by line.
func LineDiff(before, after string) []DiffLine {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []DiffLine
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		for _, line := range strings.Split(text, "\n") {
			out = append(out, DiffLine{Op: d.Type, Text: line})
		}
	}
	return out
}

// Stats counts added and removed lines.
func Stats(before, after string) (added, removed int) {
	for _, l := range LineDiff(before, after) {
		switch l.Op {
		case diffmatchpatch.DiffInsert:
			added++
		case diffmatchpatch.DiffDelete:
			removed++
		}
	}
	return added, removed
}

// Render prints changed lines prefixed with + or -, keeping context
// unchanged lines around each change and eliding the rest.
func Render(before, after string, context int) string {
	lines := LineDiff(before, after)
	keep := make([]bool, len(lines))
	for i, l := range lines {
		if l.Op == diffmatchpatch.DiffEqual {
			continue
		}
		for j := max(0, i-context); j <= min(len(lines)-1, i+context); j++ {
			keep[j] = true
		}
	}

	var sb strings.Builder
	skipped := false
	for i, l := range lines {
		if !keep[i] {
			skipped = true
			continue
		}
		if skipped {
			sb.WriteString("@@\n")
			skipped = false
		}
		switch l.Op {
		case diffmatchpatch.DiffInsert:
			sb.WriteString("+ ")
		case diffmatchpatch.DiffDelete:
			sb.WriteString("- ")
		default:
			sb.WriteString("  ")
		}
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}
