package src

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	diffAddStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	diffDelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	diffHunkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

type diffOp int

const (
	diffKeep diffOp = iota
	diffDelete
	diffInsert
)

type diffLine struct {
	op   diffOp
	text string
}

// UnifiedDiff renders the changes from old to new as a unified diff with
// three lines of context per hunk, colored for terminal display when
// color is true.
func UnifiedDiff(path, old, new string, color bool) string {
	oldLines := splitLines(old)
	newLines := splitLines(new)
	script := diffScript(oldLines, newLines)

	changed := false
	for _, l := range script {
		if l.op != diffKeep {
			changed = true
			break
		}
	}
	if !changed {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", path, path)

	const ctx = 3
	i := 0
	for i < len(script) {
		if script[i].op == diffKeep {
			i++
			continue
		}
		// Extend the hunk backwards and forwards by the context window,
		// merging runs of changes separated by short keeps.
		start := i - ctx
		if start < 0 {
			start = 0
		}
		end := i
		lastChange := i
		for end < len(script) {
			if script[end].op != diffKeep {
				lastChange = end
			} else if end-lastChange > 2*ctx {
				break
			}
			end++
		}
		hunkEnd := lastChange + ctx + 1
		if hunkEnd > len(script) {
			hunkEnd = len(script)
		}

		writeHunk(&b, script[start:hunkEnd], start, color)
		i = hunkEnd
	}
	return b.String()
}

func writeHunk(b *strings.Builder, hunk []diffLine, offset int, color bool) {
	oldStart, newStart := 1, 1
	// Positions are recovered by counting ops before the hunk; offset is
	// the script index of the hunk's first line.
	oldStart += offset
	newStart += offset
	oldCount, newCount := 0, 0
	for _, l := range hunk {
		switch l.op {
		case diffKeep:
			oldCount++
			newCount++
		case diffDelete:
			oldCount++
		case diffInsert:
			newCount++
		}
	}

	header := fmt.Sprintf("@@ -%d,%d +%d,%d @@", oldStart, oldCount, newStart, newCount)
	if color {
		header = diffHunkStyle.Render(header)
	}
	b.WriteString(header)
	b.WriteByte('\n')

	for _, l := range hunk {
		switch l.op {
		case diffKeep:
			b.WriteString(" " + l.text)
		case diffDelete:
			line := "-" + l.text
			if color {
				line = diffDelStyle.Render(line)
			}
			b.WriteString(line)
		case diffInsert:
			line := "+" + l.text
			if color {
				line = diffAddStyle.Render(line)
			}
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// diffScript computes an edit script from old to new using an LCS table.
// Inputs here are source files, small enough that the quadratic table is
// fine.
func diffScript(old, new []string) []diffLine {
	m, n := len(old), len(new)
	lcs := make([][]int, m+1)
	for i := range lcs {
		lcs[i] = make([]int, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if old[i] == new[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var script []diffLine
	i, j := 0, 0
	for i < m && j < n {
		switch {
		case old[i] == new[j]:
			script = append(script, diffLine{diffKeep, old[i]})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			script = append(script, diffLine{diffDelete, old[i]})
			i++
		default:
			script = append(script, diffLine{diffInsert, new[j]})
			j++
		}
	}
	for ; i < m; i++ {
		script = append(script, diffLine{diffDelete, old[i]})
	}
	for ; j < n; j++ {
		script = append(script, diffLine{diffInsert, new[j]})
	}
	return script
}
