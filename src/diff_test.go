package src

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnifiedDiffIdenticalInputs(t *testing.T) {
	out := UnifiedDiff("a.py", "same\ncontent\n", "same\ncontent\n", false)
	assert.Empty(t, out, "identical inputs produce no diff")
}

func TestUnifiedDiffMarksChanges(t *testing.T) {
	old := "a\nb\nc\n"
	new := "a\nB\nc\n"
	out := UnifiedDiff("a.py", old, new, false)

	assert.Contains(t, out, "--- a.py")
	assert.Contains(t, out, "+++ a.py")
	assert.Contains(t, out, "-b")
	assert.Contains(t, out, "+B")
	assert.Contains(t, out, " a")
	assert.Contains(t, out, " c")
}

func TestUnifiedDiffPureInsertion(t *testing.T) {
	out := UnifiedDiff("a.py", "", "only\nnew\n", false)
	assert.Contains(t, out, "+only")
	assert.Contains(t, out, "+new")
	assert.NotContains(t, out, "\n-")
}

func TestUnifiedDiffLimitsContext(t *testing.T) {
	var oldLines, newLines []string
	for i := 0; i < 40; i++ {
		oldLines = append(oldLines, "line")
		newLines = append(newLines, "line")
	}
	newLines[20] = "changed"

	out := UnifiedDiff("a.py", strings.Join(oldLines, "\n"), strings.Join(newLines, "\n"), false)

	kept := strings.Count(out, "\n line")
	assert.LessOrEqual(t, kept, 10, "a single change must not drag the whole file into the hunk")
	assert.Contains(t, out, "+changed")
}
