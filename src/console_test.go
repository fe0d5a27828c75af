package src

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainConsole(input string) (*Console, *bytes.Buffer) {
	var out bytes.Buffer
	return newConsoleWith(strings.NewReader(input), &out, &out, false), &out
}

func TestConsoleApproverShowsCandidateAndDiff(t *testing.T) {
	c, out := plainConsole("y\n")
	a := &consoleApprover{console: c, lang: "python"}

	ok, err := a.ApproveChange(2, "print('hello')\n", "-old\n+new")
	require.NoError(t, err)
	assert.True(t, ok)

	text := out.String()
	assert.Contains(t, text, "Proposed change (iteration 2)")
	assert.Contains(t, text, "print('hello')")
	assert.Contains(t, text, "+new")
	assert.Contains(t, text, "Apply this change?")
}

func TestConsoleConfirmReadsAnswer(t *testing.T) {
	c, _ := plainConsole("n\n")
	ok, err := c.Confirm("Apply?", true)
	require.NoError(t, err)
	assert.False(t, ok)

	c, _ = plainConsole("garbage\n")
	ok, err = c.Confirm("Apply?", false)
	require.NoError(t, err)
	assert.False(t, ok, "unparseable answer falls back to the default")
}

func TestConsoleCodePlainMode(t *testing.T) {
	c, out := plainConsole("")
	c.Code("def f():\n    pass", "python")
	assert.Contains(t, out.String(), "def f():")
}
