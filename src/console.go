package src

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Console renders model output and asks yes/no questions on a plain
// terminal. Interactive widgets are only used on a real TTY; piped or
// scripted invocations fall back to line-oriented prompts.
type Console struct {
	tty      bool
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	renderer *glamour.TermRenderer

	headerStyle lipgloss.Style
	noteStyle   lipgloss.Style
	errStyle    lipgloss.Style
}

func NewConsole() *Console {
	return newConsoleWith(os.Stdin, os.Stdout, os.Stderr, isatty.IsTerminal(os.Stdout.Fd()))
}

func newConsoleWith(in io.Reader, out, errOut io.Writer, tty bool) *Console {
	c := &Console{
		tty:         tty,
		in:          in,
		out:         out,
		errOut:      errOut,
		headerStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")),
		noteStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		errStyle:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
	}
	if c.tty {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err == nil {
			c.renderer = r
		}
	}
	return c
}

// Markdown pretty-prints model prose; off-TTY it passes text through.
func (c *Console) Markdown(text string) {
	if c.renderer != nil {
		if out, err := c.renderer.Render(text); err == nil {
			fmt.Fprint(c.out, out)
			return
		}
	}
	fmt.Fprintln(c.out, text)
}

// Code prints source with syntax highlighting when on a TTY.
func (c *Console) Code(code, lang string) {
	if c.tty {
		if err := quick.Highlight(c.out, code, lang, "terminal256", "monokai"); err == nil {
			fmt.Fprintln(c.out)
			return
		}
	}
	fmt.Fprintln(c.out, code)
}

func (c *Console) Header(text string) {
	fmt.Fprintln(c.out, c.headerStyle.Render(text))
}

func (c *Console) Note(text string) {
	fmt.Fprintln(c.out, c.noteStyle.Render(text))
}

func (c *Console) Error(text string) {
	fmt.Fprintln(c.errOut, c.errStyle.Render(text))
}

// Print writes raw text, for output that must not be styled or wrapped.
func (c *Console) Print(text string) {
	fmt.Fprint(c.out, text)
}

// Confirm asks a yes/no question. On a TTY it uses a form widget; off a
// TTY it reads a y/n line so the command stays scriptable.
func (c *Console) Confirm(question string, def bool) (bool, error) {
	if c.tty {
		answer := def
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().Title(question).Value(&answer),
		))
		if err := form.Run(); err != nil {
			return false, err
		}
		return answer, nil
	}

	fmt.Fprintf(c.out, "%s [y/n]: ", question)
	reader := bufio.NewReader(c.in)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return def, nil
	}
}

// consoleApprover adapts Console to the loop's approval interface.
type consoleApprover struct {
	console *Console
	lang    string
}

func (a *consoleApprover) ApproveChange(iteration int, candidate, diff string) (bool, error) {
	a.console.Header(fmt.Sprintf("Proposed change (iteration %d)", iteration))
	a.console.Code(candidate, a.lang)
	if diff != "" {
		fmt.Fprintln(a.console.out, diff)
	}
	return a.console.Confirm("Apply this change?", false)
}

func (a *consoleApprover) ContinueAfterReject() (bool, error) {
	return a.console.Confirm("Keep trying with a different approach?", false)
}
