package render

import (
	"bytes"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"multichat/internal/core"
)

const clearScreen = "\x1b[2J\x1b[H"

// TerminalRenderer draws cards as bordered boxes on a terminal stream.
type TerminalRenderer struct {
	out   io.Writer
	width int
	clear bool

	promptLabel lipgloss.Style
	title       lipgloss.Style
	success     lipgloss.Style
	failure     lipgloss.Style
}

// TerminalOption configures a TerminalRenderer.
type TerminalOption func(*TerminalRenderer)

// WithWidth sets the box width in cells.
func WithWidth(width int) TerminalOption {
	return func(r *TerminalRenderer) {
		if width > 0 {
			r.width = width
		}
	}
}

// WithClearScreen erases the screen before each render. Only useful on a TTY.
func WithClearScreen(enabled bool) TerminalOption {
	return func(r *TerminalRenderer) {
		r.clear = enabled
	}
}

// NewTerminal creates a renderer writing to out. Colour support is detected
// from out itself.
func NewTerminal(out io.Writer, opts ...TerminalOption) *TerminalRenderer {
	r := &TerminalRenderer{out: out, width: 80}
	for _, opt := range opts {
		opt(r)
	}

	lg := lipgloss.NewRenderer(out)
	box := lg.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Width(r.width - 2)
	r.promptLabel = lg.NewStyle().Bold(true)
	r.title = lg.NewStyle().Bold(true)
	r.success = box.BorderForeground(lipgloss.Color("#4caf50"))
	r.failure = box.BorderForeground(lipgloss.Color("#f44336"))
	return r
}

// Render writes the prompt echo followed by one box per card in a single write.
func (r *TerminalRenderer) Render(prompt string, result core.SubmissionResult) {
	var buf bytes.Buffer
	if r.clear {
		buf.WriteString(clearScreen)
	}

	buf.WriteString(r.promptLabel.Render(core.PromptLabel))
	buf.WriteByte(' ')
	buf.WriteString(Sanitize(prompt))
	buf.WriteByte('\n')

	for _, c := range cards(result) {
		style := r.success
		if c.Failed {
			style = r.failure
		}
		body := r.title.Render(Sanitize(c.Title)) + "\n" + Sanitize(c.Body)
		buf.WriteString(style.Render(body))
		buf.WriteByte('\n')
	}

	_, _ = r.out.Write(buf.Bytes())
}

// Sanitize makes untrusted text inert on a terminal: escape sequences are
// stripped and the remaining control characters other than newline and tab
// are dropped.
func Sanitize(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) {
			return -1
		}
		return r
	}, s)
}
