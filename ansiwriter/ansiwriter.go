// Package ansiwriter renders styled text for the debugger's REPL and
// Where Renderer output, suppressing escape sequences when the target
// stream is not a terminal and wrapping sequences in readline's
// invisible-width markers when asked to.
package ansiwriter

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color names the semantic colors the debugger uses; it maps to a
// lipgloss.Color at Format time rather than exposing raw ANSI codes to
// callers.
type Color int

const (
	// None applies no foreground color.
	None Color = iota
	Red
	Green
	Cyan
	Dim
)

func (c Color) lipglossColor() lipgloss.Color {
	switch c {
	case Red:
		return lipgloss.Color("1")
	case Green:
		return lipgloss.Color("2")
	case Cyan:
		return lipgloss.Color("6")
	default:
		return ""
	}
}

// Style is a formatting request: a color and bold/dim toggles.
type Style struct {
	Color Color
	Bold  bool
	Dim   bool
}

const (
	readlineStart = "\001"
	readlineEnd   = "\002"
)

// Writer writes styled output straight to an underlying stream and knows
// whether that stream supports ANSI escapes.
type Writer struct {
	out     io.Writer
	useANSI bool
}

// New returns a Writer over out, auto-detecting ANSI support via isatty
// when out is an *os.File, the way runner/tui.go derives terminal
// capability in the teacher repo. Non-file writers (e.g. a bytes.Buffer in
// tests) are treated as non-TTY.
func New(out io.Writer) *Writer {
	useANSI := false

	if f, ok := out.(*os.File); ok {
		useANSI = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return &Writer{out: out, useANSI: useANSI}
}

// NewForced returns a Writer with ANSI support forced on or off,
// bypassing TTY detection.
func NewForced(out io.Writer, useANSI bool) *Writer {
	return &Writer{out: out, useANSI: useANSI}
}

// UseANSI reports whether this writer emits escape sequences.
func (w *Writer) UseANSI() bool { return w.useANSI }

// Format renders text styled per style. If escapeForReadline is true and
// ANSI is enabled, the escape sequences are wrapped in \001/\002 so a line
// editor computing prompt width skips over them. If ANSI is disabled,
// text is returned unchanged.
func Format(text string, style Style, useANSI, escapeForReadline bool) string {
	if !useANSI || (style.Color == None && !style.Bold && !style.Dim) {
		return text
	}

	s := lipgloss.NewStyle()

	if style.Color != None {
		s = s.Foreground(style.Color.lipglossColor())
	}

	if style.Bold {
		s = s.Bold(true)
	}

	if style.Dim {
		s = s.Faint(true)
	}

	rendered := s.Render(text)

	if !escapeForReadline {
		return rendered
	}

	prefix, suffix := splitLipglossEscapes(rendered, text)

	return readlineStart + prefix + readlineEnd + text + readlineStart + suffix + readlineEnd
}

// splitLipglossEscapes recovers the raw escape-sequence prefix/suffix
// lipgloss wrapped plainText in, so they can be individually bracketed in
// readline's invisible markers (rather than marking the visible text
// itself invisible, which would break cursor math).
func splitLipglossEscapes(rendered, plainText string) (prefix, suffix string) {
	idx := indexOf(rendered, plainText)
	if idx < 0 {
		return rendered, ""
	}

	prefix = rendered[:idx]
	suffix = rendered[idx+len(plainText):]

	return prefix, suffix
}

func indexOf(haystack, needle string) int {
	if needle == "" {
		return -1
	}

	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}

	return -1
}

// FormatLine renders text styled per style using this writer's own ANSI
// capability, without writing it — for callers (like the Where Renderer)
// that build up several styled lines before printing them.
func (w *Writer) FormatLine(text string, style Style) string {
	return Format(text, style, w.useANSI, false)
}

// FormatPrompt renders text styled per style with its escape sequences
// wrapped in readline's invisible-width markers — for the REPL prompt
// string itself, which a line editor measures to keep cursor math correct.
func (w *Writer) FormatPrompt(text string, style Style) string {
	return Format(text, style, w.useANSI, true)
}

// Write formats text per style and writes it to the underlying stream,
// never wrapping in readline markers (those only matter for the prompt
// string itself, which callers format directly via Format).
func (w *Writer) Write(text string, style Style) {
	io.WriteString(w.out, Format(text, style, w.useANSI, false))
}

// WriteLine is Write with a trailing newline.
func (w *Writer) WriteLine(text string, style Style) {
	w.Write(text+"\n", style)
}
