// Package where implements the Where Renderer: the debugger's view of the
// current stop — matching breakpoints, the ancestor/descendant test
// chain, the resolved byte window, and the verdict.
package where

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/polyfile/pfdbg/ansiwriter"
	"github.com/polyfile/pfdbg/breakpoint"
	"github.com/polyfile/pfdbg/byteescape"
	"github.com/polyfile/pfdbg/magic"
)

const contextBytes = 32

// Args is the optional explicit state Render uses in place of the live
// snapshot fields, per spec.md §4.5 ("given an optional test, offset,
// parent_match, and result, each defaulting to the snapshot").
type Args struct {
	Test            magic.Test
	AbsoluteOffset  int
	HasOffset       bool
	ParentMatch     magic.Result
	Result          magic.Result
	HasResult       bool
}

// Render writes the Where view of args to out, styled via w.
func Render(out io.Writer, w *ansiwriter.Writer, breakpoints []breakpoint.Breakpoint, data []byte, args Args) {
	if args.Test == nil {
		fmt.Fprintln(out, w.FormatLine("No test has been run yet. Use step, next, or run.", ansiwriter.Style{Dim: true}))
		return
	}

	renderBreakpointHeadline(out, w, breakpoints, data, args)
	renderAncestors(out, w, args.Test)
	renderDescendants(out, w, args.Test)
	renderByteWindow(out, w, data, args)
	renderVerdict(out, w, args)
}

func renderBreakpointHeadline(out io.Writer, w *ansiwriter.Writer, breakpoints []breakpoint.Breakpoint, data []byte, args Args) {
	ctx := breakpoint.Context{
		Test:        args.Test,
		Data:        data,
		ParentMatch: args.ParentMatch,
		Result:      args.Result,
	}

	if args.HasOffset {
		ctx.AbsoluteOffset = args.AbsoluteOffset
	}

	var matches []string

	for _, bp := range breakpoints {
		if bp.ShouldBreak(ctx) {
			matches = append(matches, bp.Describe())
		}
	}

	if len(matches) > 0 {
		fmt.Fprintln(out, w.FormatLine("Stopped at breakpoint: "+strings.Join(matches, ", "), ansiwriter.Style{Bold: true}))
	}
}

func renderAncestors(out io.Writer, w *ansiwriter.Writer, focus magic.Test) {
	var chain []magic.Test

	for t := focus; t != nil; t = t.Parent() {
		chain = append(chain, t)
	}

	for i := len(chain) - 1; i >= 0; i-- {
		renderTestLine(out, w, chain[i], chain[i] == focus)
	}
}

func renderDescendants(out io.Writer, w *ansiwriter.Writer, focus magic.Test) {
	var walk func(t magic.Test)

	walk = func(t magic.Test) {
		for _, c := range t.Children() {
			if !c.CanMatchMime() {
				continue
			}

			renderTestLine(out, w, c, false)
			walk(c)
		}
	}

	walk(focus)
}

func renderTestLine(out io.Writer, w *ansiwriter.Writer, t magic.Test, isFocus bool) {
	marker := "  "
	if isFocus {
		marker = "→ "
	}

	for _, c := range t.Comments() {
		fmt.Fprintln(out, w.FormatLine("  # "+c.Text, ansiwriter.Style{Dim: true, Color: ansiwriter.Cyan}))
	}

	line := fmt.Sprintf("%s%s%s %s", marker, strings.Repeat(">", t.Level()), t.Offset().String(), t.Message())
	if info := t.SourceInfo(); info != nil {
		line = fmt.Sprintf("%s (%s:%d)", line, info.Path, info.Line)
	}

	style := ansiwriter.Style{}
	if isFocus {
		style.Bold = true
	}

	fmt.Fprintln(out, w.FormatLine(line, style))

	if mime, ok := t.MIME(); ok {
		fmt.Fprintln(out, w.FormatLine("    !:mime "+mime, ansiwriter.Style{Dim: true}))
	}

	for _, ext := range t.Extensions() {
		fmt.Fprintln(out, w.FormatLine("    !:ext "+ext, ansiwriter.Style{Dim: true}))
	}
}

func renderByteWindow(out io.Writer, w *ansiwriter.Writer, data []byte, args Args) {
	offset := args.AbsoluteOffset

	if !args.HasOffset {
		off := args.Test.Offset()

		resolved, err := off.ToAbsolute(data, args.ParentMatch)
		if err != nil {
			printInvalidOffset(out, w, err)
			// Fall through to PrintContext with the pre-failure offset, as
			// the ground-truth print_where does: the byte window is
			// mandatory even when offset resolution fails.
		} else {
			if !off.IsAbsolute() {
				fmt.Fprintln(out, w.FormatLine(fmt.Sprintf("offset %s resolves to %d", off.String(), resolved), ansiwriter.Style{}))
			}

			offset = resolved
		}
	}

	numBytes := 1
	if args.HasResult {
		if length, ok := args.Result.Length(); ok {
			numBytes = length
		}
	}

	PrintContext(out, w, data, offset, contextBytes, numBytes)
}

func printInvalidOffset(out io.Writer, w *ansiwriter.Writer, err error) {
	var invalid *magic.InvalidOffsetError
	if errors.As(err, &invalid) {
		fmt.Fprintln(out, w.FormatLine("InvalidOffset: "+invalid.Reason, ansiwriter.Style{Color: ansiwriter.Red}))
		return
	}

	fmt.Fprintln(out, w.FormatLine("InvalidOffset: "+err.Error(), ansiwriter.Style{Color: ansiwriter.Red}))
}

// PrintContext prints up to contextBytes bytes before offset, the current
// numBytes bytes, and up to contextBytes bytes after — each byte-escaped —
// with a caret underline spanning the current bytes.
func PrintContext(out io.Writer, w *ansiwriter.Writer, data []byte, offset, contextBytesN, numBytes int) {
	if offset < 0 || offset > len(data) {
		fmt.Fprintln(out, w.FormatLine(fmt.Sprintf("offset %d is out of bounds (%d bytes available)", offset, len(data)), ansiwriter.Style{Color: ansiwriter.Red}))
		return
	}

	bytesBefore := min(offset, contextBytesN)

	end := min(offset+numBytes, len(data))
	after := min(end+contextBytesN, len(data))

	before := byteescape.Escape(data[offset-bytesBefore : offset])
	current := byteescape.Escape(data[offset:end])
	trailing := byteescape.Escape(data[end:after])

	fmt.Fprintln(out, before+current+trailing)
	fmt.Fprintln(out, strings.Repeat(" ", len([]rune(before)))+strings.Repeat("^", max(len([]rune(current)), 1)))
}

func renderVerdict(out io.Writer, w *ansiwriter.Writer, args Args) {
	if !args.HasResult || args.Result == nil {
		return
	}

	if args.Result.Truthy() {
		fmt.Fprintln(out, w.FormatLine("Test succeeded.", ansiwriter.Style{Color: ansiwriter.Green}))
		return
	}

	msg := "Test failed."

	if failMsg, ok := args.Result.FailureMessage(); ok && failMsg != "" {
		msg = "Test failed: " + failMsg
	}

	fmt.Fprintln(out, w.FormatLine(msg, ansiwriter.Style{Color: ansiwriter.Red}))
}
