// Package breakpoint implements the debugger's predicate model: a closed
// set of breakpoint variants (MIME, Extension, File) plus the
// FailedWrapper/MatchedWrapper outcome composers, parsed from REPL text.
package breakpoint

import (
	"strconv"
	"strings"

	"github.com/danwakefield/fnmatch"

	"github.com/polyfile/pfdbg/magic"
)

// Context is the state a Breakpoint's predicate is evaluated against —
// the Context Snapshot fields relevant to breaking, passed by value so a
// predicate can never mutate the debugger's own state.
type Context struct {
	Test           magic.Test
	Data           []byte
	AbsoluteOffset int
	ParentMatch    magic.Result
	Result         magic.Result
}

// Breakpoint is a predicate over a Context, per spec.md §3. Implementations
// are exactly the five variants in this package — a closed sum type, not
// an extensible interface meant for external registration.
type Breakpoint interface {
	ShouldBreak(ctx Context) bool
	// Describe renders the breakpoint's canonical spec text, used in
	// listings and the Where Renderer's headline.
	Describe() string
}

// MIME matches when Pattern (a wildcard using * and ?) is contained in the
// test's advertised MIME set.
type MIME struct {
	Pattern string
}

func (b *MIME) ShouldBreak(ctx Context) bool {
	if ctx.Test == nil {
		return false
	}

	for _, m := range ctx.Test.MimeTypes() {
		if globMatch(b.Pattern, m) {
			return true
		}
	}

	return false
}

func (b *MIME) Describe() string { return "mime:" + b.Pattern }

// Extension matches when Ext is in the test's advertised extension set.
type Extension struct {
	Ext string
}

func (b *Extension) ShouldBreak(ctx Context) bool {
	if ctx.Test == nil {
		return false
	}

	for _, e := range ctx.Test.AllExtensions() {
		if e == b.Ext {
			return true
		}
	}

	return false
}

func (b *Extension) Describe() string { return "ext:" + b.Ext }

// File matches when the test's source line equals Line and Filename
// matches by full path (if it contains '/') or by basename otherwise.
type File struct {
	Filename string
	Line     int
}

func (b *File) ShouldBreak(ctx Context) bool {
	if ctx.Test == nil {
		return false
	}

	info := ctx.Test.SourceInfo()
	if info == nil || info.Line != b.Line {
		return false
	}

	if strings.Contains(b.Filename, "/") {
		return info.Path == b.Filename
	}

	return basename(info.Path) == b.Filename
}

func (b *File) Describe() string {
	return b.Filename + ":" + strconv.Itoa(b.Line)
}

func basename(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}

	return path
}

// FailedWrapper matches only if the result is absent or failed AND Inner
// matches.
type FailedWrapper struct {
	Inner Breakpoint
}

func (b *FailedWrapper) ShouldBreak(ctx Context) bool {
	return magic.IsFailed(ctx.Result) && b.Inner.ShouldBreak(ctx)
}

func (b *FailedWrapper) Describe() string { return "!" + b.Inner.Describe() }

// MatchedWrapper matches only if the result is present and non-failed AND
// Inner matches.
type MatchedWrapper struct {
	Inner Breakpoint
}

func (b *MatchedWrapper) ShouldBreak(ctx Context) bool {
	return magic.IsMatched(ctx.Result) && b.Inner.ShouldBreak(ctx)
}

func (b *MatchedWrapper) Describe() string { return "=" + b.Inner.Describe() }

// Parse is total: it returns ok=false for any unrecognized form rather
// than an error, per spec.md §7 ("breakpoint parsing is total").
//
// Order: a leading '!' or '=' recurses on the remainder and wraps the
// result (right-associative, applied outermost-first); otherwise each
// base variant's own parser is probed in turn (MIME, Extension, File).
func Parse(text string) (Breakpoint, bool) {
	if text == "" {
		return nil, false
	}

	switch text[0] {
	case '!':
		inner, ok := Parse(text[1:])
		if !ok {
			return nil, false
		}

		return &FailedWrapper{Inner: inner}, true
	case '=':
		inner, ok := Parse(text[1:])
		if !ok {
			return nil, false
		}

		return &MatchedWrapper{Inner: inner}, true
	}

	if bp, ok := parseMIME(text); ok {
		return bp, true
	}

	if bp, ok := parseExtension(text); ok {
		return bp, true
	}

	if bp, ok := parseFile(text); ok {
		return bp, true
	}

	return nil, false
}

func parseMIME(text string) (Breakpoint, bool) {
	const prefix = "mime:"
	if len(text) <= len(prefix) || !strings.EqualFold(text[:len(prefix)], prefix) {
		return nil, false
	}

	pattern := text[len(prefix):]
	if pattern == "" {
		return nil, false
	}

	return &MIME{Pattern: pattern}, true
}

func parseExtension(text string) (Breakpoint, bool) {
	const prefix = "ext:"
	if len(text) <= len(prefix) || !strings.EqualFold(text[:len(prefix)], prefix) {
		return nil, false
	}

	ext := text[len(prefix):]
	if ext == "" {
		return nil, false
	}

	return &Extension{Ext: ext}, true
}

// parseFile requires at least one ':' with a positive integer suffix.
// Every colon-separated piece after the filename is joined before
// conversion — matching the upstream Python source's behavior verbatim,
// so "a:1:2" parses as line 12 rather than being rejected. See spec.md
// §9's Open Question: this pathological join is kept rather than
// "fixed," since the spec leaves the choice open and the original
// implementation this was distilled from does exactly this.
func parseFile(text string) (Breakpoint, bool) {
	idx := strings.IndexByte(text, ':')
	if idx < 0 {
		return nil, false
	}

	filename := text[:idx]
	remainder := strings.ReplaceAll(text[idx+1:], ":", "")

	if remainder == "" {
		return nil, false
	}

	line, err := strconv.Atoi(remainder)
	if err != nil || line <= 0 {
		return nil, false
	}

	return &File{Filename: filename, Line: line}, true
}

// globMatch reports whether pattern (using '*' for any run of characters
// and '?' for any single character) matches s in full. Delegates to
// fnmatch with no flags set, so '*' is free to cross '/' — exactly what a
// MIME pattern like "application/*" needs, and what path.Match's FNM_
// PATHNAME-like behavior would get wrong.
func globMatch(pattern, s string) bool {
	return fnmatch.Match(pattern, s, 0)
}
