// Package magic models the host file-identification engine that the
// debugger instruments: DSL tests, their results, byte offsets, and the
// submatch parsers that run once a test identifies a container format.
//
// The engine itself (offset arithmetic, type tests, wildcard MIME matching,
// structural parsers) is an external collaborator per the debugger's
// design — this package's Rule/Engine types are a reference implementation
// small enough to exercise every debugger component end to end.
package magic

import (
	"errors"
	"fmt"
)

// Result is the outcome of evaluating a Test. A nil Result means the test
// did not run at all (not applicable); a non-nil Result is either a match
// (Truthy returns true) or a Failure carrying a message.
type Result interface {
	// Truthy distinguishes a match from a non-match.
	Truthy() bool
	// Length returns the number of matched bytes, if the result tracks one.
	Length() (int, bool)
	// FailureMessage returns the failure detail, if this result is a Failure.
	FailureMessage() (string, bool)
}

// IsFailed reports whether result is absent or a non-matching Failure —
// the outcome FailedWrapper breakpoints require.
func IsFailed(result Result) bool {
	return result == nil || !result.Truthy()
}

// IsMatched reports whether result is present and matched — the outcome
// MatchedWrapper breakpoints require.
func IsMatched(result Result) bool {
	return result != nil && result.Truthy()
}

// Match is a successful Result, optionally carrying the byte length consumed.
type Match struct {
	MatchedLength    int
	HasMatchedLength bool
}

// NewMatch returns a successful Result of the given byte length.
func NewMatch(length int) *Match {
	return &Match{MatchedLength: length, HasMatchedLength: true}
}

func (m *Match) Truthy() bool { return true }

func (m *Match) Length() (int, bool) { return m.MatchedLength, m.HasMatchedLength }

func (m *Match) FailureMessage() (string, bool) { return "", false }

// Failure is a Result for a test that ran but did not match.
type Failure struct {
	Message string
}

func (f *Failure) Truthy() bool { return false }

func (f *Failure) Length() (int, bool) { return 0, false }

func (f *Failure) FailureMessage() (string, bool) { return f.Message, true }

// ErrInvalidOffset is returned by Offset.ToAbsolute when resolution fails.
var ErrInvalidOffset = errors.New("magic: invalid offset")

// InvalidOffsetError wraps ErrInvalidOffset with detail about why
// resolution failed (e.g. an indirect read past the end of data).
type InvalidOffsetError struct {
	Reason string
}

func (e *InvalidOffsetError) Error() string {
	return fmt.Sprintf("invalid offset: %s", e.Reason)
}

func (e *InvalidOffsetError) Unwrap() error { return ErrInvalidOffset }

// Offset is a DSL expression resolvable against (data, parentMatch) to an
// absolute byte position.
type Offset interface {
	fmt.Stringer
	// IsAbsolute reports whether this offset is already a literal position,
	// needing no data or parent match to resolve.
	IsAbsolute() bool
	// ToAbsolute resolves the offset to a byte position.
	ToAbsolute(data []byte, parentMatch Result) (int, error)
}

// SourceInfo is the origin of a test within the DSL rule database.
type SourceInfo struct {
	Path         string
	Line         int
	OriginalLine string
}

// Comment is an annotated source line attached to a test.
type Comment struct {
	Text       string
	SourceInfo *SourceInfo
}

// Test is a node in the tree of DSL tests evaluated against a byte buffer.
type Test interface {
	Level() int
	Offset() Offset
	Message() string
	// MIME returns the test's advertised MIME type, if any.
	MIME() (string, bool)
	Extensions() []string
	Comments() []Comment
	SourceInfo() *SourceInfo
	Parent() Test
	Children() []Test
	// CanMatchMime reports whether this test (or its wrapper) is capable of
	// advertising a MIME type at all — used by the Where Renderer to decide
	// which descendants are worth rendering.
	CanMatchMime() bool
	// MimeTypes returns the set of MIME strings this test (transitively)
	// advertises.
	MimeTypes() []string
	// AllExtensions returns the set of extensions this test advertises.
	AllExtensions() []string
	// Evaluate runs the test against data at absoluteOffset, given the
	// parent test's own result (nil at the root). It is instrumented by
	// Engine.SetInterceptor.
	Evaluate(data []byte, absoluteOffset int, parentMatch Result) (Result, error)
}

// Field is one key/value pair of a Match's structured view (§4.6). List
// fields are represented with IsList set and are skipped by printers.
type Field struct {
	Key    string
	Value  any
	IsList bool
}

// SubmatchView is a structured dump of a matched container, passed to
// format parsers and printed by the Submatch Debug Driver.
type SubmatchView interface {
	// Name is the display name of the matched structure (e.g. "ZipEOCD").
	Name() string
	Fields() []Field
	// Offset is the stream offset at which the match was found.
	Offset() int
}
